package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"wslink-server/internal/utils"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthchecker struct {
	store Pinger
}

func (h *healthchecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("failed to check store connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check store connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, store Pinger) {
	h := &healthchecker{store: store}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
