package httpapi

import (
	"log/slog"
	"net/http"
	"os"

	"wslink-server/internal/utils"
)

const rootMessage = "Weather Station API is running..."

// NewMux returns a mux with /healthz and the root route. When staticDir is
// an existing directory its files are served at "/"; otherwise "/" answers
// with a JSON status message.
func NewMux(store Pinger, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	registerRoot(mux, staticDir)
	return mux
}

func registerRoot(mux *http.ServeMux, staticDir string) {
	if staticDir != "" {
		if fi, err := os.Stat(staticDir); err == nil && fi.IsDir() {
			slog.Info("serving static frontend", "dir", staticDir)
			mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
			return
		}
		slog.Info("static dir not found, serving status message at /", "dir", staticDir)
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
	})
}
