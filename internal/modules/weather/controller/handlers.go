package controller

import (
	"net/http"

	"wslink-server/internal/modules/weather/service"
	"wslink-server/internal/utils"
)

type uploadResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

func (c *weatherControllerImpl) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, err := c.service.Ingest(r.Context(), service.Callback{
		Origin: utils.ClientIP(r, c.trustProxy),
		Params: r.URL.Query(),
	})
	if err != nil {
		utils.WriteError(w, statusFor(err), err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, uploadResponse{Status: "success", ID: id})
}

// handleCurrent answers 200 with the record, or 200 with a JSON null when the
// store is empty.
func (c *weatherControllerImpl) handleCurrent(w http.ResponseWriter, r *http.Request) {
	rec, err := c.service.Current(r.Context())
	if err != nil {
		utils.WriteError(w, statusFor(err), err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, rec)
}

func (c *weatherControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHoursQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := c.service.History(r.Context(), hours)
	if err != nil {
		utils.WriteError(w, statusFor(err), err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, recs)
}
