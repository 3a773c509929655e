package controller

import (
	"net/http"

	"wslink-server/internal/modules/weather/service"
)

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	service    service.WeatherService
	trustProxy bool
}

// NewWeatherController builds the station and query handlers. trustProxy
// takes the callback origin from proxy headers instead of the peer address.
func NewWeatherController(service service.WeatherService, trustProxy bool) WeatherController {
	return &weatherControllerImpl{service: service, trustProxy: trustProxy}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	// Path is fixed by the station firmware.
	mux.HandleFunc("GET /data/upload.php", c.handleUpload)
	mux.HandleFunc("GET /api/current", c.handleCurrent)
	mux.HandleFunc("GET /api/history", c.handleHistory)
}
