package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"wslink-server/internal/modules/weather/service"
)

// parseHoursQuery returns the history window (default 24). Anything that is
// not a positive integer is rejected.
func parseHoursQuery(r *http.Request) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get("hours"))
	if s == "" {
		return service.DefaultHistoryHours, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, service.ErrInvalidWindow
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidParameter), errors.Is(err, service.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
