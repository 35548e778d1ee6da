package health

import (
	"net/http"

	apphealth "3tcapital/correlate/internal/application/health"
	httpinfra "3tcapital/correlate/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service *apphealth.Service
}

func NewHandler(service *apphealth.Service) *Handler {
	return &Handler{service: service}
}

// Status answers 200 while every component is up and 503 otherwise.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response := h.service.Status(r.Context())

	code := http.StatusOK
	if !response.Up() {
		code = http.StatusServiceUnavailable
	}
	httpinfra.WriteJSON(r.Context(), w, code, response, nil)
}
