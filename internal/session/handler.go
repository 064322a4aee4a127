package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Filters handles GET /api/notifications/filters.
func (h *Handler) Filters(c echo.Context) error {
	opts, err := h.service.FilterOptions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, opts)
}
