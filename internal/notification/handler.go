package notification

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
)

// Handler exposes dispatch and lifecycle operations over HTTP.
type Handler struct {
	dispatcher *Dispatcher
	service    *Service
}

func NewHandler(dispatcher *Dispatcher, service *Service) *Handler {
	return &Handler{dispatcher: dispatcher, service: service}
}

func caller(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return auth.Identity{}, apperr.ErrUnauthenticated
	}
	return id, nil
}

// Send handles POST /api/notifications/send.
func (h *Handler) Send(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return err
	}
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	n, err := h.dispatcher.Send(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":      "Notification sent successfully",
		"notification": n,
	})
}

// BulkSend handles POST /api/notifications/bulk-send.
func (h *Handler) BulkSend(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return err
	}
	var req BulkRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	result, err := h.dispatcher.SendBulk(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("Bulk notifications sent to %d recipients", result.Resolved),
		"count":   result.Inserted,
	})
}

// ListMine handles GET /api/notifications/my.
func (h *Handler) ListMine(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return err
	}
	ns, err := h.service.ListMine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ns)
}

// ListForUser handles GET /api/notifications/user/:userId.
func (h *Handler) ListForUser(c echo.Context) error {
	ns, err := h.service.ListForUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ns)
}

// ListAll handles GET /api/notifications/all.
func (h *Handler) ListAll(c echo.Context) error {
	var f ListFilter
	if err := c.Bind(&f); err != nil {
		return err
	}
	ns, err := h.service.ListAll(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ns)
}

// MarkRead handles PATCH /api/notifications/:id/read.
func (h *Handler) MarkRead(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return err
	}
	n, err := h.service.MarkRead(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":      "Notification marked as read",
		"notification": n,
	})
}

// Delete handles DELETE /api/notifications/:id.
func (h *Handler) Delete(c echo.Context) error {
	actor, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification deleted successfully"})
}

// Stats handles GET /api/notifications/stats.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
