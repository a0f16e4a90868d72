package handlers

import (
	"net/http"

	"ticketmarket/internal/services"
	"ticketmarket/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// AdminHandler hosts moderation endpoints: event lifecycle decisions and
// order refunds. Every route requires superuser auth or an admin role.
type AdminHandler struct {
	app          *pocketbase.PocketBase
	eventService *services.EventService
	orderService *services.OrderService
	redis        *redis.Client
}

func NewAdminHandler(app *pocketbase.PocketBase, eventService *services.EventService, orderService *services.OrderService, redisClient *redis.Client) *AdminHandler {
	return &AdminHandler{
		app:          app,
		eventService: eventService,
		orderService: orderService,
		redis:        redisClient,
	}
}

func (h *AdminHandler) requireAdmin(e *core.RequestEvent) error {
	if e.HasSuperuserAuth() {
		return nil
	}
	if e.Auth != nil && e.Auth.GetString("role") == "admin" {
		return nil
	}
	return apis.NewForbiddenError("Admin access required", nil)
}

func (h *AdminHandler) eventTransition(e *core.RequestEvent, fn func(id string) (*core.Record, int64, error)) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	event, affected, err := fn(e.Request.PathValue("eventId"))
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"id":               event.Id,
		"status":           event.GetString("status"),
		"affected_tickets": affected,
	})
}

// ApproveEvent publishes an event and restores previously voided tickets.
func (h *AdminHandler) ApproveEvent(e *core.RequestEvent) error {
	return h.eventTransition(e, func(id string) (*core.Record, int64, error) {
		return h.eventService.Approve(e.Request.Context(), id)
	})
}

// RejectEvent turns a submitted event down.
func (h *AdminHandler) RejectEvent(e *core.RequestEvent) error {
	return h.eventTransition(e, func(id string) (*core.Record, int64, error) {
		return h.eventService.Reject(e.Request.Context(), id)
	})
}

// DemoteEvent pulls a published event off sale.
func (h *AdminHandler) DemoteEvent(e *core.RequestEvent) error {
	return h.eventTransition(e, func(id string) (*core.Record, int64, error) {
		return h.eventService.Demote(e.Request.Context(), id)
	})
}

// CancelEvent terminates an event and voids its tickets.
func (h *AdminHandler) CancelEvent(e *core.RequestEvent) error {
	return h.eventTransition(e, func(id string) (*core.Record, int64, error) {
		return h.eventService.Cancel(e.Request.Context(), id)
	})
}

// RefundOrder records a refund on a paid order.
func (h *AdminHandler) RefundOrder(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	order, err := h.orderService.Refund(e.Request.Context(), e.Request.PathValue("orderId"), services.TriggerAPI)
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"id":     order.Id,
		"status": order.GetString("status"),
	})
}

// Health reports process and dependency liveness.
func (h *AdminHandler) Health(e *core.RequestEvent) error {
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := utils.RedisHealthCheck(e.Request.Context(), h.redis); err != nil {
			redisStatus = "down"
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"redis":  redisStatus,
	})
}
