package handlers

import (
	"net/http"
	"time"

	"ticketmarket/internal/services"
	"ticketmarket/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

type OrderHandler struct {
	app          *pocketbase.PocketBase
	orderService *services.OrderService
	expiryWindow time.Duration
}

func NewOrderHandler(app *pocketbase.PocketBase, orderService *services.OrderService, expiryWindow time.Duration) *OrderHandler {
	return &OrderHandler{
		app:          app,
		orderService: orderService,
		expiryWindow: expiryWindow,
	}
}

type createOrderRequest struct {
	EventID   string                 `json:"event_id"`
	Items     []services.ItemRequest `json:"items"`
	Purchaser models.Purchaser       `json:"purchaser"`
}

// CreateOrder opens a pending order and reserves its inventory.
func (h *OrderHandler) CreateOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req createOrderRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.EventID == "" || len(req.Items) == 0 {
		return apis.NewBadRequestError("event_id and items are required", nil)
	}

	purchaser := req.Purchaser.Merge(models.Purchaser{
		Name:  e.Auth.GetString("name"),
		Email: e.Auth.GetString("email"),
		Phone: e.Auth.GetString("phone"),
	})

	expiresAt, err := types.ParseDateTime(time.Now().Add(h.expiryWindow))
	if err != nil {
		return apis.NewInternalServerError("Something went wrong", nil)
	}

	order, err := h.orderService.Create(e.Request.Context(), services.CreateOrderInput{
		EventID:    req.EventID,
		CustomerID: e.Auth.Id,
		Items:      req.Items,
		Purchaser:  purchaser,
	}, expiresAt)
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusCreated, orderResponse(order))
}

// GetOrder returns one order to its owner or a superuser.
func (h *OrderHandler) GetOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	order, err := h.orderService.Lookup(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return mapDomainError(err)
	}
	if !h.canRead(e, order) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, orderResponse(order))
}

// ListOrders returns the caller's order history, newest first.
func (h *OrderHandler) ListOrders(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orders, err := h.orderService.OrdersForCustomer(e.Request.Context(), e.Auth.Id, 50, 0)
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]map[string]any, len(orders))
	for i, order := range orders {
		out[i] = orderResponse(order)
	}
	return e.JSON(http.StatusOK, map[string]any{"orders": out})
}

// CancelOrder closes the caller's pending order and releases its
// reservation.
func (h *OrderHandler) CancelOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	actorID := e.Auth.Id
	if e.HasSuperuserAuth() {
		actorID = ""
	}

	order, err := h.orderService.Cancel(e.Request.Context(), e.Request.PathValue("orderId"), actorID, services.TriggerAPI)
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusOK, orderResponse(order))
}

func (h *OrderHandler) canRead(e *core.RequestEvent, order *core.Record) bool {
	if e.HasSuperuserAuth() {
		return true
	}
	return order.GetString("customer_id") == e.Auth.Id
}

func orderResponse(order *core.Record) map[string]any {
	var items []models.LineItem
	_ = order.UnmarshalJSONField("items", &items)

	return map[string]any{
		"id":         order.Id,
		"event_id":   order.GetString("event_id"),
		"status":     order.GetString("status"),
		"total":      order.GetFloat("total"),
		"items":      items,
		"expires_at": order.GetString("expires_at"),
		"paid_at":    order.GetString("paid_at"),
		"created":    order.GetString("created"),
	}
}
