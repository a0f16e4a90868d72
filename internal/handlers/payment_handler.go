package handlers

import (
	"net/http"

	"ticketmarket/internal/services"
	"ticketmarket/internal/services/gateway"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	app          *pocketbase.PocketBase
	gateway      *gateway.Client
	orderService *services.OrderService
}

func NewPaymentHandler(app *pocketbase.PocketBase, gw *gateway.Client, orderService *services.OrderService) *PaymentHandler {
	return &PaymentHandler{
		app:          app,
		gateway:      gw,
		orderService: orderService,
	}
}

// CreatePaymentURL issues a signed redirect URL for a pending order.
func (h *PaymentHandler) CreatePaymentURL(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	order, err := h.orderService.Lookup(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return mapDomainError(err)
	}
	if !e.HasSuperuserAuth() && order.GetString("customer_id") != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	payURL, err := h.gateway.BuildPaymentURL(e.Request.Context(), order, e.RealIP())
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"order_id":    order.Id,
		"payment_url": payURL,
	})
}

// Notify is the server-to-server settlement callback. The gateway
// expects HTTP 200 with an RspCode body on every delivery, including
// rejected ones, so it knows whether to stop retrying.
func (h *PaymentHandler) Notify(e *core.RequestEvent) error {
	if err := e.Request.ParseForm(); err != nil {
		return apis.NewBadRequestError("Invalid callback", err)
	}

	result := h.gateway.HandleNotification(e.Request.Context(), e.Request.Form)
	return e.JSON(http.StatusOK, result)
}

// Return lands the customer's browser after the hosted payment page.
// Read-only: settlement belongs to Notify.
func (h *PaymentHandler) Return(e *core.RequestEvent) error {
	view, err := h.gateway.HandleReturn(e.Request.Context(), e.Request.URL.Query())
	if err != nil {
		return mapDomainError(err)
	}
	return e.JSON(http.StatusOK, view)
}
