package handlers

import (
	"net/http"

	"ticketmarket/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type CheckinHandler struct {
	app           *pocketbase.PocketBase
	ticketService *services.TicketService
}

func NewCheckinHandler(app *pocketbase.PocketBase, ticketService *services.TicketService) *CheckinHandler {
	return &CheckinHandler{
		app:           app,
		ticketService: ticketService,
	}
}

type checkinRequest struct {
	UniqueCode string `json:"unique_code"`
}

// CheckIn redeems a ticket code at the gate. Only the event's organizer
// or an admin may scan.
func (h *CheckinHandler) CheckIn(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req checkinRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.UniqueCode == "" {
		return apis.NewBadRequestError("unique_code is required", nil)
	}

	isAdmin := e.HasSuperuserAuth() || e.Auth.GetString("role") == "admin"
	result, err := h.ticketService.CheckIn(e.Request.Context(), req.UniqueCode, e.Auth.Id, isAdmin)
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// ListOrderTickets returns the tickets issued under one order.
func (h *CheckinHandler) ListOrderTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")
	order, err := h.app.FindRecordById("orders", orderID)
	if err != nil {
		return apis.NewNotFoundError("Order not found", nil)
	}
	if !e.HasSuperuserAuth() && order.GetString("customer_id") != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	tickets, err := h.ticketService.TicketsForOrder(e.Request.Context(), orderID)
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]map[string]any, len(tickets))
	for i, ticket := range tickets {
		out[i] = map[string]any{
			"id":            ticket.Id,
			"unique_code":   ticket.GetString("unique_code"),
			"status":        ticket.GetString("status"),
			"event_id":      ticket.GetString("event_id"),
			"holder_name":   ticket.GetString("holder_name"),
			"checked_in_at": ticket.GetString("checked_in_at"),
		}
	}
	return e.JSON(http.StatusOK, map[string]any{"tickets": out})
}
