package handlers

import (
	"net/http"

	"ticketmarket/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

type EventHandler struct {
	app              *pocketbase.PocketBase
	eventService     *services.EventService
	inventoryService *services.InventoryService
}

func NewEventHandler(app *pocketbase.PocketBase, eventService *services.EventService, inventoryService *services.InventoryService) *EventHandler {
	return &EventHandler{
		app:              app,
		eventService:     eventService,
		inventoryService: inventoryService,
	}
}

// ListEvents returns events currently on sale.
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	events, err := h.eventService.ListOnSale(e.Request.Context(), 100, 0)
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]map[string]any, len(events))
	for i, event := range events {
		out[i] = eventResponse(event)
	}
	return e.JSON(http.StatusOK, map[string]any{"events": out})
}

// GetEvent returns one event with its ticket types.
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	event, err := h.eventService.Get(e.Request.Context(), eventID)
	if err != nil {
		return mapDomainError(err)
	}

	ticketTypes, err := h.inventoryService.TicketTypesForEvent(e.Request.Context(), eventID)
	if err != nil {
		return mapDomainError(err)
	}

	resp := eventResponse(event)
	resp["ticket_types"] = ticketTypes
	return e.JSON(http.StatusOK, resp)
}

// GetAvailability returns remaining units per ticket type. Served from
// the cache, so counts may lag the ledger by a few seconds.
func (h *EventHandler) GetAvailability(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	if _, err := h.eventService.Get(e.Request.Context(), eventID); err != nil {
		return mapDomainError(err)
	}

	availability, err := h.inventoryService.Availability(e.Request.Context(), eventID)
	if err != nil {
		return mapDomainError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":     eventID,
		"availability": availability,
	})
}

func eventResponse(event *core.Record) map[string]any {
	return map[string]any{
		"id":          event.Id,
		"name":        event.GetString("name"),
		"description": event.GetString("description"),
		"venue":       event.GetString("venue"),
		"status":      event.GetString("status"),
		"start_time":  event.GetString("start_time"),
		"end_time":    event.GetString("end_time"),
	}
}
