package services

import (
	"testing"

	"ticketmarket/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/require"
)

// setupTestApp boots an isolated app instance carrying the collections
// the services operate on. Relation columns are plain text here; the
// services only ever read them back as strings.
func setupTestApp(t *testing.T) *tests.TestApp {
	app, err := tests.NewTestApp()
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	events := core.NewBaseCollection("events")
	events.Fields.Add(
		&core.TextField{Name: "name"},
		&core.TextField{Name: "venue"},
		&core.TextField{Name: "organizer_id"},
		&core.SelectField{Name: "status", MaxSelect: 1, Values: []string{"draft", "published", "unpublished", "ended", "cancelled", "rejected"}},
		&core.DateField{Name: "start_time"},
		&core.DateField{Name: "end_time"},
		&core.DateField{Name: "release_date"},
	)
	require.NoError(t, app.Save(events))

	ticketTypes := core.NewBaseCollection("ticket_types")
	ticketTypes.Fields.Add(
		&core.TextField{Name: "event_id"},
		&core.TextField{Name: "name"},
		&core.NumberField{Name: "price"},
		&core.NumberField{Name: "initial_quantity", OnlyInt: true},
		&core.NumberField{Name: "sold_quantity", OnlyInt: true},
		&core.NumberField{Name: "min_per_order", OnlyInt: true},
		&core.NumberField{Name: "max_per_order", OnlyInt: true},
	)
	require.NoError(t, app.Save(ticketTypes))

	orders := core.NewBaseCollection("orders")
	orders.Fields.Add(
		&core.TextField{Name: "customer_id"},
		&core.TextField{Name: "event_id"},
		&core.SelectField{Name: "status", MaxSelect: 1, Values: []string{"pending", "paid", "cancelled", "refunded"}},
		&core.JSONField{Name: "items", MaxSize: 100000},
		&core.NumberField{Name: "total"},
		&core.TextField{Name: "purchaser_name"},
		&core.TextField{Name: "purchaser_email"},
		&core.TextField{Name: "purchaser_phone"},
		&core.DateField{Name: "expires_at"},
		&core.DateField{Name: "paid_at"},
		&core.DateField{Name: "cancelled_at"},
	)
	require.NoError(t, app.Save(orders))

	tickets := core.NewBaseCollection("tickets")
	tickets.Fields.Add(
		&core.TextField{Name: "order_id"},
		&core.TextField{Name: "ticket_type_id"},
		&core.TextField{Name: "event_id"},
		&core.TextField{Name: "unique_code"},
		&core.SelectField{Name: "status", MaxSelect: 1, Values: []string{"available", "reserved", "active", "used", "cancelled", "expired", "refunded", "blocked"}},
		&core.TextField{Name: "holder_name"},
		&core.TextField{Name: "holder_email"},
		&core.TextField{Name: "holder_phone"},
		&core.TextField{Name: "seat_number"},
		&core.DateField{Name: "checked_in_at"},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	tickets.AddIndex("idx_test_tickets_code", true, "unique_code", "")
	require.NoError(t, app.Save(tickets))

	return app
}

func seedEvent(t *testing.T, app core.App, eventStatus models.EventStatus) *core.Record {
	collection, err := app.FindCollectionByNameOrId("events")
	require.NoError(t, err)

	event := core.NewRecord(collection)
	event.Set("name", "Summer Fest")
	event.Set("venue", "Riverside Arena")
	event.Set("organizer_id", "org1")
	event.Set("status", string(eventStatus))
	require.NoError(t, app.Save(event))
	return event
}

func seedTicketType(t *testing.T, app core.App, eventID string, price float64, initial, sold int) *core.Record {
	collection, err := app.FindCollectionByNameOrId("ticket_types")
	require.NoError(t, err)

	tt := core.NewRecord(collection)
	tt.Set("event_id", eventID)
	tt.Set("name", "General Admission")
	tt.Set("price", price)
	tt.Set("initial_quantity", initial)
	tt.Set("sold_quantity", sold)
	require.NoError(t, app.Save(tt))
	return tt
}

func seedTicket(t *testing.T, app core.App, eventID, orderID, code string, ticketStatus models.TicketStatus) *core.Record {
	collection, err := app.FindCollectionByNameOrId("tickets")
	require.NoError(t, err)

	ticket := core.NewRecord(collection)
	ticket.Set("event_id", eventID)
	ticket.Set("order_id", orderID)
	ticket.Set("ticket_type_id", "tt1")
	ticket.Set("unique_code", code)
	ticket.Set("status", string(ticketStatus))
	require.NoError(t, app.Save(ticket))
	return ticket
}

func soldQuantity(t *testing.T, app core.App, ticketTypeID string) int {
	tt, err := app.FindRecordById("ticket_types", ticketTypeID)
	require.NoError(t, err)
	return tt.GetInt("sold_quantity")
}

func ticketStatus(t *testing.T, app core.App, ticketID string) string {
	ticket, err := app.FindRecordById("tickets", ticketID)
	require.NoError(t, err)
	return ticket.GetString("status")
}
