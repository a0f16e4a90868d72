package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		orders, err := app.FindCollectionByNameOrId("orders")
		if err != nil {
			return err
		}
		ticketTypes, err := app.FindCollectionByNameOrId("ticket_types")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "order_id",
				Required:      true,
				CollectionId:  orders.Id,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.RelationField{
				Name:          "ticket_type_id",
				Required:      true,
				CollectionId:  ticketTypes.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.RelationField{
				Name:          "event_id",
				Required:      true,
				CollectionId:  events.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.TextField{
				Name:     "unique_code",
				Required: true,
				Max:      50,
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"available", "reserved", "active", "used", "cancelled", "expired", "refunded", "blocked"},
			},
			&core.TextField{
				Name: "holder_name",
				Max:  255,
			},
			&core.TextField{
				Name: "holder_email",
				Max:  255,
			},
			&core.TextField{
				Name: "holder_phone",
				Max:  50,
			},
			&core.TextField{
				Name: "seat_number",
				Max:  20,
			},
			&core.DateField{
				Name: "checked_in_at",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_tickets_code", true, "unique_code", "")
		collection.AddIndex("idx_tickets_order", false, "order_id", "")
		collection.AddIndex("idx_tickets_event_status", false, "event_id, status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
