package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("orders")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "customer_id",
				CollectionId:  users.Id,
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
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "paid", "cancelled", "refunded"},
			},
			&core.JSONField{
				Name:    "items",
				MaxSize: 100000,
			},
			&core.NumberField{
				Name: "total",
				Min:  types.Pointer(0.0),
			},
			&core.TextField{
				Name: "purchaser_name",
				Max:  255,
			},
			&core.TextField{
				Name: "purchaser_email",
				Max:  255,
			},
			&core.TextField{
				Name: "purchaser_phone",
				Max:  50,
			},
			&core.DateField{
				Name: "expires_at",
			},
			&core.DateField{
				Name: "paid_at",
			},
			&core.DateField{
				Name: "cancelled_at",
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

		collection.AddIndex("idx_orders_customer", false, "customer_id", "")
		collection.AddIndex("idx_orders_status_expires", false, "status, expires_at", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("orders")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
