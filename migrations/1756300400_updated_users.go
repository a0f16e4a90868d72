package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.Add(
			&core.SelectField{
				Name:      "role",
				MaxSelect: 1,
				Values:    []string{"customer", "organizer", "admin"},
			},
			&core.SelectField{
				Name:      "account_status",
				MaxSelect: 1,
				Values:    []string{"active", "suspended", "deleted"},
			},
			&core.TextField{
				Name: "phone",
				Max:  50,
			},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.RemoveByName("role")
		collection.Fields.RemoveByName("account_status")
		collection.Fields.RemoveByName("phone")

		return app.Save(collection)
	})
}
