package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "wlk1nl0gc0llect",
			"name": "walkin_log",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "text3208210256",
					"name": "id",
					"type": "text",
					"system": true,
					"required": true,
					"primaryKey": true,
					"autogeneratePattern": "[a-z0-9]{15}",
					"pattern": "^[a-z0-9]+$",
					"min": 15,
					"max": 15
				},
				{
					"id": "select1204587666",
					"name": "action",
					"type": "select",
					"required": true,
					"maxSelect": 1,
					"values": [
						"join",
						"cancel",
						"notify"
					]
				},
				{
					"id": "text1579384326",
					"name": "entry_id",
					"type": "text",
					"required": true
				},
				{
					"id": "text2063623452",
					"name": "guest_name",
					"type": "text",
					"required": false
				},
				{
					"id": "number3479234172",
					"name": "guests",
					"type": "number",
					"required": false,
					"onlyInt": true
				},
				{
					"id": "text3709889147",
					"name": "service_date",
					"type": "text",
					"required": false
				},
				{
					"id": "select2462348188",
					"name": "sync_status",
					"type": "select",
					"required": false,
					"maxSelect": 1,
					"values": [
						"applied",
						"degraded"
					]
				},
				{
					"id": "autodate2990389176",
					"name": "created",
					"type": "autodate",
					"onCreate": true
				}
			],
			"indexes": [],
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("wlk1nl0gc0llect")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
