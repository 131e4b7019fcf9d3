package migrations

import (
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		// The host stand filters the log by day and by entry.
		var db dbx.Builder = app.DB()

		if _, err := db.NewQuery(
			"CREATE INDEX IF NOT EXISTS idx_walkin_log_service_date ON walkin_log (service_date)",
		).Execute(); err != nil {
			return err
		}

		_, err := db.NewQuery(
			"CREATE INDEX IF NOT EXISTS idx_walkin_log_entry_id ON walkin_log (entry_id)",
		).Execute()
		return err
	}, func(app core.App) error {
		var db dbx.Builder = app.DB()

		if _, err := db.NewQuery("DROP INDEX IF EXISTS idx_walkin_log_service_date").Execute(); err != nil {
			return err
		}

		_, err := db.NewQuery("DROP INDEX IF EXISTS idx_walkin_log_entry_id").Execute()
		return err
	})
}
