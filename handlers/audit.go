package handlers

import (
	"log/slog"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// logWalkin appends a row to the local walkin_log collection so the
// house keeps a record of joins and cancellations even when the venue
// backend was unreachable. Best-effort.
func logWalkin(app *pocketbase.PocketBase, action, entryID, guestName string, guests int, serviceDate, syncStatus string) {
	collection, err := app.FindCollectionByNameOrId("walkin_log")
	if err != nil {
		slog.Warn("walkin log: collection missing", "err", err)
		return
	}

	record := core.NewRecord(collection)
	record.Set("action", action)
	record.Set("entry_id", entryID)
	record.Set("guest_name", guestName)
	record.Set("guests", guests)
	record.Set("service_date", serviceDate)
	record.Set("sync_status", syncStatus)

	if err := app.Save(record); err != nil {
		slog.Warn("walkin log: save", "action", action, "err", err)
	}
}
