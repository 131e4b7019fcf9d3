package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"waitline-system/internal/status"
	"waitline-system/services"
)

type QueueHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
}

func NewQueueHandler(app *pocketbase.PocketBase, queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		app:          app,
		queueService: queueService,
	}
}

// Join - walk-in guest joins the waitline
func (h *QueueHandler) Join(e *core.RequestEvent) error {
	var req services.JoinRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, sync, err := h.queueService.Join(e.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrNameRequired),
			errors.Is(err, status.ErrContactRequired),
			errors.Is(err, status.ErrInvalidGuests),
			errors.Is(err, status.ErrInvalidHall),
			errors.Is(err, status.ErrInvalidSegment),
			errors.Is(err, status.ErrInvalidChannel):
			return apis.NewBadRequestError(err.Error(), nil)
		default:
			return apis.NewBadRequestError("Failed to join waitline", err)
		}
	}

	logWalkin(h.app, "join", entry.ID, entry.Name, entry.Guests, entry.ServiceDate, string(sync))

	return e.JSON(http.StatusOK, map[string]any{
		"entry": entry,
		"sync":  sync,
	})
}

// Current - the current guest's entry with its live wait estimate
func (h *QueueHandler) Current(e *core.RequestEvent) error {
	entry := h.queueService.Current()
	if entry == nil {
		return apis.NewNotFoundError("Not in the waitline", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"entry": entry})
}

// Entries - the day's waitline; an optional date switches the active
// service date and refetches
func (h *QueueHandler) Entries(e *core.RequestEvent) error {
	sync := services.SyncApplied

	if date := e.Request.URL.Query().Get("date"); date != "" {
		var err error
		sync, err = h.queueService.SetServiceDate(e.Request.Context(), date)
		if err != nil {
			return apis.NewBadRequestError("Invalid date, want YYYY-MM-DD", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"date":    h.queueService.ServiceDate(),
		"entries": h.queueService.Entries(),
		"sync":    sync,
	})
}

// Cancel - leave the waitline; requires explicit confirmation
func (h *QueueHandler) Cancel(e *core.RequestEvent) error {
	var req struct {
		ID      string `json:"id"`
		Confirm bool   `json:"confirm"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if !req.Confirm {
		return apis.NewBadRequestError("Cancellation requires confirmation", nil)
	}

	sync, err := h.queueService.Cancel(e.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, status.ErrEntryNotFound) || errors.Is(err, status.ErrNoCurrentEntry) {
			return apis.NewNotFoundError("Entry not found", err)
		}
		return apis.NewBadRequestError("Failed to cancel", err)
	}

	logWalkin(h.app, "cancel", req.ID, "", 0, h.queueService.ServiceDate(), string(sync))

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Removed from waitline",
		"sync":    sync,
	})
}

// Metrics - day-level waitline aggregates
func (h *QueueHandler) Metrics(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, h.queueService.Metrics())
}
