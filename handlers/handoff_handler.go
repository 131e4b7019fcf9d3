package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"waitline-system/models"
	"waitline-system/services"
)

type HandoffHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
}

func NewHandoffHandler(app *pocketbase.PocketBase, queueService *services.QueueService) *HandoffHandler {
	return &HandoffHandler{
		app:          app,
		queueService: queueService,
	}
}

// Stage - the reservation flow stages its prefill for the next join
func (h *HandoffHandler) Stage(e *core.RequestEvent) error {
	var req models.ReservationHandoff
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if req.QueueDate != "" {
		if _, err := time.Parse(services.DateLayout, req.QueueDate); err != nil {
			return apis.NewBadRequestError("Invalid queue date, want YYYY-MM-DD", err)
		}
	}

	if err := h.queueService.Handoff().Stage(e.Request.Context(), &req); err != nil {
		return apis.NewBadRequestError("Failed to stage handoff", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Handoff staged"})
}

// Peek - read the staged prefill without consuming it
func (h *HandoffHandler) Peek(e *core.RequestEvent) error {
	handoff := h.queueService.Handoff().Peek(e.Request.Context())
	if handoff.Empty() {
		return apis.NewNotFoundError("No staged handoff", nil)
	}

	return e.JSON(http.StatusOK, handoff)
}
