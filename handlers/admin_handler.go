package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"waitline-system/config"
	"waitline-system/internal/status"
	"waitline-system/services"
)

// AdminHandler serves the host stand: the whole day's waitline, manual
// almost-ready notices and removals. Access is guarded by a bearer
// token compared against a bcrypt hash from config.
type AdminHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
	cfg          *config.Config
}

func NewAdminHandler(app *pocketbase.PocketBase, queueService *services.QueueService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		app:          app,
		queueService: queueService,
		cfg:          cfg,
	}
}

func (h *AdminHandler) requireHostToken(e *core.RequestEvent) error {
	if h.cfg.AdminTokenHash == "" {
		return apis.NewUnauthorizedError("Host stand access not configured", nil)
	}

	token := strings.TrimPrefix(e.Request.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		return apis.NewUnauthorizedError("Host token required", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminTokenHash), []byte(token)); err != nil {
		return apis.NewUnauthorizedError("Invalid host token", nil)
	}

	return nil
}

// Waitline - full day view for the host stand
func (h *AdminHandler) Waitline(e *core.RequestEvent) error {
	if err := h.requireHostToken(e); err != nil {
		return err
	}

	return e.JSON(http.StatusOK, map[string]any{
		"date":    h.queueService.ServiceDate(),
		"entries": h.queueService.Entries(),
		"metrics": h.queueService.Metrics(),
	})
}

// Notify - fire the almost-ready notice for a party ahead of its
// estimate
func (h *AdminHandler) Notify(e *core.RequestEvent) error {
	if err := h.requireHostToken(e); err != nil {
		return err
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := e.BindBody(&req); err != nil || req.ID == "" {
		return apis.NewBadRequestError("Entry id required", err)
	}

	fired, err := h.queueService.ForceNotify(e.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, status.ErrEntryNotFound) {
			return apis.NewNotFoundError("Entry not found", err)
		}
		return apis.NewBadRequestError("Failed to notify", err)
	}

	if fired {
		logWalkin(h.app, "notify", req.ID, "", 0, h.queueService.ServiceDate(), string(services.SyncApplied))
	}

	return e.JSON(http.StatusOK, map[string]any{"fired": fired})
}

// Remove - drop a party from the waitline on the host's behalf
func (h *AdminHandler) Remove(e *core.RequestEvent) error {
	if err := h.requireHostToken(e); err != nil {
		return err
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := e.BindBody(&req); err != nil || req.ID == "" {
		return apis.NewBadRequestError("Entry id required", err)
	}

	sync, err := h.queueService.Cancel(e.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, status.ErrEntryNotFound) {
			return apis.NewNotFoundError("Entry not found", err)
		}
		return apis.NewBadRequestError("Failed to remove", err)
	}

	logWalkin(h.app, "cancel", req.ID, "", 0, h.queueService.ServiceDate(), string(sync))

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Removed from waitline",
		"sync":    sync,
	})
}
