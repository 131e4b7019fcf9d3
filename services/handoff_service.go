package services

import (
	"context"

	"waitline-system/models"
)

// HandoffService stages the reservation prefill handed over from the
// upstream booking flow. The record is consumed exactly once: the next
// join reads it and clears it.
type HandoffService struct {
	store Persistence
}

func NewHandoffService(store Persistence) *HandoffService {
	return &HandoffService{store: store}
}

// Stage replaces any previously staged handoff.
func (s *HandoffService) Stage(ctx context.Context, handoff *models.ReservationHandoff) error {
	return s.store.SaveHandoff(ctx, handoff)
}

// Peek returns the staged handoff without consuming it, or nil.
func (s *HandoffService) Peek(ctx context.Context) *models.ReservationHandoff {
	return s.store.LoadHandoff(ctx)
}

// Consume returns the staged handoff and clears it. Returns nil when
// nothing is staged or the stored record is unreadable.
func (s *HandoffService) Consume(ctx context.Context) *models.ReservationHandoff {
	handoff := s.store.LoadHandoff(ctx)
	if handoff == nil {
		return nil
	}
	_ = s.store.ClearHandoff(ctx)
	return handoff
}
