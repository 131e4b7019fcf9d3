package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"waitline-system/internal/status"
	"waitline-system/models"
)

// notifyLatch is the one-shot notification state machine. Two states,
// pending and notified, with a single allowed transition; repeated
// ticks inside the threshold window cannot re-fire the alert.
type notifyLatch struct {
	mu    sync.Mutex
	fired bool
}

func newNotifyLatch(alreadyNotified bool) *notifyLatch {
	return &notifyLatch{fired: alreadyNotified}
}

// Fire performs the pending -> notified transition. It reports true
// exactly once.
func (l *notifyLatch) Fire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fired {
		return false
	}
	l.fired = true
	return true
}

// waitWatcher is the recurring recomputation loop for the current
// guest. One goroutine, cancelled whenever the current entry is
// cleared or the service shuts down.
type waitWatcher struct {
	stop chan struct{}
}

func (s *QueueService) startWatcherLocked() {
	s.stopWatcherLocked()

	w := &waitWatcher{stop: make(chan struct{})}
	s.watcher = w
	go s.runWatcher(w)
}

func (s *QueueService) stopWatcherLocked() {
	if s.watcher != nil {
		close(s.watcher.stop)
		s.watcher = nil
	}
}

func (s *QueueService) runWatcher(w *waitWatcher) {
	ticker := time.NewTicker(s.Config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			s.tick(context.Background())
		}
	}
}

// tick recomputes the current guest's estimated wait against the wall
// clock, pushes the countdown to their channel and fires the one-shot
// almost-ready notice when the estimate first enters the threshold
// window. State changes happen under the mutex; publishes, the remote
// flag update and persistence run after it is released so a slow
// network hop never stalls Join/Cancel/Entries.
func (s *QueueService) tick(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}

	now := s.now().In(s.loc)
	wait := EstimateWait(s.current, now, s.loc, s.Config.PositionSlot)
	waitMinutes := wait.Minutes()
	s.current.WaitMinutes = waitMinutes
	s.updateEntryLocked(s.current.ID, func(e *models.QueueEntry) {
		e.WaitMinutes = waitMinutes
	})

	id := s.current.ID
	position := s.current.Position
	fired := wait > 0 && wait <= s.Config.NotifyThreshold && s.latch != nil && s.latch.Fire()
	if fired {
		s.markNotifiedLocked(id)
	}

	current := *s.current
	date := s.date
	var entries []models.QueueEntry
	if fired {
		entries = make([]models.QueueEntry, len(s.entries))
		copy(entries, s.entries)
	}
	s.mu.Unlock()

	s.publish(guestChannel(id), map[string]any{
		"type":         "wait_update",
		"wait_minutes": waitMinutes,
		"position":     position,
		"ready":        wait == 0,
	})

	if fired {
		s.propagateNotification(ctx, id, date, entries)
	}

	if err := s.store.SaveCurrent(ctx, &current); err != nil {
		slog.Warn("waitline: persist current entry", "err", err)
	}
}

// markNotifiedLocked sets the permanent notified flag on the current
// entry and the day list. Caller holds s.mu.
func (s *QueueService) markNotifiedLocked(id string) {
	if s.current != nil && s.current.ID == id {
		s.current.Notified = true
	}
	s.updateEntryLocked(id, func(e *models.QueueEntry) {
		e.Notified = true
	})
}

// propagateNotification alerts the guest and pushes the notified flag
// to the venue backend best-effort; a failed remote update is
// swallowed. Runs without s.mu held.
func (s *QueueService) propagateNotification(ctx context.Context, id, date string, entries []models.QueueEntry) {
	s.publish(guestChannel(id), map[string]any{
		"type":    "table_almost_ready",
		"message": "Your table is almost ready",
	})

	if s.monitor != nil {
		s.monitor.TrackNotification()
	}

	err := s.breaker.Execute(ctx, func() error {
		return s.Backend.UpdateNotified(ctx, id, true)
	})
	if err != nil {
		slog.Warn("waitline: notified flag kept local", "id", id, "err", err)
		s.trackBackendFailure("update")
	}

	if serr := s.store.SaveEntries(ctx, date, entries); serr != nil {
		slog.Warn("waitline: persist entries", "err", serr)
	}
}

// ForceNotify lets the host stand fire the almost-ready notice for any
// entry ahead of its estimate. Returns false when the notice already
// fired.
func (s *QueueService) ForceNotify(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()

	var target *models.QueueEntry
	for i := range s.entries {
		if s.entries[i].ID == id {
			target = &s.entries[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return false, status.ErrEntryNotFound
	}
	if target.Notified {
		s.mu.Unlock()
		return false, nil
	}

	if s.current != nil && s.current.ID == id && s.latch != nil {
		// Keep the watcher from firing a duplicate.
		s.latch.Fire()
	}

	s.markNotifiedLocked(id)

	date := s.date
	entries := make([]models.QueueEntry, len(s.entries))
	copy(entries, s.entries)
	var current *models.QueueEntry
	if s.current != nil && s.current.ID == id {
		copied := *s.current
		current = &copied
	}
	s.mu.Unlock()

	s.propagateNotification(ctx, id, date, entries)

	if current != nil {
		if serr := s.store.SaveCurrent(ctx, current); serr != nil {
			slog.Warn("waitline: persist current entry", "err", serr)
		}
	}

	return true, nil
}

func (s *QueueService) updateEntryLocked(id string, apply func(*models.QueueEntry)) {
	for i := range s.entries {
		if s.entries[i].ID == id {
			apply(&s.entries[i])
			return
		}
	}
}

func (s *QueueService) publish(channel string, msg map[string]any) {
	if s.PubNub == nil {
		return
	}
	s.PubNub.Publish().
		Channel(channel).
		Message(msg).
		Execute()
}

func guestChannel(id string) string {
	return fmt.Sprintf("guest-%s", id)
}
