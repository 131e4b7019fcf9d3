package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"waitline-system/config"
	"waitline-system/models"
)

// fakePersistence keeps the snapshot in memory, standing in for the
// Redis-backed Store.
type fakePersistence struct {
	mu      sync.Mutex
	entries map[string][]models.QueueEntry
	current *models.QueueEntry
	handoff *models.ReservationHandoff
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{entries: make(map[string][]models.QueueEntry)}
}

func (f *fakePersistence) SaveEntries(_ context.Context, date string, entries []models.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]models.QueueEntry, len(entries))
	copy(snapshot, entries)
	f.entries[date] = snapshot
	return nil
}

func (f *fakePersistence) LoadEntries(_ context.Context, date string) []models.QueueEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]models.QueueEntry, len(f.entries[date]))
	copy(snapshot, f.entries[date])
	return snapshot
}

func (f *fakePersistence) SaveCurrent(_ context.Context, entry *models.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.current = &copied
	return nil
}

func (f *fakePersistence) LoadCurrent(_ context.Context) *models.QueueEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	copied := *f.current
	return &copied
}

func (f *fakePersistence) ClearCurrent(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
	return nil
}

func (f *fakePersistence) SaveHandoff(_ context.Context, handoff *models.ReservationHandoff) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *handoff
	f.handoff = &copied
	return nil
}

func (f *fakePersistence) LoadHandoff(_ context.Context) *models.ReservationHandoff {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handoff == nil {
		return nil
	}
	copied := *f.handoff
	return &copied
}

func (f *fakePersistence) ClearHandoff(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handoff = nil
	return nil
}

// fakeBackend scripts the venue backend's behavior per operation.
type fakeBackend struct {
	mu sync.Mutex

	failList   bool
	failCreate bool
	failUpdate bool
	failCancel bool

	listResult  []models.QueueEntry
	createReply *models.QueueEntry

	// updateHook runs inside UpdateNotified, letting a test touch the
	// service while the notified flag is propagating.
	updateHook func()

	created     []models.QueueEntry
	updateCalls []string
	cancelCalls []string
}

var errBackendDown = errors.New("backend unreachable")

func (f *fakeBackend) ListEntries(_ context.Context, _ string) ([]models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errBackendDown
	}
	out := make([]models.QueueEntry, len(f.listResult))
	copy(out, f.listResult)
	return out, nil
}

func (f *fakeBackend) CreateEntry(_ context.Context, entry *models.QueueEntry) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errBackendDown
	}
	f.created = append(f.created, *entry)
	if f.createReply != nil {
		copied := *f.createReply
		return &copied, nil
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeBackend) UpdateNotified(_ context.Context, id string, _ bool) error {
	f.mu.Lock()
	hook := f.updateHook
	if f.failUpdate {
		f.mu.Unlock()
		return errBackendDown
	}
	f.updateCalls = append(f.updateCalls, id)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeBackend) CancelEntry(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCancel {
		return errBackendDown
	}
	f.cancelCalls = append(f.cancelCalls, id)
	return nil
}

func (f *fakeBackend) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updateCalls)
}

func testConfig() *config.Config {
	return &config.Config{
		VenueTimezone:   "UTC",
		PositionSlot:    15 * time.Minute,
		NotifyThreshold: 5 * time.Minute,
		// Long enough that the watcher never ticks on its own during a
		// test; ticks are driven manually.
		TickInterval: time.Hour,
	}
}

func setupTestQueueService(be *fakeBackend) (*QueueService, *fakePersistence) {
	store := newFakePersistence()
	service := NewQueueService(store, nil, be, testConfig(), nil)
	return service, store
}
