package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitline-system/internal/status"
	"waitline-system/models"
)

func TestNotifyLatch_SingleTransition(t *testing.T) {
	latch := newNotifyLatch(false)

	assert.True(t, latch.Fire())
	assert.False(t, latch.Fire())
	assert.False(t, latch.Fire())
}

func TestNotifyLatch_AlreadyNotified(t *testing.T) {
	latch := newNotifyLatch(true)
	assert.False(t, latch.Fire())
}

// joinWithSlot stages a reservation slot and joins at the given
// instant, pinning the service clock first.
func joinWithSlot(t *testing.T, service *QueueService, slot string, at time.Time) *models.QueueEntry {
	t.Helper()
	ctx := context.Background()

	service.now = func() time.Time { return at }
	service.Start(ctx)

	require.NoError(t, service.Handoff().Stage(ctx, &models.ReservationHandoff{TimeSlot: slot}))

	entry, _, err := service.Join(ctx, &JoinRequest{
		Name: "Ada", Contact: "555-0100", Guests: 2,
	})
	require.NoError(t, err)
	return entry
}

func TestTick_FiresOnceInsideThreshold(t *testing.T) {
	be := &fakeBackend{}
	service, _ := setupTestQueueService(be)
	defer service.Stop()

	joined := time.Date(2025, 7, 4, 17, 45, 0, 0, time.UTC)
	entry := joinWithSlot(t, service, "6:00 PM – 6:30 PM", joined)
	assert.InDelta(t, 15.0, entry.WaitMinutes, 0.001)

	ctx := context.Background()

	// Still outside the window: nothing fires.
	service.now = func() time.Time { return joined.Add(5 * time.Minute) }
	service.tick(ctx)
	assert.False(t, service.Current().Notified)
	assert.Equal(t, 0, be.updateCount())

	// 4 minutes out: the one-shot notice fires.
	service.now = func() time.Time { return joined.Add(11 * time.Minute) }
	service.tick(ctx)

	current := service.Current()
	require.NotNil(t, current)
	assert.True(t, current.Notified)
	assert.InDelta(t, 4.0, current.WaitMinutes, 0.001)
	assert.Equal(t, 1, be.updateCount())

	// Repeated ticks inside the window do not re-fire.
	service.now = func() time.Time { return joined.Add(12 * time.Minute) }
	service.tick(ctx)
	service.tick(ctx)
	assert.Equal(t, 1, be.updateCount())
}

func TestTick_ZeroWaitDoesNotFire(t *testing.T) {
	be := &fakeBackend{}
	service, _ := setupTestQueueService(be)
	defer service.Stop()

	joined := time.Date(2025, 7, 4, 17, 45, 0, 0, time.UTC)
	joinWithSlot(t, service, "6:00 PM – 6:30 PM", joined)

	// The clock jumps straight past the window start; the estimate is
	// exactly zero, which means "table ready now", not "almost ready".
	service.now = func() time.Time { return joined.Add(time.Hour) }
	service.tick(context.Background())

	current := service.Current()
	require.NotNil(t, current)
	assert.False(t, current.Notified)
	assert.Zero(t, current.WaitMinutes)
	assert.Equal(t, 0, be.updateCount())
}

func TestTick_FlagSticksWhenBackendUpdateFails(t *testing.T) {
	be := &fakeBackend{failUpdate: true}
	service, store := setupTestQueueService(be)
	defer service.Stop()

	joined := time.Date(2025, 7, 4, 17, 45, 0, 0, time.UTC)
	joinWithSlot(t, service, "6:00 PM – 6:30 PM", joined)

	service.now = func() time.Time { return joined.Add(11 * time.Minute) }
	service.tick(context.Background())

	// The remote update failed but the local flag stays set and
	// persisted.
	current := service.Current()
	require.NotNil(t, current)
	assert.True(t, current.Notified)

	persisted := store.LoadCurrent(context.Background())
	require.NotNil(t, persisted)
	assert.True(t, persisted.Notified)
}

func TestTick_PositionFallbackCountdown(t *testing.T) {
	be := &fakeBackend{failList: true, failCreate: true}
	service, _ := setupTestQueueService(be)
	defer service.Stop()

	ctx := context.Background()
	joined := time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return joined }
	service.Start(ctx)

	entry, _, err := service.Join(ctx, &JoinRequest{
		Name: "Ada", Contact: "555-0100", Guests: 2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 15.0, entry.WaitMinutes, 0.001)

	service.now = func() time.Time { return joined.Add(10 * time.Minute) }
	service.tick(ctx)

	current := service.Current()
	require.NotNil(t, current)
	assert.InDelta(t, 5.0, current.WaitMinutes, 0.001)
	// 5 minutes is inside (0, 5]: the notice fires on this tick.
	assert.True(t, current.Notified)
}

func TestTick_ReleasesLockDuringPropagation(t *testing.T) {
	be := &fakeBackend{}
	service, _ := setupTestQueueService(be)
	defer service.Stop()

	joined := time.Date(2025, 7, 4, 17, 45, 0, 0, time.UTC)
	joinWithSlot(t, service, "6:00 PM – 6:30 PM", joined)

	// Reading the queue while the notified flag propagates to the
	// backend must not block behind the service mutex.
	be.updateHook = func() {
		assert.Len(t, service.Entries(), 1)
		current := service.Current()
		if assert.NotNil(t, current) {
			assert.True(t, current.Notified)
		}
	}

	service.now = func() time.Time { return joined.Add(11 * time.Minute) }
	service.tick(context.Background())

	assert.Equal(t, 1, be.updateCount())
}

func TestForceNotify(t *testing.T) {
	be := &fakeBackend{}
	service, _ := setupTestQueueService(be)
	defer service.Stop()

	ctx := context.Background()
	service.Start(ctx)

	entry, _, err := service.Join(ctx, &JoinRequest{
		Name: "Ada", Contact: "555-0100", Guests: 2,
	})
	require.NoError(t, err)

	fired, err := service.ForceNotify(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 1, be.updateCount())

	// Second notice is a no-op, and the watcher cannot re-fire either.
	fired, err = service.ForceNotify(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, fired)

	service.tick(ctx)
	assert.Equal(t, 1, be.updateCount())

	_, err = service.ForceNotify(ctx, "nope")
	assert.ErrorIs(t, err, status.ErrEntryNotFound)
}

func TestCancelStopsWatcher(t *testing.T) {
	be := &fakeBackend{}
	service, _ := setupTestQueueService(be)
	defer service.Stop()

	ctx := context.Background()
	service.Start(ctx)

	entry, _, err := service.Join(ctx, &JoinRequest{
		Name: "Ada", Contact: "555-0100", Guests: 2,
	})
	require.NoError(t, err)

	service.mu.Lock()
	running := service.watcher != nil
	service.mu.Unlock()
	assert.True(t, running)

	_, err = service.Cancel(ctx, entry.ID)
	require.NoError(t, err)

	service.mu.Lock()
	running = service.watcher != nil
	service.mu.Unlock()
	assert.False(t, running)

	// A stray tick after cancellation is a no-op.
	service.tick(ctx)
	assert.Nil(t, service.Current())
}
