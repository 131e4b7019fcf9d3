package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pubnub "github.com/pubnub/go"
	"github.com/shopspring/decimal"

	"waitline-system/config"
	"waitline-system/internal/backend"
	"waitline-system/internal/status"
	"waitline-system/models"
	"waitline-system/monitoring"
	"waitline-system/utils"
)

// SyncStatus tells the caller whether an operation reached the venue
// backend or the waitline degraded to local-only bookkeeping. Remote
// failures are never surfaced as errors.
type SyncStatus string

const (
	SyncApplied  SyncStatus = "applied"
	SyncDegraded SyncStatus = "degraded"
)

type JoinRequest struct {
	Name      string               `json:"name"`
	Contact   string               `json:"contact"`
	Guests    int                  `json:"guests"`
	NotifyVia models.NotifyChannel `json:"notify_via"`
	Hall      models.Hall          `json:"hall"`
	Segment   models.Segment       `json:"segment"`
}

// QueueService is the waitline view-model: it holds the day's entry
// snapshot, assigns positions and wait estimates, runs the per-guest
// wait watcher and synchronizes optimistically with the venue backend.
type QueueService struct {
	PubNub  *pubnub.PubNub
	Backend backend.Service
	Config  *config.Config

	store   Persistence
	handoff *HandoffService
	monitor *monitoring.Monitor
	breaker *utils.CircuitBreaker
	loc     *time.Location

	// now is the clock; swapped out in tests.
	now func() time.Time

	mu      sync.Mutex
	date    string
	entries []models.QueueEntry
	current *models.QueueEntry
	latch   *notifyLatch
	watcher *waitWatcher
}

func NewQueueService(store Persistence, pn *pubnub.PubNub, backendSvc backend.Service, cfg *config.Config, monitor *monitoring.Monitor) *QueueService {
	return &QueueService{
		PubNub:  pn,
		Backend: backendSvc,
		Config:  cfg,
		store:   store,
		handoff: NewHandoffService(store),
		monitor: monitor,
		breaker: utils.NewCircuitBreaker("venue-backend"),
		loc:     cfg.Location(),
		now:     time.Now,
	}
}

// Handoff exposes the reservation handoff staging area.
func (s *QueueService) Handoff() *HandoffService {
	return s.handoff
}

// Start loads the persisted snapshot for today's service date,
// attempts a remote refresh and resumes the wait watcher when a
// current guest survives a restart.
func (s *QueueService) Start(ctx context.Context) SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.date = s.now().In(s.loc).Format(DateLayout)
	sync := s.refreshLocked(ctx)

	if current := s.store.LoadCurrent(ctx); current != nil && current.ServiceDate == s.date {
		s.current = current
		s.latch = newNotifyLatch(current.Notified)
		s.startWatcherLocked()
		slog.Info("waitline: resumed current guest", "id", current.ID, "position", current.Position)
	}

	return sync
}

// Stop tears the service down, cancelling the wait watcher.
func (s *QueueService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
}

// ServiceDate returns the active service date (YYYY-MM-DD).
func (s *QueueService) ServiceDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// SetServiceDate switches the active date and refetches the day's
// list, falling back to the local snapshot when the backend is down.
func (s *QueueService) SetServiceDate(ctx context.Context, date string) (SyncStatus, error) {
	if _, err := time.ParseInLocation(DateLayout, date, s.loc); err != nil {
		return SyncDegraded, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if date == s.date {
		return SyncApplied, nil
	}
	s.date = date
	return s.refreshLocked(ctx), nil
}

// Refresh refetches the whole day's list from the venue backend. On
// failure the local snapshot stays authoritative.
func (s *QueueService) Refresh(ctx context.Context) SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *QueueService) refreshLocked(ctx context.Context) SyncStatus {
	var fetched []models.QueueEntry
	err := s.breaker.Execute(ctx, func() error {
		var cerr error
		fetched, cerr = s.Backend.ListEntries(ctx, s.date)
		return cerr
	})
	if err != nil {
		slog.Warn("waitline: refresh degraded to local snapshot", "date", s.date, "err", err)
		s.trackBackendFailure("list")
		s.entries = s.store.LoadEntries(ctx, s.date)
		s.trackOperation("refresh", SyncDegraded)
		return SyncDegraded
	}

	s.entries = fetched
	if serr := s.store.SaveEntries(ctx, s.date, s.entries); serr != nil {
		slog.Warn("waitline: persist entries", "err", serr)
	}
	s.trackOperation("refresh", SyncApplied)
	return SyncApplied
}

// Join validates the form, builds the optimistic entry with its
// position and wait estimate at the submission instant, attempts the
// remote create and either adopts the server entry or keeps the local
// one. The staged reservation handoff is consumed either way.
func (s *QueueService) Join(ctx context.Context, req *JoinRequest) (*models.QueueEntry, SyncStatus, error) {
	name := strings.TrimSpace(req.Name)
	contact := strings.TrimSpace(req.Contact)
	if name == "" {
		return nil, SyncApplied, status.ErrNameRequired
	}
	if contact == "" {
		return nil, SyncApplied, status.ErrContactRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hd := s.handoff.Consume(ctx)

	guests := req.Guests
	hall := req.Hall
	segment := req.Segment
	notifyVia := req.NotifyVia
	timeSlot := ""
	var table *models.TableInfo

	if hd != nil {
		if guests <= 0 && hd.Guests > 0 {
			guests = hd.Guests
		}
		if hall == "" && hd.Hall != "" {
			hall = hd.Hall
		}
		if segment == "" && hd.Segment != "" {
			segment = hd.Segment
		}
		timeSlot = hd.TimeSlot
		table = hd.Table

		// A staged reservation may target a different service date.
		if hd.QueueDate != "" && hd.QueueDate != s.date {
			s.date = hd.QueueDate
			s.entries = s.store.LoadEntries(ctx, s.date)
		}
	}

	if hall == "" {
		hall = models.HallAny
	}
	if segment == "" {
		segment = models.SegmentAny
	}
	if notifyVia == "" {
		notifyVia = models.NotifySMS
	}

	if guests <= 0 {
		return nil, SyncApplied, status.ErrInvalidGuests
	}
	if !hall.Valid() {
		return nil, SyncApplied, status.ErrInvalidHall
	}
	if !segment.Valid() {
		return nil, SyncApplied, status.ErrInvalidSegment
	}
	if !notifyVia.Valid() {
		return nil, SyncApplied, status.ErrInvalidChannel
	}

	now := s.now().In(s.loc)
	claimCode, _ := utils.GenerateClaimCode(3)

	entry := &models.QueueEntry{
		ID:          uuid.NewString(),
		Name:        name,
		Guests:      guests,
		Contact:     contact,
		NotifyVia:   notifyVia,
		Hall:        hall,
		Segment:     segment,
		Position:    NextPosition(s.entries, guests, hall, segment),
		JoinedAt:    now,
		ServiceDate: s.date,
		TimeSlot:    timeSlot,
		ClaimCode:   claimCode,
		Table:       table,
	}
	entry.WaitMinutes = EstimateWait(entry, now, s.loc, s.Config.PositionSlot).Minutes()

	sync := SyncApplied
	var created *models.QueueEntry
	err := s.breaker.Execute(ctx, func() error {
		var cerr error
		created, cerr = s.Backend.CreateEntry(ctx, entry)
		return cerr
	})
	if err != nil {
		slog.Warn("waitline: join kept optimistic local entry", "id", entry.ID, "err", err)
		s.trackBackendFailure("create")
		sync = SyncDegraded
	} else if created != nil {
		// The backend may reassign id and position.
		if created.ClaimCode == "" {
			created.ClaimCode = entry.ClaimCode
		}
		entry = created
	}

	s.entries = append(s.entries, *entry)
	s.current = entry
	s.latch = newNotifyLatch(entry.Notified)

	if serr := s.store.SaveEntries(ctx, s.date, s.entries); serr != nil {
		slog.Warn("waitline: persist entries", "err", serr)
	}
	if serr := s.store.SaveCurrent(ctx, entry); serr != nil {
		slog.Warn("waitline: persist current entry", "err", serr)
	}

	s.startWatcherLocked()

	s.trackOperation("join", sync)
	if s.monitor != nil {
		s.monitor.TrackWaitEstimate(entry.WaitMinutes)
	}

	// The watcher keeps mutating the stored entry; hand back a copy.
	returned := *entry
	return &returned, sync, nil
}

// Cancel removes an entry. The remote cancel and the follow-up day
// refresh are both best-effort; when either fails the entry is removed
// from the local list directly. Current-guest state and the staged
// handoff are cleared only when the cancelled entry is the current
// guest's; removing another party leaves their countdown running.
func (s *QueueService) Cancel(ctx context.Context, id string) (SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		if s.current == nil {
			return SyncApplied, status.ErrNoCurrentEntry
		}
		id = s.current.ID
	}

	found := false
	for i := range s.entries {
		if s.entries[i].ID == id {
			found = true
			break
		}
	}
	if !found && (s.current == nil || s.current.ID != id) {
		return SyncApplied, status.ErrEntryNotFound
	}

	sync := SyncApplied

	cancelErr := s.breaker.Execute(ctx, func() error {
		return s.Backend.CancelEntry(ctx, id)
	})
	if cancelErr != nil {
		s.trackBackendFailure("cancel")
	}

	var refreshed []models.QueueEntry
	refreshErr := s.breaker.Execute(ctx, func() error {
		var rerr error
		refreshed, rerr = s.Backend.ListEntries(ctx, s.date)
		return rerr
	})
	if refreshErr != nil {
		s.trackBackendFailure("list")
	}

	if cancelErr == nil && refreshErr == nil {
		s.entries = refreshed
	} else {
		sync = SyncDegraded
		kept := s.entries[:0]
		for i := range s.entries {
			if s.entries[i].ID != id {
				kept = append(kept, s.entries[i])
			}
		}
		s.entries = kept
	}

	if serr := s.store.SaveEntries(ctx, s.date, s.entries); serr != nil {
		slog.Warn("waitline: persist entries", "err", serr)
	}

	if s.current != nil && s.current.ID == id {
		s.clearCurrentLocked(ctx)
		if serr := s.store.ClearHandoff(ctx); serr != nil {
			slog.Warn("waitline: clear handoff", "err", serr)
		}
	}

	s.trackOperation("cancel", sync)
	return sync, nil
}

func (s *QueueService) clearCurrentLocked(ctx context.Context) {
	s.current = nil
	s.latch = nil
	s.stopWatcherLocked()
	if err := s.store.ClearCurrent(ctx); err != nil {
		slog.Warn("waitline: clear current entry", "err", err)
	}
}

// Entries returns a snapshot of the day's list.
func (s *QueueService) Entries() []models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.QueueEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Current returns a copy of the current guest's entry, or nil.
func (s *QueueService) Current() *models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	entry := *s.current
	return &entry
}

// Metrics aggregates the day's waitline. The average wait is computed
// with decimals and rounded to one decimal place.
func (s *QueueService) Metrics() *models.QueueMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.entries)
	notified := 0
	sum := decimal.Zero
	for i := range s.entries {
		if s.entries[i].Notified {
			notified++
		}
		sum = sum.Add(decimal.NewFromFloat(s.entries[i].WaitMinutes))
	}

	avg := decimal.Zero
	if total > 0 {
		avg = sum.Div(decimal.NewFromInt(int64(total))).Round(1)
	}

	return &models.QueueMetrics{
		ServiceDate:    s.date,
		TotalWaiting:   total,
		NotifiedCount:  notified,
		AvgWaitMinutes: avg.String(),
		LastUpdated:    s.now(),
	}
}

func (s *QueueService) trackOperation(operation string, sync SyncStatus) {
	if s.monitor != nil {
		s.monitor.TrackOperation(operation, string(sync))
	}
}

func (s *QueueService) trackBackendFailure(operation string) {
	if s.monitor != nil {
		s.monitor.TrackBackendFailure(operation)
	}
}
