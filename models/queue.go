package models

import (
	"time"
)

// Hall identifies the dining area a party asked to be seated in.
type Hall string

const (
	HallAC   Hall = "AC"
	HallMain Hall = "Main"
	HallVIP  Hall = "VIP"
	HallAny  Hall = "Any"
)

func (h Hall) Valid() bool {
	switch h {
	case HallAC, HallMain, HallVIP, HallAny:
		return true
	}
	return false
}

// Segment is a named zone within a hall, used together with the hall
// and the party size as the matching dimension for queue positions.
type Segment string

const (
	SegmentFront  Segment = "Front"
	SegmentMiddle Segment = "Middle"
	SegmentBack   Segment = "Back"
	SegmentAny    Segment = "Any"
)

func (s Segment) Valid() bool {
	switch s {
	case SegmentFront, SegmentMiddle, SegmentBack, SegmentAny:
		return true
	}
	return false
}

// NotifyChannel is how the guest wants to be reached when their table
// is almost ready.
type NotifyChannel string

const (
	NotifySMS   NotifyChannel = "sms"
	NotifyEmail NotifyChannel = "email"
)

func (n NotifyChannel) Valid() bool {
	return n == NotifySMS || n == NotifyEmail
}

// TableInfo carries denormalized table fields copied from an upstream
// reservation lookup. Present only when the guest arrived through the
// reservation flow.
type TableInfo struct {
	Name     string `json:"name"`
	TableID  string `json:"table_id"`
	Location string `json:"location"`
	Segment  string `json:"segment"`
	Capacity int    `json:"capacity"`
}

type QueueEntry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Guests      int           `json:"guests"`
	Contact     string        `json:"contact"`
	NotifyVia   NotifyChannel `json:"notify_via"`
	Hall        Hall          `json:"hall"`
	Segment     Segment       `json:"segment"`
	Position    int           `json:"position"`
	WaitMinutes float64       `json:"wait_minutes"`
	JoinedAt    time.Time     `json:"joined_at"`
	ServiceDate string        `json:"service_date"` // YYYY-MM-DD
	TimeSlot    string        `json:"time_slot,omitempty"`
	ClaimCode   string        `json:"claim_code,omitempty"`
	Notified    bool          `json:"notified"`
	Table       *TableInfo    `json:"table,omitempty"`
}

// MatchesGroup reports whether the entry competes for the same tables
// as a party with the given size and seating preference.
func (e *QueueEntry) MatchesGroup(guests int, hall Hall, segment Segment) bool {
	return e.Guests == guests && e.Hall == hall && e.Segment == segment
}

type QueueMetrics struct {
	ServiceDate    string    `json:"service_date"`
	TotalWaiting   int       `json:"total_waiting"`
	NotifiedCount  int       `json:"notified_count"`
	AvgWaitMinutes string    `json:"avg_wait_minutes"`
	LastUpdated    time.Time `json:"last_updated"`
}
