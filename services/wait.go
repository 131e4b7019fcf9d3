package services

import (
	"fmt"
	"strings"
	"time"

	"waitline-system/models"
)

// DateLayout is the wire format for service dates.
const DateLayout = "2006-01-02"

const slotTimeLayout = "3:04 PM"

// ParseTimeSlot parses a published reservation window such as
// "6:00 PM – 6:30 PM" into start/end instants on the given service day.
// Both the plain dash and the en-dash separator are accepted and the
// AM/PM markers are case-insensitive. Any malformed slot is an error;
// callers treat that as "no slot".
func ParseTimeSlot(slot string, day time.Time, loc *time.Location) (start, end time.Time, err error) {
	normalized := strings.ReplaceAll(slot, "–", "-")
	parts := strings.Split(normalized, "-")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("parseTimeSlot: %q: missing separator", slot)
	}

	start, err = parseSlotTime(parts[0], day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parseTimeSlot: %q: %w", slot, err)
	}
	end, err = parseSlotTime(parts[1], day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parseTimeSlot: %q: %w", slot, err)
	}

	return start, end, nil
}

func parseSlotTime(token string, day time.Time, loc *time.Location) (time.Time, error) {
	tod, err := time.Parse(slotTimeLayout, strings.ToUpper(strings.TrimSpace(token)))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// SlotWait is the time left until a reservation window opens. Zero once
// the window has started.
func SlotWait(start, now time.Time) time.Duration {
	if wait := start.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// PositionWait is the coarse fallback estimate: perPosition minutes for
// every party ahead, minus the time already spent waiting. Never
// negative.
func PositionWait(position int, joinedAt, now time.Time, perPosition time.Duration) time.Duration {
	wait := time.Duration(position)*perPosition - now.Sub(joinedAt)
	if wait < 0 {
		return 0
	}
	return wait
}

// EstimateWait computes the entry's estimated wait at the given instant.
// A well-formed time slot wins; otherwise the position-based fallback is
// used. A zero result means the table is expected ready now.
func EstimateWait(entry *models.QueueEntry, now time.Time, loc *time.Location, perPosition time.Duration) time.Duration {
	if entry.TimeSlot != "" {
		day, err := time.ParseInLocation(DateLayout, entry.ServiceDate, loc)
		if err != nil {
			day = now.In(loc)
		}
		if start, _, err := ParseTimeSlot(entry.TimeSlot, day, loc); err == nil {
			return SlotWait(start, now)
		}
	}
	return PositionWait(entry.Position, entry.JoinedAt, now, perPosition)
}
