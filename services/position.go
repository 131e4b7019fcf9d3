package services

import (
	"waitline-system/models"
)

// NextPosition assigns the 1-based queue position for a new party:
// the count of existing entries competing for the same
// (guests, hall, segment) combination, plus one. The assignment is
// optimistic; the venue backend may reassign on create and its answer
// is adopted verbatim.
func NextPosition(entries []models.QueueEntry, guests int, hall models.Hall, segment models.Segment) int {
	count := 0
	for i := range entries {
		if entries[i].MatchesGroup(guests, hall, segment) {
			count++
		}
	}
	return count + 1
}
