package models

// ReservationHandoff is the staged record handed over from the upstream
// reservation flow. It prefills the join form once and is cleared as
// soon as a join consumes it.
type ReservationHandoff struct {
	QueueDate string     `json:"queue_date,omitempty"` // YYYY-MM-DD
	TimeSlot  string     `json:"time_slot,omitempty"`
	Guests    int        `json:"guests,omitempty"`
	Hall      Hall       `json:"hall,omitempty"`
	Segment   Segment    `json:"segment,omitempty"`
	Table     *TableInfo `json:"table,omitempty"`
}

// Empty reports whether the handoff carries nothing worth prefilling.
func (r *ReservationHandoff) Empty() bool {
	return r == nil || (r.QueueDate == "" && r.TimeSlot == "" && r.Guests == 0 &&
		r.Hall == "" && r.Segment == "" && r.Table == nil)
}
