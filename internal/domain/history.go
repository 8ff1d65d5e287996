package domain

import "time"

// StatusHistoryEntry is one row of the append-only audit trail.
type StatusHistoryEntry struct {
	BookingID string
	From      Status // empty for the creation entry
	To        Status
	ActorID   string
	Reason    string
	Override  bool
	ChangedAt time.Time
}

// ReplayStatus derives the current status from an ordered history.
// It returns false for an empty history.
func ReplayStatus(entries []StatusHistoryEntry) (Status, bool) {
	if len(entries) == 0 {
		return "", false
	}
	return entries[len(entries)-1].To, true
}
