package domain

import "time"

// ResourceKind distinguishes the two kinds of bookable resources.
type ResourceKind string

const (
	ResourceRoom         ResourceKind = "room"
	ResourcePhotographer ResourceKind = "photographer"
)

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	return k == ResourceRoom || k == ResourcePhotographer
}

// Role describes what an assigned resource does on the session.
type Role string

const (
	RoleLead       Role = "lead"
	RoleAssistant  Role = "assistant"
	RoleSpecialist Role = "specialist"
	RoleVenue      Role = "venue" // rooms
)

// AssignmentStatus tracks whether an assignment still holds its resource.
type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "active"
	AssignmentReassigned AssignmentStatus = "reassigned"
	AssignmentReleased   AssignmentStatus = "released"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// ResourceKey identifies one resource on one calendar day. Availability
// checks and assignment writes for the same key are serialized.
type ResourceKey struct {
	Kind       ResourceKind
	ResourceID string
	Date       time.Time
}

// String renders the key for lock maps and logs.
func (k ResourceKey) String() string {
	return string(k.Kind) + "/" + k.ResourceID + "/" + k.Date.Format(time.DateOnly)
}

// ResourceAssignment binds a room or photographer to a booking for a
// coverage interval, which may extend beyond the session window for travel.
type ResourceAssignment struct {
	ID           string
	BookingID    string
	ResourceKind ResourceKind
	ResourceID   string
	Role         Role
	Date         time.Time
	Coverage     Interval
	Attended     bool
	AttendedAt   *time.Time
	Status       AssignmentStatus
	AssignedBy   string
	AssignedAt   time.Time
}

// Key returns the lock key covering this assignment.
func (a ResourceAssignment) Key() ResourceKey {
	return ResourceKey{Kind: a.ResourceKind, ResourceID: a.ResourceID, Date: a.Date}
}
