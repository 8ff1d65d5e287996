package domain

import (
	"context"
	"time"
)

// BookingRepository defines the persistence contract for bookings.
//
// Save must be atomic: the booking row (checked against ExpectedVersion),
// its children and the history entries are written together or not at all.
// On a version mismatch it returns ErrVersionConflict. Implementations
// backed by a database should also refuse to store an active assignment that
// overlaps another active one for the same resource and date, returning a
// *ResourceConflictError.
type BookingRepository interface {
	Create(ctx context.Context, booking Booking, entry StatusHistoryEntry) error
	Get(ctx context.Context, id string) (Booking, error)
	List(ctx context.Context, filter ListFilter) ([]Booking, error)
	Save(ctx context.Context, change Change) error
	ActiveAssignments(ctx context.Context, key ResourceKey) ([]ResourceAssignment, error)
	History(ctx context.Context, bookingID string) ([]StatusHistoryEntry, error)
}

// Change is one atomic write of a booking aggregate.
type Change struct {
	Booking         Booking
	ExpectedVersion int
	History         []StatusHistoryEntry
}

// ListFilter holds optional criteria for listing bookings.
type ListFilter struct {
	Status   *Status
	ClientID string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// CatalogSource is the read-only view of the catalog used when attaching
// offerings and bundles.
type CatalogSource interface {
	GetOffering(ctx context.Context, id string) (Offering, error)
	GetBundle(ctx context.Context, id string) (Bundle, error)
	GetBundleComponents(ctx context.Context, bundleID string) ([]BundleComponent, error)
}

// CatalogStore extends CatalogSource with administration.
type CatalogStore interface {
	CatalogSource
	SaveOffering(ctx context.Context, o Offering) error
	SaveBundle(ctx context.Context, b Bundle, components []BundleComponent) error
	ListOfferings(ctx context.Context, filter CatalogFilter) ([]Offering, error)
	ListBundles(ctx context.Context, filter CatalogFilter) ([]Bundle, error)
}

// PolicySource supplies the current business policy.
type PolicySource interface {
	Policy(ctx context.Context) (Policy, error)
}

// Dispatcher delivers side-effect intents after their change is committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent Intent) error
}

// TransitionValidator checks (current, target) against the legal table and
// returns the destination status, or an *IllegalTransitionError.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, target Status) (Status, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
