package app

import (
	"context"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// AvailabilityChecker answers whether a resource is free for an interval.
// It is read-only; callers that go on to write an assignment must hold the
// resource-day lock for the whole check-then-write sequence.
type AvailabilityChecker struct {
	repo domain.BookingRepository
}

// NewAvailabilityChecker creates a checker over the given repository.
func NewAvailabilityChecker(repo domain.BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{repo: repo}
}

// IsAvailable reports whether no other active assignment of the resource
// overlaps interval on key.Date. Assignments of excludeBookingID are ignored.
// A storage failure is returned as a *domain.DependencyError, never as false.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, key domain.ResourceKey, interval domain.Interval, excludeBookingID string) (bool, error) {
	conflict, err := c.FindConflict(ctx, key, interval, excludeBookingID)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// FindConflict returns the first assignment that overlaps interval, or nil.
func (c *AvailabilityChecker) FindConflict(ctx context.Context, key domain.ResourceKey, interval domain.Interval, excludeBookingID string) (*domain.ResourceAssignment, error) {
	if !interval.Valid() {
		return nil, &domain.InvalidInputError{Field: "interval", Reason: "start must be before end"}
	}

	key.Date = domain.DateOf(key.Date)
	stored, err := c.repo.ActiveAssignments(ctx, key)
	if err != nil {
		return nil, &domain.DependencyError{Dependency: "repository", Op: "query active assignments", Err: err}
	}

	for _, a := range stored {
		if excludeBookingID != "" && a.BookingID == excludeBookingID {
			continue
		}
		if a.Coverage.Overlaps(interval) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}
