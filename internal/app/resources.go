package app

import (
	"context"
	"time"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// AssignResourceCmd binds a room or photographer to a booking.
type AssignResourceCmd struct {
	BookingID  string
	Kind       domain.ResourceKind
	ResourceID string
	Coverage   domain.Interval
	Role       domain.Role
	Actor      domain.Actor
}

// AssignResource checks availability and writes the assignment under the
// resource-day lock, so two overlapping requests cannot both pass the check.
// An existing active assignment of the same resource on the booking, or of a
// different room, is marked reassigned.
func (s *BookingService) AssignResource(ctx context.Context, cmd AssignResourceCmd) (Result, error) {
	if !cmd.Kind.Valid() || cmd.ResourceID == "" {
		return Result{}, &domain.InvalidInputError{Field: "resource", Reason: "kind and id are required"}
	}
	if !cmd.Coverage.Valid() {
		return Result{}, &domain.InvalidInputError{Field: "coverage", Reason: "start must be before end"}
	}
	role := cmd.Role
	if role == "" {
		role = domain.RoleLead
		if cmd.Kind == domain.ResourceRoom {
			role = domain.RoleVenue
		}
	}

	current, err := s.load(ctx, cmd.BookingID)
	if err != nil {
		return Result{}, err
	}
	key := domain.ResourceKey{Kind: cmd.Kind, ResourceID: cmd.ResourceID, Date: current.SessionDate}

	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	return s.mutate(ctx, cmd.BookingID, "assign_resource", func(b *domain.Booking, _ domain.Policy, now time.Time) (effects, error) {
		if err := assignable(b); err != nil {
			return effects{}, err
		}
		if b.SessionDate.Before(domain.DateOf(now)) {
			return effects{}, &domain.GuardViolationError{
				Guard:   domain.GuardSessionPassed,
				Message: "resources cannot be assigned to a past session",
				Values:  map[string]string{"session_date": b.SessionDate.Format(time.DateOnly)},
			}
		}
		if cmd.Kind == domain.ResourceRoom && b.Kind != domain.KindInStudio {
			return effects{}, &domain.GuardViolationError{
				Guard:   domain.GuardRoomMismatch,
				Message: "only in-studio sessions use a room",
				Values:  map[string]string{"kind": string(b.Kind)},
			}
		}

		conflict, err := s.checker.FindConflict(ctx, key, cmd.Coverage, b.ID)
		if err != nil {
			return effects{}, err
		}
		if conflict != nil {
			return effects{}, resourceConflict(key, cmd.Coverage, *conflict)
		}

		for i, a := range b.Assignments {
			if a.Status != domain.AssignmentActive || a.ResourceKind != cmd.Kind {
				continue
			}
			if a.ResourceID == cmd.ResourceID || cmd.Kind == domain.ResourceRoom {
				b.Assignments[i].Status = domain.AssignmentReassigned
			}
		}
		a := newAssignment(b.ID, key, role, cmd.Coverage, cmd.Actor, now)
		b.Assignments = append(b.Assignments, a)
		if cmd.Kind == domain.ResourceRoom {
			b.RoomID = cmd.ResourceID
		}

		return effects{intents: []domain.Intent{{
			Type:         domain.IntentResourceAssigned,
			BookingID:    b.ID,
			RecipientRef: cmd.ResourceID,
			Data: map[string]string{
				"assignment_id": a.ID,
				"resource_kind": string(a.ResourceKind),
				"role":          string(a.Role),
				"date":          a.Date.Format(time.DateOnly),
				"start":         a.Coverage.Start.Format(time.RFC3339),
				"end":           a.Coverage.End.Format(time.RFC3339),
			},
		}}}, nil
	})
}

// ReleaseResource marks an active assignment reassigned. A room cannot be
// released from an in-studio booking; assign a different room instead.
func (s *BookingService) ReleaseResource(ctx context.Context, bookingID, assignmentID string, _ domain.Actor) (Result, error) {
	return s.mutate(ctx, bookingID, "release_resource", func(b *domain.Booking, _ domain.Policy, _ time.Time) (effects, error) {
		if err := assignable(b); err != nil {
			return effects{}, err
		}
		for i, a := range b.Assignments {
			if a.ID != assignmentID || a.Status != domain.AssignmentActive {
				continue
			}
			if a.ResourceKind == domain.ResourceRoom {
				return effects{}, &domain.GuardViolationError{
					Guard:   domain.GuardRoomMismatch,
					Message: "assign another room instead of releasing it",
				}
			}
			b.Assignments[i].Status = domain.AssignmentReassigned
			return effects{intents: []domain.Intent{{
				Type:         domain.IntentResourceReleased,
				BookingID:    b.ID,
				RecipientRef: a.ResourceID,
				Data:         map[string]string{"assignment_id": a.ID},
			}}}, nil
		}
		return effects{}, domain.ErrAssignmentNotFound
	})
}

// assignable allows resource changes until the session has been attended.
func assignable(b *domain.Booking) error {
	if err := notTerminal(b); err != nil {
		return err
	}
	switch b.Status {
	case domain.StatusAttended, domain.StatusInEditing, domain.StatusReadyForDelivery:
		return &domain.GuardViolationError{
			Guard:   domain.GuardAssignmentClosed,
			Message: "resources cannot change after the session took place",
			Values:  map[string]string{"status": string(b.Status)},
		}
	}
	return nil
}

func newAssignment(bookingID string, key domain.ResourceKey, role domain.Role, coverage domain.Interval, actor domain.Actor, now time.Time) domain.ResourceAssignment {
	return domain.ResourceAssignment{
		ID:           newID(),
		BookingID:    bookingID,
		ResourceKind: key.Kind,
		ResourceID:   key.ResourceID,
		Role:         role,
		Date:         key.Date,
		Coverage:     coverage,
		Status:       domain.AssignmentActive,
		AssignedBy:   actor.ID,
		AssignedAt:   now,
	}
}

func resourceConflict(key domain.ResourceKey, requested domain.Interval, existing domain.ResourceAssignment) error {
	return &domain.ResourceConflictError{
		Key:                 key,
		Requested:           requested,
		ConflictBookingID:   existing.BookingID,
		ConflictingCoverage: existing.Coverage,
	}
}
