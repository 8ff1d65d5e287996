package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/neomorfeo/studiobook/internal/domain"
)

func TestRejectionCodes(t *testing.T) {
	tests := []struct {
		err  domain.Rejection
		code string
	}{
		{&domain.IllegalTransitionError{From: domain.StatusRequest, To: domain.StatusCompleted}, "illegal_transition"},
		{&domain.GuardViolationError{Guard: domain.GuardDepositNotPaid}, "guard.deposit_not_paid"},
		{&domain.ResourceConflictError{}, "resource_conflict"},
		{&domain.ConcurrencyConflictError{BookingID: "b-1", Attempts: 3}, "concurrency_conflict"},
		{&domain.InvariantViolationError{Rule: "total_reconciles"}, "invariant_violation"},
		{&domain.DependencyError{Dependency: "repository", Op: "save"}, "dependency_failure"},
		{&domain.InvalidInputError{Field: "kind"}, "invalid_input"},
	}
	for _, tt := range tests {
		if got := tt.err.Code(); got != tt.code {
			t.Errorf("%T.Code() = %q, want %q", tt.err, got, tt.code)
		}
	}
}

func TestGuardViolationError_Message(t *testing.T) {
	err := &domain.GuardViolationError{
		Guard:   domain.GuardDepositNotPaid,
		Message: "deposit missing",
		Values:  map[string]string{"deposit_required": "150.00", "deposit_paid": "0.00"},
	}
	want := "deposit_not_paid: deposit missing (deposit_paid=0.00, deposit_required=150.00)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestResourceConflictError_Message(t *testing.T) {
	day := time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)
	err := &domain.ResourceConflictError{
		Key:                 domain.ResourceKey{Kind: domain.ResourcePhotographer, ResourceID: "ph-1", Date: day},
		ConflictBookingID:   "b-9",
		ConflictingCoverage: domain.Interval{Start: day.Add(10 * time.Hour), End: day.Add(14 * time.Hour)},
	}
	want := `photographer "ph-1" is already booked on 2030-06-15 from 10:00 to 14:00`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDependencyError_HidesCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := &domain.DependencyError{Dependency: "repository", Op: "save booking", Err: cause}

	if err.Error() != "repository unavailable during save booking" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("DependencyError should unwrap to its cause")
	}
}

func TestConcurrencyConflictError_Unwrap(t *testing.T) {
	err := &domain.ConcurrencyConflictError{BookingID: "b-1", Attempts: 3}
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Error("ConcurrencyConflictError should unwrap to ErrVersionConflict")
	}
}
