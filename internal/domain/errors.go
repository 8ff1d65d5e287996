package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrOfferingNotFound   = errors.New("offering not found")
	ErrBundleNotFound     = errors.New("bundle not found")
	ErrLineItemNotFound   = errors.New("line item not found")
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrVersionConflict is returned by repositories when the stored
	// version differs from the expected one.
	ErrVersionConflict = errors.New("booking version conflict")
)

// Rejection is implemented by every typed error a caller may see. Code is
// stable and meant for programmatic handling.
type Rejection interface {
	error
	Code() string
}

// IllegalTransitionError is returned when (From, To) is not in the table.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("transition from %q to %q is not allowed", e.From, e.To)
}

func (e *IllegalTransitionError) Code() string { return "illegal_transition" }

// Guard names. Each names the precondition that failed.
const (
	GuardReasonRequired       = "reason_required"
	GuardNoLineItems          = "no_line_items"
	GuardZeroTotal            = "zero_total"
	GuardDepositNotPaid       = "deposit_not_paid"
	GuardPaymentDeadline      = "payment_deadline_passed"
	GuardChangesDeadlineOpen  = "changes_deadline_not_passed"
	GuardChangesDeadlinePast  = "changes_deadline_passed"
	GuardNoPhotographer       = "no_photographer_assigned"
	GuardNoRoom               = "no_room_assigned"
	GuardSessionNotReached    = "session_date_not_reached"
	GuardSessionPassed        = "session_date_passed"
	GuardNotAssignedResource  = "caller_not_assigned"
	GuardEditorBound          = "editor_already_bound"
	GuardNotBoundEditor       = "caller_not_bound_editor"
	GuardBalanceOutstanding   = "balance_outstanding"
	GuardNotEditable          = "booking_not_editable"
	GuardTerminal             = "booking_terminal"
	GuardPaymentExceedsTotal  = "payment_exceeds_total"
	GuardRefundExceedsPaid    = "refund_exceeds_paid"
	GuardDuplicateDeposit     = "deposit_already_recorded"
	GuardTotalBelowPaid       = "total_below_net_paid"
	GuardOverrideAuthority    = "override_authority_required"
	GuardKindMismatch         = "bundle_kind_mismatch"
	GuardInactiveCatalogEntry = "catalog_entry_inactive"
	GuardAssignmentClosed     = "assignments_closed"
	GuardRoomMismatch         = "room_mismatch"
)

// GuardViolationError is returned when a named precondition fails.
// Values carries the inputs that failed it.
type GuardViolationError struct {
	Guard   string
	Message string
	Values  map[string]string
}

func (e *GuardViolationError) Error() string {
	if len(e.Values) == 0 {
		return fmt.Sprintf("%s: %s", e.Guard, e.Message)
	}
	keys := make([]string, 0, len(e.Values))
	for k := range e.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Values[k])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Guard, e.Message, strings.Join(parts, ", "))
}

func (e *GuardViolationError) Code() string { return "guard." + e.Guard }

// ResourceConflictError is returned when a resource is already held for an
// overlapping interval.
type ResourceConflictError struct {
	Key                 ResourceKey
	Requested           Interval
	ConflictBookingID   string
	ConflictingCoverage Interval
}

func (e *ResourceConflictError) Error() string {
	return fmt.Sprintf("%s %q is already booked on %s from %s to %s",
		e.Key.Kind, e.Key.ResourceID, e.Key.Date.Format("2006-01-02"),
		e.ConflictingCoverage.Start.Format("15:04"), e.ConflictingCoverage.End.Format("15:04"))
}

func (e *ResourceConflictError) Code() string { return "resource_conflict" }

// ConcurrencyConflictError is returned when a booking kept changing
// underneath the engine for every retry.
type ConcurrencyConflictError struct {
	BookingID string
	Attempts  int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("booking %q was modified concurrently (%d attempts)", e.BookingID, e.Attempts)
}

func (e *ConcurrencyConflictError) Code() string { return "concurrency_conflict" }

func (e *ConcurrencyConflictError) Unwrap() error { return ErrVersionConflict }

// InvariantViolationError signals an internal consistency defect.
type InvariantViolationError struct {
	BookingID string
	Rule      string
	Values    map[string]string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("booking %q violates invariant %s", e.BookingID, e.Rule)
}

func (e *InvariantViolationError) Code() string { return "invariant_violation" }

// DependencyError wraps a failure of the repository, catalog or policy
// source. Error never exposes the underlying message; use Unwrap for logs.
type DependencyError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable during %s", e.Dependency, e.Op)
}

func (e *DependencyError) Code() string { return "dependency_failure" }

func (e *DependencyError) Unwrap() error { return e.Err }

// InvalidInputError is returned for malformed commands.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Code() string { return "invalid_input" }
