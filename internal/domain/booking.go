package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusRequest          Status = "request"
	StatusNegotiation      Status = "negotiation"
	StatusPreScheduled     Status = "pre_scheduled"
	StatusConfirmed        Status = "confirmed"
	StatusAssigned         Status = "assigned"
	StatusAttended         Status = "attended"
	StatusInEditing        Status = "in_editing"
	StatusReadyForDelivery Status = "ready_for_delivery"
	StatusCompleted        Status = "completed"
	StatusCanceled         Status = "canceled"
)

// Statuses lists every lifecycle state in lifecycle order.
var Statuses = []Status{
	StatusRequest,
	StatusNegotiation,
	StatusPreScheduled,
	StatusConfirmed,
	StatusAssigned,
	StatusAttended,
	StatusInEditing,
	StatusReadyForDelivery,
	StatusCompleted,
	StatusCanceled,
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Editable reports whether line items and charges may change in s.
func (s Status) Editable() bool {
	return s == StatusRequest || s == StatusNegotiation
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Kind distinguishes sessions held in a studio room from sessions on location.
type Kind string

const (
	KindInStudio   Kind = "in_studio"
	KindOnLocation Kind = "on_location"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindInStudio || k == KindOnLocation
}

// Booking is the aggregate root for a photography session.
// Line items, resource assignments and payments are loaded and saved with it.
type Booking struct {
	ID       string
	ClientID string
	Kind     Kind
	Status   Status

	SessionDate time.Time // midnight UTC
	Window      *Interval
	RoomID      string
	Location    string

	Subtotal        decimal.Decimal
	Transportation  decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	DepositRequired decimal.Decimal
	NetPaid         decimal.Decimal

	PaymentDeadline   *time.Time
	ChangesDeadline   *time.Time
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time

	EditorID string

	CancellationReason string
	CanceledAt         *time.Time

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is incremented on every successful save and used for
	// optimistic concurrency control.
	Version int

	LineItems   []LineItem
	Assignments []ResourceAssignment
	Payments    []Payment
}

// NewBooking creates a booking in the initial Request state.
func NewBooking(id, clientID string, kind Kind, sessionDate time.Time, createdBy string, now time.Time) Booking {
	return Booking{
		ID:              id,
		ClientID:        clientID,
		Kind:            kind,
		Status:          StatusRequest,
		SessionDate:     DateOf(sessionDate),
		Subtotal:        decimal.Zero,
		Transportation:  decimal.Zero,
		Discount:        decimal.Zero,
		Total:           decimal.Zero,
		DepositRequired: decimal.Zero,
		NetPaid:         decimal.Zero,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ActiveAssignments returns the assignments that still hold their resource.
func (b Booking) ActiveAssignments() []ResourceAssignment {
	var out []ResourceAssignment
	for _, a := range b.Assignments {
		if a.Status == AssignmentActive {
			out = append(out, a)
		}
	}
	return out
}

// ActiveAssignment finds the active assignment of a resource on this booking.
func (b Booking) ActiveAssignment(kind ResourceKind, resourceID string) (ResourceAssignment, bool) {
	for _, a := range b.Assignments {
		if a.Status == AssignmentActive && a.ResourceKind == kind && a.ResourceID == resourceID {
			return a, true
		}
	}
	return ResourceAssignment{}, false
}

// HasActivePhotographer reports whether at least one photographer is bound.
func (b Booking) HasActivePhotographer() bool {
	for _, a := range b.ActiveAssignments() {
		if a.ResourceKind == ResourcePhotographer {
			return true
		}
	}
	return false
}

// RoomAssigned reports whether the booking's room is held by an active assignment.
func (b Booking) RoomAssigned() bool {
	if b.RoomID == "" {
		return false
	}
	_, ok := b.ActiveAssignment(ResourceRoom, b.RoomID)
	return ok
}

// DepositPayment returns the accepted deposit payment, if any.
func (b Booking) DepositPayment() (Payment, bool) {
	for _, p := range b.Payments {
		if p.Type == PaymentDeposit {
			return p, true
		}
	}
	return Payment{}, false
}

// Recompute re-derives subtotal, total and net paid from the line items and
// payments. It never patches the stored values incrementally.
func (b *Booking) Recompute() error {
	totals, err := RecalculateTotal(b.LineItems, b.Transportation, b.Discount)
	if err != nil {
		return err
	}
	b.Subtotal = totals.Subtotal
	b.Total = totals.Total
	b.NetPaid = NetPaid(b.Payments)
	return nil
}

// CheckInvariants verifies the aggregate's consistency rules.
func (b Booking) CheckInvariants() error {
	fail := func(rule string, values map[string]string) error {
		return &InvariantViolationError{BookingID: b.ID, Rule: rule, Values: values}
	}

	sum := decimal.Zero
	for _, li := range b.LineItems {
		if !li.Subtotal.Equal(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)) {
			return fail("line_subtotal", map[string]string{"line_item_id": li.ID, "subtotal": li.Subtotal.StringFixed(2)})
		}
		sum = sum.Add(li.Subtotal)
	}
	if !sum.Equal(b.Subtotal) {
		return fail("subtotal_matches_lines", map[string]string{"lines": sum.StringFixed(2), "subtotal": b.Subtotal.StringFixed(2)})
	}

	want := b.Subtotal.Add(b.Transportation).Sub(b.Discount).Round(2)
	if !want.Equal(b.Total) {
		return fail("total_reconciles", map[string]string{"expected": want.StringFixed(2), "total": b.Total.StringFixed(2)})
	}
	if b.Total.IsNegative() {
		return fail("total_non_negative", map[string]string{"total": b.Total.StringFixed(2)})
	}
	if b.NetPaid.GreaterThan(b.Total) {
		return fail("net_paid_within_total", map[string]string{"net_paid": b.NetPaid.StringFixed(2), "total": b.Total.StringFixed(2)})
	}
	if (b.Kind == KindInStudio) != (b.RoomID != "") {
		return fail("room_iff_in_studio", map[string]string{"kind": string(b.Kind), "room_id": b.RoomID})
	}
	return nil
}
