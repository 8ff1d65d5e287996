package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// CreateBookingCmd carries the data for a new booking request.
type CreateBookingCmd struct {
	ClientID    string
	Kind        domain.Kind
	SessionDate time.Time
	Window      *domain.Interval
	RoomID      string
	Location    string
	Actor       domain.Actor
}

func (c CreateBookingCmd) validate() error {
	switch {
	case c.ClientID == "":
		return &domain.InvalidInputError{Field: "client_id", Reason: "required"}
	case !c.Kind.Valid():
		return &domain.InvalidInputError{Field: "kind", Reason: "must be in_studio or on_location"}
	case c.SessionDate.IsZero():
		return &domain.InvalidInputError{Field: "session_date", Reason: "required"}
	case c.Kind == domain.KindInStudio && c.RoomID == "":
		return &domain.InvalidInputError{Field: "room_id", Reason: "required for in-studio sessions"}
	case c.Kind == domain.KindOnLocation && c.RoomID != "":
		return &domain.InvalidInputError{Field: "room_id", Reason: "on-location sessions do not use a room"}
	case c.Window != nil && !c.Window.Valid():
		return &domain.InvalidInputError{Field: "window", Reason: "start must be before end"}
	}
	return nil
}

// CreateBooking persists a new booking in Request status. An in-studio
// booking created with a time window also reserves its room.
func (s *BookingService) CreateBooking(ctx context.Context, cmd CreateBookingCmd) (Result, error) {
	if err := cmd.validate(); err != nil {
		return Result{}, err
	}

	now := s.clock.Now()
	if domain.DateOf(cmd.SessionDate).Before(domain.DateOf(now)) {
		return Result{}, &domain.InvalidInputError{Field: "session_date", Reason: "must not be in the past"}
	}
	b := domain.NewBooking(newID(), cmd.ClientID, cmd.Kind, cmd.SessionDate, cmd.Actor.ID, now)
	b.RoomID = cmd.RoomID
	b.Location = cmd.Location
	b.Window = cmd.Window

	create := func() error {
		if err := s.repo.Create(ctx, b, historyEntry(&b, "", cmd.Actor, "booking requested", false, now)); err != nil {
			var conflict *domain.ResourceConflictError
			if errors.As(err, &conflict) {
				return conflict
			}
			return &domain.DependencyError{Dependency: "repository", Op: "create booking", Err: err}
		}
		return nil
	}

	if b.Kind == domain.KindInStudio && b.Window != nil {
		key := domain.ResourceKey{Kind: domain.ResourceRoom, ResourceID: b.RoomID, Date: b.SessionDate}
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			return Result{}, err
		}
		defer unlock()

		conflict, err := s.checker.FindConflict(ctx, key, *b.Window, "")
		if err != nil {
			return Result{}, err
		}
		if conflict != nil {
			return Result{}, resourceConflict(key, *b.Window, *conflict)
		}
		b.Assignments = append(b.Assignments, newAssignment(b.ID, key, domain.RoleVenue, *b.Window, cmd.Actor, now))
		if err := create(); err != nil {
			return Result{}, err
		}
	} else if err := create(); err != nil {
		return Result{}, err
	}

	intents := []domain.Intent{{Type: domain.IntentBookingCreated, BookingID: b.ID, RecipientRef: b.ClientID}}
	s.dispatch(ctx, intents)
	return Result{Booking: b, Intents: intents}, nil
}

// AttachOffering adds one catalog offering as a line item.
func (s *BookingService) AttachOffering(ctx context.Context, bookingID, offeringID string, quantity int, actor domain.Actor) (Result, error) {
	if quantity < 1 || quantity > domain.MaxQuantity {
		return Result{}, quantityOutOfRange()
	}

	offering, err := s.catalog.GetOffering(ctx, offeringID)
	if err != nil {
		return Result{}, catalogError(err, domain.ErrOfferingNotFound, "get offering")
	}
	if offering.Status != domain.CatalogActive {
		return Result{}, inactive("offering", offering.Code)
	}

	return s.mutate(ctx, bookingID, "attach_offering", func(b *domain.Booking, _ domain.Policy, now time.Time) (effects, error) {
		if err := editable(b); err != nil {
			return effects{}, err
		}
		li := domain.NewLineItem(domain.OfferingSource{OfferingID: offering.ID},
			offering.Code, offering.Name, offering.Description, quantity, offering.UnitPrice)
		b.LineItems = append(b.LineItems, stamp(li, b.ID, actor, now))
		return effects{}, recompute(b)
	})
}

// AttachBundle expands a bundle into line items priced from the catalog as
// it reads right now.
func (s *BookingService) AttachBundle(ctx context.Context, bookingID, bundleID string, quantity int, actor domain.Actor) (Result, error) {
	if quantity < 1 || quantity > domain.MaxQuantity {
		return Result{}, quantityOutOfRange()
	}
	bundle, err := s.catalog.GetBundle(ctx, bundleID)
	if err != nil {
		return Result{}, catalogError(err, domain.ErrBundleNotFound, "get bundle")
	}
	if bundle.Status != domain.CatalogActive {
		return Result{}, inactive("bundle", bundle.Code)
	}

	components, err := s.catalog.GetBundleComponents(ctx, bundleID)
	if err != nil {
		return Result{}, catalogError(err, domain.ErrBundleNotFound, "get bundle components")
	}
	priced := make([]domain.PricedComponent, 0, len(components))
	for _, c := range components {
		o, err := s.catalog.GetOffering(ctx, c.OfferingID)
		if err != nil {
			return Result{}, catalogError(err, domain.ErrOfferingNotFound, "get offering")
		}
		priced = append(priced, domain.PricedComponent{Offering: o, Quantity: c.Quantity})
	}

	lines, err := domain.ExpandBundle(bundle, priced, quantity)
	if err != nil {
		return Result{}, err
	}

	return s.mutate(ctx, bookingID, "attach_bundle", func(b *domain.Booking, _ domain.Policy, now time.Time) (effects, error) {
		if err := editable(b); err != nil {
			return effects{}, err
		}
		if !bundle.Scope.Allows(b.Kind) {
			return effects{}, &domain.GuardViolationError{
				Guard:   domain.GuardKindMismatch,
				Message: "bundle cannot be used for this kind of session",
				Values:  map[string]string{"bundle_scope": string(bundle.Scope), "booking_kind": string(b.Kind)},
			}
		}
		for _, li := range lines {
			b.LineItems = append(b.LineItems, stamp(li, b.ID, actor, now))
		}
		return effects{}, recompute(b)
	})
}

// AttachAdjustment adds a manual line, e.g. a goodwill credit when amount
// is negative.
func (s *BookingService) AttachAdjustment(ctx context.Context, bookingID, code, description string, amount decimal.Decimal, actor domain.Actor) (Result, error) {
	if code == "" {
		return Result{}, &domain.InvalidInputError{Field: "code", Reason: "required"}
	}
	if amount.IsZero() {
		return Result{}, &domain.InvalidInputError{Field: "amount", Reason: "must not be zero"}
	}

	return s.mutate(ctx, bookingID, "attach_adjustment", func(b *domain.Booking, _ domain.Policy, now time.Time) (effects, error) {
		if err := editable(b); err != nil {
			return effects{}, err
		}
		li := domain.NewLineItem(domain.AdjustmentSource{}, code, "Adjustment", description, 1, amount.Round(2))
		b.LineItems = append(b.LineItems, stamp(li, b.ID, actor, now))
		return effects{}, recompute(b)
	})
}

// RemoveLineItem deletes a line while the booking is still editable.
// Corrections are modeled as remove and re-add.
func (s *BookingService) RemoveLineItem(ctx context.Context, bookingID, lineItemID string, _ domain.Actor) (Result, error) {
	return s.mutate(ctx, bookingID, "remove_line_item", func(b *domain.Booking, _ domain.Policy, _ time.Time) (effects, error) {
		if err := editable(b); err != nil {
			return effects{}, err
		}
		kept := b.LineItems[:0:0]
		found := false
		for _, li := range b.LineItems {
			if li.ID == lineItemID {
				found = true
				continue
			}
			kept = append(kept, li)
		}
		if !found {
			return effects{}, domain.ErrLineItemNotFound
		}
		b.LineItems = kept
		return effects{}, recompute(b)
	})
}

// SetCharges replaces the transportation surcharge and discount.
func (s *BookingService) SetCharges(ctx context.Context, bookingID string, transportation, discount decimal.Decimal, _ domain.Actor) (Result, error) {
	if transportation.IsNegative() {
		return Result{}, &domain.InvalidInputError{Field: "transportation", Reason: "must not be negative"}
	}
	if discount.IsNegative() {
		return Result{}, &domain.InvalidInputError{Field: "discount", Reason: "must not be negative"}
	}

	return s.mutate(ctx, bookingID, "set_charges", func(b *domain.Booking, _ domain.Policy, _ time.Time) (effects, error) {
		if err := editable(b); err != nil {
			return effects{}, err
		}
		b.Transportation = transportation.Round(2)
		b.Discount = discount.Round(2)
		return effects{}, recompute(b)
	})
}

// RecordPaymentCmd carries a payment to record against a booking.
type RecordPaymentCmd struct {
	BookingID string
	Amount    decimal.Decimal
	Type      domain.PaymentType
	Method    string
	Note      string
	Actor     domain.Actor
}

// RecordPayment appends a payment and re-derives the net paid amount.
func (s *BookingService) RecordPayment(ctx context.Context, cmd RecordPaymentCmd) (Result, error) {
	switch {
	case !cmd.Type.Valid():
		return Result{}, &domain.InvalidInputError{Field: "type", Reason: "must be deposit, balance or refund"}
	case !cmd.Amount.IsPositive():
		return Result{}, &domain.InvalidInputError{Field: "amount", Reason: "must be positive"}
	case cmd.Method == "":
		return Result{}, &domain.InvalidInputError{Field: "method", Reason: "required"}
	}
	amount := cmd.Amount.Round(2)

	return s.mutate(ctx, cmd.BookingID, "record_payment", func(b *domain.Booking, p domain.Policy, now time.Time) (effects, error) {
		if err := notTerminal(b); err != nil {
			return effects{}, err
		}

		typ := cmd.Type
		if typ == domain.PaymentDeposit {
			if _, exists := b.DepositPayment(); exists {
				if p.SecondDeposit != domain.SecondDepositAsBalance {
					return effects{}, &domain.GuardViolationError{
						Guard:   domain.GuardDuplicateDeposit,
						Message: "a deposit has already been recorded for this booking",
					}
				}
				typ = domain.PaymentBalance
			}
		}

		switch typ {
		case domain.PaymentRefund:
			if amount.GreaterThan(b.NetPaid) {
				return effects{}, &domain.GuardViolationError{
					Guard:   domain.GuardRefundExceedsPaid,
					Message: "refund is larger than the amount paid",
					Values:  map[string]string{"amount": amount.StringFixed(2), "net_paid": b.NetPaid.StringFixed(2)},
				}
			}
		default:
			if b.NetPaid.Add(amount).GreaterThan(b.Total) {
				return effects{}, &domain.GuardViolationError{
					Guard:   domain.GuardPaymentExceedsTotal,
					Message: "payment exceeds the outstanding balance",
					Values: map[string]string{
						"amount":      amount.StringFixed(2),
						"outstanding": domain.OutstandingBalance(b.Total, b.NetPaid).StringFixed(2),
					},
				}
			}
		}

		pay := domain.Payment{
			ID:         newID(),
			BookingID:  b.ID,
			Type:       typ,
			Amount:     amount,
			Method:     cmd.Method,
			Note:       cmd.Note,
			RecordedBy: cmd.Actor.ID,
			RecordedAt: now,
		}
		b.Payments = append(b.Payments, pay)
		b.NetPaid = domain.NetPaid(b.Payments)

		return effects{intents: []domain.Intent{{
			Type:         domain.IntentPaymentRecorded,
			BookingID:    b.ID,
			RecipientRef: b.ClientID,
			Data: map[string]string{
				"payment_id":  pay.ID,
				"type":        string(pay.Type),
				"amount":      pay.Amount.StringFixed(2),
				"outstanding": domain.OutstandingBalance(b.Total, b.NetPaid).StringFixed(2),
			},
		}}}, nil
	})
}

func stamp(li domain.LineItem, bookingID string, actor domain.Actor, now time.Time) domain.LineItem {
	li.ID = newID()
	li.BookingID = bookingID
	li.CreatedBy = actor.ID
	li.CreatedAt = now
	return li
}

func catalogError(err, notFound error, op string) error {
	if errors.Is(err, notFound) {
		return notFound
	}
	return &domain.DependencyError{Dependency: "catalog", Op: op, Err: err}
}

func quantityOutOfRange() error {
	return &domain.InvalidInputError{Field: "quantity", Reason: fmt.Sprintf("must be between 1 and %d", domain.MaxQuantity)}
}

func inactive(what, code string) error {
	return &domain.GuardViolationError{
		Guard:   domain.GuardInactiveCatalogEntry,
		Message: what + " is no longer offered",
		Values:  map[string]string{"code": code},
	}
}
