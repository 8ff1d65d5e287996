package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// TransitionCmd asks for a booking to move to Target.
type TransitionCmd struct {
	BookingID string
	Target    domain.Status
	Actor     domain.Actor
	Reason    string
	Initiator domain.Initiator // cancellations only; defaults to client
}

// RequestTransition moves a booking through the lifecycle. The order is
// fixed: table lookup, guard, action, history append, then dispatch of
// intents once the save has committed.
func (s *BookingService) RequestTransition(ctx context.Context, cmd TransitionCmd) (Result, error) {
	if !cmd.Target.Valid() {
		return Result{}, &domain.InvalidInputError{Field: "target", Reason: "unknown status"}
	}
	if cmd.Initiator == "" {
		cmd.Initiator = domain.InitiatorClient
	}
	if !cmd.Initiator.Valid() {
		return Result{}, &domain.InvalidInputError{Field: "initiator", Reason: "must be client, company or force_majeure"}
	}

	return s.mutate(ctx, cmd.BookingID, "transition", func(b *domain.Booking, p domain.Policy, now time.Time) (effects, error) {
		from := b.Status
		if _, err := s.validator.Apply(ctx, from, cmd.Target); err != nil {
			var illegal *domain.IllegalTransitionError
			if errors.As(err, &illegal) {
				return effects{}, illegal
			}
			return effects{}, err
		}

		intents, err := applyTransition(b, cmd, p, now)
		if err != nil {
			return effects{}, err
		}
		b.Status = cmd.Target

		return effects{
			history: []domain.StatusHistoryEntry{historyEntry(b, from, cmd.Actor, cmd.Reason, false, now)},
			intents: intents,
		}, nil
	})
}

// OverrideCmd forces a booking into Target without guards.
type OverrideCmd struct {
	BookingID string
	Target    domain.Status
	Actor     domain.Actor
	Reason    string
}

// Override is the administrative escape hatch. It may leave terminal
// states, skips guards and actions, and is always recorded in the history
// with the override flag set.
func (s *BookingService) Override(ctx context.Context, cmd OverrideCmd) (Result, error) {
	if !cmd.Actor.CanOverride() {
		return Result{}, &domain.GuardViolationError{
			Guard:   domain.GuardOverrideAuthority,
			Message: "only administrators may override the lifecycle",
			Values:  map[string]string{"role": string(cmd.Actor.Role)},
		}
	}
	if !cmd.Target.Valid() {
		return Result{}, &domain.InvalidInputError{Field: "target", Reason: "unknown status"}
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return Result{}, reasonRequired()
	}

	return s.mutate(ctx, cmd.BookingID, "override", func(b *domain.Booking, _ domain.Policy, now time.Time) (effects, error) {
		from := b.Status
		if from == cmd.Target {
			return effects{}, &domain.IllegalTransitionError{From: from, To: cmd.Target}
		}

		var intents []domain.Intent
		switch {
		case cmd.Target == domain.StatusCanceled:
			b.CancellationReason = cmd.Reason
			b.CanceledAt = &now
			intents = releaseAll(b)
		case from == domain.StatusCanceled:
			b.CancellationReason = ""
			b.CanceledAt = nil
		}
		b.Status = cmd.Target

		intents = append(intents, domain.Intent{
			Type:         domain.IntentBookingOverridden,
			BookingID:    b.ID,
			RecipientRef: b.ClientID,
			Data:         map[string]string{"from": string(from), "to": string(cmd.Target), "actor": cmd.Actor.ID},
		})
		return effects{
			history: []domain.StatusHistoryEntry{historyEntry(b, from, cmd.Actor, cmd.Reason, true, now)},
			intents: intents,
		}, nil
	})
}

// applyTransition evaluates the guard and runs the action for a legal
// (b.Status, cmd.Target) pair. It changes b but not b.Status.
func applyTransition(b *domain.Booking, cmd TransitionCmd, p domain.Policy, now time.Time) ([]domain.Intent, error) {
	if cmd.Target == domain.StatusCanceled {
		return cancel(b, cmd, p, now)
	}

	switch b.Status {
	case domain.StatusRequest:
		if cmd.Target == domain.StatusNegotiation {
			return notify(b, domain.IntentBookingNegotiation, b.ClientID, nil), nil
		}

	case domain.StatusNegotiation:
		if cmd.Target == domain.StatusPreScheduled {
			return preSchedule(b, p, now)
		}

	case domain.StatusPreScheduled:
		switch cmd.Target {
		case domain.StatusConfirmed:
			return confirm(b, p, now)
		case domain.StatusNegotiation:
			b.PaymentDeadline = nil
			return notify(b, domain.IntentBookingNegotiation, b.ClientID, nil), nil
		}

	case domain.StatusConfirmed:
		switch cmd.Target {
		case domain.StatusAssigned:
			return assign(b, p, now)
		case domain.StatusNegotiation:
			if b.ChangesDeadline != nil && now.After(*b.ChangesDeadline) {
				return nil, &domain.GuardViolationError{
					Guard:   domain.GuardChangesDeadlinePast,
					Message: "the changes deadline has passed",
					Values:  map[string]string{"changes_deadline": b.ChangesDeadline.Format(time.RFC3339), "now": now.Format(time.RFC3339)},
				}
			}
			b.ChangesDeadline = nil
			return notify(b, domain.IntentBookingNegotiation, b.ClientID, nil), nil
		}

	case domain.StatusAssigned:
		if cmd.Target == domain.StatusAttended {
			return attend(b, cmd.Actor, now)
		}

	case domain.StatusAttended:
		if cmd.Target == domain.StatusInEditing {
			if b.EditorID != "" {
				return nil, &domain.GuardViolationError{
					Guard:   domain.GuardEditorBound,
					Message: "an editor is already working on this session",
					Values:  map[string]string{"editor_id": b.EditorID},
				}
			}
			if cmd.Actor.ID == "" {
				return nil, &domain.InvalidInputError{Field: "actor", Reason: "editor id required"}
			}
			b.EditorID = cmd.Actor.ID
			return notify(b, domain.IntentBookingInEditing, b.EditorID, nil), nil
		}

	case domain.StatusInEditing:
		if cmd.Target == domain.StatusReadyForDelivery {
			if cmd.Actor.ID != b.EditorID {
				return nil, &domain.GuardViolationError{
					Guard:   domain.GuardNotBoundEditor,
					Message: "only the editor working on the session can hand it over",
					Values:  map[string]string{"editor_id": b.EditorID, "actor_id": cmd.Actor.ID},
				}
			}
			return notify(b, domain.IntentBookingReady, b.ClientID, nil), nil
		}

	case domain.StatusReadyForDelivery:
		if cmd.Target == domain.StatusCompleted {
			if p.RequireSettlement {
				if due := domain.OutstandingBalance(b.Total, b.NetPaid); due.IsPositive() {
					return nil, &domain.GuardViolationError{
						Guard:   domain.GuardBalanceOutstanding,
						Message: "the balance must be settled before completion",
						Values:  map[string]string{"outstanding": due.StringFixed(2)},
					}
				}
			}
			b.ActualDelivery = &now
			return notify(b, domain.IntentBookingCompleted, b.ClientID, nil), nil
		}
	}

	return nil, &domain.IllegalTransitionError{From: b.Status, To: cmd.Target}
}

func preSchedule(b *domain.Booking, p domain.Policy, now time.Time) ([]domain.Intent, error) {
	if len(b.LineItems) == 0 {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardNoLineItems,
			Message: "add at least one offering before pre-scheduling",
		}
	}
	if !b.Total.IsPositive() {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardZeroTotal,
			Message: "the booking total must be positive",
			Values:  map[string]string{"total": b.Total.StringFixed(2)},
		}
	}

	deadline := now.AddDate(0, 0, p.PaymentDeadlineDays)
	b.PaymentDeadline = &deadline
	b.DepositRequired = domain.DepositAmount(b.Total, p.DepositPercent)

	return notify(b, domain.IntentBookingPreScheduled, b.ClientID, map[string]string{
		"deposit_required": b.DepositRequired.StringFixed(2),
		"payment_deadline": deadline.Format(time.RFC3339),
	}), nil
}

func confirm(b *domain.Booking, p domain.Policy, now time.Time) ([]domain.Intent, error) {
	// Deposits and balances both count, so a booking that re-enters
	// pre-scheduling can be topped up with a balance payment.
	paid := domain.NetPaid(b.Payments)
	if _, ok := b.DepositPayment(); !ok || paid.LessThan(b.DepositRequired) {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardDepositNotPaid,
			Message: "payments covering the required deposit have not been recorded",
			Values:  map[string]string{"deposit_required": b.DepositRequired.StringFixed(2), "deposit_paid": paid.StringFixed(2)},
		}
	}
	if b.PaymentDeadline != nil && now.After(*b.PaymentDeadline) {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardPaymentDeadline,
			Message: "the payment deadline has passed",
			Values:  map[string]string{"payment_deadline": b.PaymentDeadline.Format(time.RFC3339), "now": now.Format(time.RFC3339)},
		}
	}

	b.PaymentDeadline = nil
	changes := b.SessionDate.AddDate(0, 0, -p.ChangesDeadlineDays)
	b.ChangesDeadline = &changes

	return notify(b, domain.IntentBookingConfirmed, b.ClientID, map[string]string{
		"changes_deadline": changes.Format(time.RFC3339),
	}), nil
}

func assign(b *domain.Booking, p domain.Policy, now time.Time) ([]domain.Intent, error) {
	if b.ChangesDeadline != nil && !now.After(*b.ChangesDeadline) {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardChangesDeadlineOpen,
			Message: "the client can still change the booking",
			Values:  map[string]string{"changes_deadline": b.ChangesDeadline.Format(time.RFC3339), "now": now.Format(time.RFC3339)},
		}
	}
	if !b.HasActivePhotographer() {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardNoPhotographer,
			Message: "assign at least one photographer first",
		}
	}
	if b.Kind == domain.KindInStudio && !b.RoomAssigned() {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardNoRoom,
			Message: "in-studio sessions need a reserved room",
			Values:  map[string]string{"room_id": b.RoomID},
		}
	}

	delivery := b.SessionDate.AddDate(0, 0, p.EditingDays)
	b.EstimatedDelivery = &delivery

	var intents []domain.Intent
	for _, a := range b.ActiveAssignments() {
		if a.ResourceKind != domain.ResourcePhotographer {
			continue
		}
		intents = append(intents, domain.Intent{
			Type:         domain.IntentBookingAssigned,
			BookingID:    b.ID,
			RecipientRef: a.ResourceID,
			Data:         map[string]string{"role": string(a.Role), "date": b.SessionDate.Format(time.DateOnly)},
		})
	}
	return intents, nil
}

func attend(b *domain.Booking, actor domain.Actor, now time.Time) ([]domain.Intent, error) {
	if domain.DateOf(now).Before(b.SessionDate) {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardSessionNotReached,
			Message: "attendance can only be recorded on or after the session date",
			Values:  map[string]string{"session_date": b.SessionDate.Format(time.DateOnly)},
		}
	}

	marked := false
	for i, a := range b.Assignments {
		if a.Status != domain.AssignmentActive || a.ResourceKind != domain.ResourcePhotographer {
			continue
		}
		if a.ResourceID == actor.ID || actor.CanOverride() {
			b.Assignments[i].Attended = true
			b.Assignments[i].AttendedAt = &now
			marked = true
		}
	}
	if !marked && !actor.CanOverride() {
		return nil, &domain.GuardViolationError{
			Guard:   domain.GuardNotAssignedResource,
			Message: "only an assigned photographer or an administrator can record attendance",
			Values:  map[string]string{"actor_id": actor.ID},
		}
	}

	return []domain.Intent{
		{Type: domain.IntentBookingAttended, BookingID: b.ID, RecipientRef: b.ClientID},
		{Type: domain.IntentEditingQueueEnqueued, BookingID: b.ID},
	}, nil
}

func cancel(b *domain.Booking, cmd TransitionCmd, p domain.Policy, now time.Time) ([]domain.Intent, error) {
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, reasonRequired()
	}

	amount, reason := domain.CalculateRefund(p, b.Status, b.NetPaid, cmd.Initiator, now, b.ChangesDeadline)
	data := map[string]string{
		"initiator":     string(cmd.Initiator),
		"refund_amount": amount.StringFixed(2),
		"refund_reason": string(reason),
	}

	var intents []domain.Intent
	if amount.IsPositive() {
		refund := domain.Payment{
			ID:         newID(),
			BookingID:  b.ID,
			Type:       domain.PaymentRefund,
			Amount:     amount,
			Method:     "refund",
			Note:       "cancellation: " + string(reason),
			RecordedBy: cmd.Actor.ID,
			RecordedAt: now,
		}
		b.Payments = append(b.Payments, refund)
		b.NetPaid = domain.NetPaid(b.Payments)
		intents = append(intents, domain.Intent{
			Type:         domain.IntentRefundIssued,
			BookingID:    b.ID,
			RecipientRef: b.ClientID,
			Data:         map[string]string{"payment_id": refund.ID, "amount": amount.StringFixed(2)},
		})
	}

	b.CancellationReason = cmd.Reason
	b.CanceledAt = &now
	intents = append(intents, releaseAll(b)...)

	return append([]domain.Intent{{
		Type:         domain.IntentBookingCanceled,
		BookingID:    b.ID,
		RecipientRef: b.ClientID,
		Data:         data,
	}}, intents...), nil
}

// releaseAll frees every active assignment of b.
func releaseAll(b *domain.Booking) []domain.Intent {
	var intents []domain.Intent
	for i, a := range b.Assignments {
		if a.Status != domain.AssignmentActive {
			continue
		}
		b.Assignments[i].Status = domain.AssignmentReleased
		intents = append(intents, domain.Intent{
			Type:         domain.IntentResourceReleased,
			BookingID:    b.ID,
			RecipientRef: a.ResourceID,
			Data:         map[string]string{"assignment_id": a.ID, "resource_kind": string(a.ResourceKind)},
		})
	}
	return intents
}

func notify(b *domain.Booking, t domain.IntentType, recipient string, data map[string]string) []domain.Intent {
	return []domain.Intent{{Type: t, BookingID: b.ID, RecipientRef: recipient, Data: data}}
}

func reasonRequired() error {
	return &domain.GuardViolationError{
		Guard:   domain.GuardReasonRequired,
		Message: "a reason is required",
	}
}
