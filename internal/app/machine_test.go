package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/domain"
)

func TestPreSchedule_SetsDepositAndDeadline(t *testing.T) {
	f := newFixture(t)
	f.catalog.addOffering("off-1", "WEDDING", "1000.00")
	b := f.onLocation(t)
	f.attach(t, b.ID, "off-1", 1)
	f.move(t, b.ID, domain.StatusNegotiation, coordinator)

	res := f.move(t, b.ID, domain.StatusPreScheduled, coordinator)

	if !res.Booking.DepositRequired.Equal(money("500.00")) {
		t.Errorf("DepositRequired = %s, want 500.00", res.Booking.DepositRequired)
	}
	want := startOfDay.AddDate(0, 0, 5)
	if res.Booking.PaymentDeadline == nil || !res.Booking.PaymentDeadline.Equal(want) {
		t.Errorf("PaymentDeadline = %v, want %v", res.Booking.PaymentDeadline, want)
	}
	if len(res.Intents) != 1 || res.Intents[0].Type != domain.IntentBookingPreScheduled {
		t.Fatalf("intents = %+v", res.Intents)
	}
	if res.Intents[0].Data["deposit_required"] != "500.00" {
		t.Errorf("intent deposit_required = %q, want %q", res.Intents[0].Data["deposit_required"], "500.00")
	}
}

func TestPreSchedule_Guards(t *testing.T) {
	f := newFixture(t)
	b := f.onLocation(t)
	f.move(t, b.ID, domain.StatusNegotiation, coordinator)

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusPreScheduled, Actor: coordinator,
	})
	asGuard(t, err, domain.GuardNoLineItems)

	// A fully credited booking has lines but nothing to pay.
	f.catalog.addOffering("off-1", "MINI", "100")
	f.attach(t, b.ID, "off-1", 1)
	if _, err := f.svc.AttachAdjustment(context.Background(), b.ID, "COMP", "complimentary", money("-100"), coordinator); err != nil {
		t.Fatalf("AttachAdjustment failed: %v", err)
	}
	_, err = f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusPreScheduled, Actor: coordinator,
	})
	asGuard(t, err, domain.GuardZeroTotal)
}

func TestConfirm_Guards(t *testing.T) {
	f := newFixture(t)
	f.catalog.addOffering("off-1", "PORTRAIT", "300")
	b := f.onLocation(t)
	f.attach(t, b.ID, "off-1", 1)
	f.move(t, b.ID, domain.StatusNegotiation, coordinator)
	f.move(t, b.ID, domain.StatusPreScheduled, coordinator)

	confirm := app.TransitionCmd{BookingID: b.ID, Target: domain.StatusConfirmed, Actor: coordinator}

	_, err := f.svc.RequestTransition(context.Background(), confirm)
	gv := asGuard(t, err, domain.GuardDepositNotPaid)
	if gv.Values["deposit_required"] != "150.00" || gv.Values["deposit_paid"] != "0.00" {
		t.Errorf("values = %v", gv.Values)
	}

	f.pay(t, b.ID, domain.PaymentDeposit, "100")
	_, err = f.svc.RequestTransition(context.Background(), confirm)
	asGuard(t, err, domain.GuardDepositNotPaid)

	f.clock.set(startOfDay.AddDate(0, 0, 6))
	stored, _ := f.repo.Get(context.Background(), b.ID)
	stored.Payments[0].Amount = money("150")
	stored.NetPaid = money("150")
	f.repo.put(stored)

	_, err = f.svc.RequestTransition(context.Background(), confirm)
	asGuard(t, err, domain.GuardPaymentDeadline)
}

func TestConfirm_AfterRenegotiation(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, "1000.00")
	f.catalog.addOffering("off-album", "ALBUM", "1000.00")

	f.move(t, b.ID, domain.StatusNegotiation, coordinator)
	f.attach(t, b.ID, "off-album", 1)
	pre := f.move(t, b.ID, domain.StatusPreScheduled, coordinator).Booking
	if !pre.DepositRequired.Equal(money("1000")) {
		t.Fatalf("DepositRequired = %s, want 1000", pre.DepositRequired)
	}

	confirm := app.TransitionCmd{BookingID: b.ID, Target: domain.StatusConfirmed, Actor: coordinator}
	_, err := f.svc.RequestTransition(context.Background(), confirm)
	gv := asGuard(t, err, domain.GuardDepositNotPaid)
	if gv.Values["deposit_paid"] != "500.00" || gv.Values["deposit_required"] != "1000.00" {
		t.Errorf("values = %v", gv.Values)
	}

	_, err = f.svc.RecordPayment(context.Background(), app.RecordPaymentCmd{
		BookingID: b.ID, Type: domain.PaymentDeposit, Amount: money("500"), Method: "card", Actor: coordinator,
	})
	asGuard(t, err, domain.GuardDuplicateDeposit)

	f.pay(t, b.ID, domain.PaymentBalance, "500")
	res := f.move(t, b.ID, domain.StatusConfirmed, coordinator)
	if !res.Booking.NetPaid.Equal(money("1000")) {
		t.Errorf("NetPaid = %s, want 1000", res.Booking.NetPaid)
	}
}

func TestConfirm_SetsChangesDeadline(t *testing.T) {
	f := newFixture(t)

	b := f.confirmed(t, "400.00")

	if b.PaymentDeadline != nil {
		t.Errorf("PaymentDeadline = %v, want cleared", b.PaymentDeadline)
	}
	want := sessionDay.AddDate(0, 0, -7)
	if b.ChangesDeadline == nil || !b.ChangesDeadline.Equal(want) {
		t.Errorf("ChangesDeadline = %v, want %v", b.ChangesDeadline, want)
	}
}

func TestAssign_Guards(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, "400.00")
	assign := app.TransitionCmd{BookingID: b.ID, Target: domain.StatusAssigned, Actor: coordinator}

	_, err := f.svc.RequestTransition(context.Background(), assign)
	asGuard(t, err, domain.GuardChangesDeadlineOpen)

	f.clock.set(b.ChangesDeadline.Add(time.Minute))
	_, err = f.svc.RequestTransition(context.Background(), assign)
	asGuard(t, err, domain.GuardNoPhotographer)

	f.assignPhotographer(t, b.ID, "ph-1", window(10, 14))
	res, err := f.svc.RequestTransition(context.Background(), assign)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	want := sessionDay.AddDate(0, 0, 5)
	if res.Booking.EstimatedDelivery == nil || !res.Booking.EstimatedDelivery.Equal(want) {
		t.Errorf("EstimatedDelivery = %v, want %v", res.Booking.EstimatedDelivery, want)
	}
	if len(res.Intents) != 1 || res.Intents[0].RecipientRef != "ph-1" {
		t.Errorf("intents = %+v, want one notification for ph-1", res.Intents)
	}
}

func TestAssign_InStudioNeedsRoom(t *testing.T) {
	f := newFixture(t)
	f.catalog.addOffering("off-1", "HEADSHOT", "200")
	b := f.create(t, domain.KindInStudio, "studio-a")
	f.attach(t, b.ID, "off-1", 1)
	f.move(t, b.ID, domain.StatusNegotiation, coordinator)
	f.move(t, b.ID, domain.StatusPreScheduled, coordinator)
	f.pay(t, b.ID, domain.PaymentDeposit, "100")
	confirmed := f.move(t, b.ID, domain.StatusConfirmed, coordinator).Booking
	f.assignPhotographer(t, b.ID, "ph-1", window(10, 12))
	f.clock.set(confirmed.ChangesDeadline.Add(time.Hour))

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusAssigned, Actor: coordinator,
	})
	asGuard(t, err, domain.GuardNoRoom)
}

func TestAttend(t *testing.T) {
	f := newFixture(t)
	b := f.assigned(t, "400.00")
	attend := app.TransitionCmd{BookingID: b.ID, Target: domain.StatusAttended, Actor: photographer}

	_, err := f.svc.RequestTransition(context.Background(), attend)
	asGuard(t, err, domain.GuardSessionNotReached)

	f.clock.set(at(15))
	stranger := attend
	stranger.Actor = domain.Actor{ID: "ph-9", Role: domain.RolePhotographer}
	_, err = f.svc.RequestTransition(context.Background(), stranger)
	asGuard(t, err, domain.GuardNotAssignedResource)

	res, err := f.svc.RequestTransition(context.Background(), attend)
	if err != nil {
		t.Fatalf("attend failed: %v", err)
	}
	active := res.Booking.ActiveAssignments()
	if len(active) != 1 || !active[0].Attended || active[0].AttendedAt == nil {
		t.Errorf("assignments = %+v, want ph-1 attended", active)
	}
	types := []domain.IntentType{res.Intents[0].Type, res.Intents[1].Type}
	if types[0] != domain.IntentBookingAttended || types[1] != domain.IntentEditingQueueEnqueued {
		t.Errorf("intents = %v", types)
	}
}

func TestEditingAndDelivery(t *testing.T) {
	f := newFixture(t)
	b := f.assigned(t, "400.00")
	f.clock.set(at(16))
	f.move(t, b.ID, domain.StatusAttended, photographer)

	res := f.move(t, b.ID, domain.StatusInEditing, editor)
	if res.Booking.EditorID != editor.ID {
		t.Errorf("EditorID = %q, want %q", res.Booking.EditorID, editor.ID)
	}

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusReadyForDelivery,
		Actor: domain.Actor{ID: "ed-2", Role: domain.RoleEditor},
	})
	asGuard(t, err, domain.GuardNotBoundEditor)

	f.move(t, b.ID, domain.StatusReadyForDelivery, editor)
	res = f.move(t, b.ID, domain.StatusCompleted, coordinator)
	if res.Booking.ActualDelivery == nil {
		t.Error("ActualDelivery should be set on completion")
	}

	_, err = f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusCanceled, Actor: coordinator, Reason: "too late",
	})
	var illegal *domain.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Errorf("expected IllegalTransitionError out of completed, got %v", err)
	}
}

func TestComplete_RequireSettlement(t *testing.T) {
	f := newFixture(t, func(p *domain.Policy) { p.RequireSettlement = true })
	b := f.assigned(t, "400.00")
	f.clock.set(at(16))
	f.move(t, b.ID, domain.StatusAttended, photographer)
	f.move(t, b.ID, domain.StatusInEditing, editor)
	f.move(t, b.ID, domain.StatusReadyForDelivery, editor)

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusCompleted, Actor: coordinator,
	})
	gv := asGuard(t, err, domain.GuardBalanceOutstanding)
	if gv.Values["outstanding"] != "200.00" {
		t.Errorf("outstanding = %q, want %q", gv.Values["outstanding"], "200.00")
	}

	f.pay(t, b.ID, domain.PaymentBalance, "200")
	f.move(t, b.ID, domain.StatusCompleted, coordinator)
}

func TestBackToNegotiation(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, "400.00")

	res := f.move(t, b.ID, domain.StatusNegotiation, coordinator)
	if res.Booking.ChangesDeadline != nil {
		t.Errorf("ChangesDeadline = %v, want cleared", res.Booking.ChangesDeadline)
	}

	f.move(t, b.ID, domain.StatusPreScheduled, coordinator)
	f.move(t, b.ID, domain.StatusConfirmed, coordinator)
	f.clock.set(sessionDay.AddDate(0, 0, -3))

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusNegotiation, Actor: coordinator,
	})
	asGuard(t, err, domain.GuardChangesDeadlinePast)
}

func TestCancel_RefundMatrix(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, f *fixture) domain.Booking
		initiator  domain.Initiator
		wantRefund string
		wantReason domain.RefundReason
	}{
		{
			name:       "request without payment",
			setup:      func(t *testing.T, f *fixture) domain.Booking { return f.onLocation(t) },
			wantRefund: "0",
			wantReason: domain.RefundNoPayment,
		},
		{
			name:       "confirmed within deadline",
			setup:      func(t *testing.T, f *fixture) domain.Booking { return f.confirmed(t, "1000.00") },
			wantRefund: "500.00",
			wantReason: domain.RefundWithinDeadline,
		},
		{
			name: "confirmed after deadline",
			setup: func(t *testing.T, f *fixture) domain.Booking {
				b := f.confirmed(t, "1000.00")
				f.clock.set(b.ChangesDeadline.Add(time.Hour))
				return b
			},
			wantRefund: "250.00",
			wantReason: domain.RefundAfterDeadline,
		},
		{
			name:       "assigned client cancels",
			setup:      func(t *testing.T, f *fixture) domain.Booking { return f.assigned(t, "1000.00") },
			initiator:  domain.InitiatorClient,
			wantRefund: "0",
			wantReason: domain.RefundClientAfterAssignment,
		},
		{
			name:       "assigned company fault",
			setup:      func(t *testing.T, f *fixture) domain.Booking { return f.assigned(t, "1000.00") },
			initiator:  domain.InitiatorCompany,
			wantRefund: "500.00",
			wantReason: domain.RefundCompanyFault,
		},
		{
			name:       "assigned force majeure",
			setup:      func(t *testing.T, f *fixture) domain.Booking { return f.assigned(t, "1000.00") },
			initiator:  domain.InitiatorForceMajeure,
			wantRefund: "500.00",
			wantReason: domain.RefundCompanyFault,
		},
		{
			name: "attended",
			setup: func(t *testing.T, f *fixture) domain.Booking {
				b := f.assigned(t, "1000.00")
				f.clock.set(at(16))
				f.move(t, b.ID, domain.StatusAttended, photographer)
				return b
			},
			initiator:  domain.InitiatorCompany,
			wantRefund: "0",
			wantReason: domain.RefundServiceRendered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := tt.setup(t, f)
			before, _ := f.repo.Get(context.Background(), b.ID)

			res, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
				BookingID: b.ID,
				Target:    domain.StatusCanceled,
				Actor:     coordinator,
				Reason:    "plans changed",
				Initiator: tt.initiator,
			})
			if err != nil {
				t.Fatalf("cancel failed: %v", err)
			}

			got := res.Booking
			if got.Status != domain.StatusCanceled || got.CanceledAt == nil || got.CancellationReason != "plans changed" {
				t.Errorf("booking = %s at %v (%q)", got.Status, got.CanceledAt, got.CancellationReason)
			}
			canceled := res.Intents[0]
			if canceled.Type != domain.IntentBookingCanceled {
				t.Fatalf("first intent = %s, want %s", canceled.Type, domain.IntentBookingCanceled)
			}
			if canceled.Data["refund_reason"] != string(tt.wantReason) {
				t.Errorf("refund_reason = %q, want %q", canceled.Data["refund_reason"], tt.wantReason)
			}

			refund := money(tt.wantRefund)
			if !before.NetPaid.Sub(got.NetPaid).Equal(refund) {
				t.Errorf("refunded %s, want %s", before.NetPaid.Sub(got.NetPaid), refund)
			}
			if refund.IsPositive() {
				last := got.Payments[len(got.Payments)-1]
				if last.Type != domain.PaymentRefund || !last.Amount.Equal(refund) {
					t.Errorf("last payment = %+v, want refund of %s", last, refund)
				}
			}
			if len(got.ActiveAssignments()) != 0 {
				t.Errorf("%d assignments still active after cancel", len(got.ActiveAssignments()))
			}
		})
	}
}

func TestCancel_RequiresReason(t *testing.T) {
	f := newFixture(t)
	b := f.onLocation(t)

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusCanceled, Actor: coordinator, Reason: "   ",
	})
	asGuard(t, err, domain.GuardReasonRequired)
}

func TestCancel_InvalidInitiator(t *testing.T) {
	f := newFixture(t)
	b := f.onLocation(t)

	_, err := f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusCanceled, Actor: coordinator, Reason: "x", Initiator: "weather",
	})
	var invalid *domain.InvalidInputError
	if !errors.As(err, &invalid) || invalid.Field != "initiator" {
		t.Errorf("expected InvalidInputError on initiator, got %v", err)
	}
}

func TestOverride(t *testing.T) {
	f := newFixture(t)
	b := f.onLocation(t)

	_, err := f.svc.Override(context.Background(), app.OverrideCmd{
		BookingID: b.ID, Target: domain.StatusConfirmed, Actor: coordinator, Reason: "migration",
	})
	asGuard(t, err, domain.GuardOverrideAuthority)

	_, err = f.svc.Override(context.Background(), app.OverrideCmd{
		BookingID: b.ID, Target: domain.StatusConfirmed, Actor: admin,
	})
	asGuard(t, err, domain.GuardReasonRequired)

	res, err := f.svc.Override(context.Background(), app.OverrideCmd{
		BookingID: b.ID, Target: domain.StatusConfirmed, Actor: admin, Reason: "migrated from paper records",
	})
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if res.Booking.Status != domain.StatusConfirmed {
		t.Errorf("Status = %q, want %q", res.Booking.Status, domain.StatusConfirmed)
	}
	if last := res.Intents[len(res.Intents)-1]; last.Type != domain.IntentBookingOverridden {
		t.Errorf("last intent = %s, want %s", last.Type, domain.IntentBookingOverridden)
	}

	history, _ := f.svc.History(context.Background(), b.ID)
	last := history[len(history)-1]
	if !last.Override || last.ActorID != admin.ID || last.From != domain.StatusRequest {
		t.Errorf("last history entry = %+v, want override from request by admin", last)
	}
}

func TestOverride_LeavesCanceled(t *testing.T) {
	f := newFixture(t)
	b := f.onLocation(t)
	f.svc.RequestTransition(context.Background(), app.TransitionCmd{
		BookingID: b.ID, Target: domain.StatusCanceled, Actor: coordinator, Reason: "mistake",
	})

	res, err := f.svc.Override(context.Background(), app.OverrideCmd{
		BookingID: b.ID, Target: domain.StatusNegotiation, Actor: admin, Reason: "canceled by mistake",
	})
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if res.Booking.CanceledAt != nil || res.Booking.CancellationReason != "" {
		t.Errorf("cancellation data not cleared: %v %q", res.Booking.CanceledAt, res.Booking.CancellationReason)
	}

	_, err = f.svc.Override(context.Background(), app.OverrideCmd{
		BookingID: b.ID, Target: domain.StatusNegotiation, Actor: admin, Reason: "again",
	})
	var illegal *domain.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Errorf("expected IllegalTransitionError for a same-status override, got %v", err)
	}
}
