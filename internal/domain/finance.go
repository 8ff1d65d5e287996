package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Initiator identifies who asked for a cancellation.
type Initiator string

const (
	InitiatorClient       Initiator = "client"
	InitiatorCompany      Initiator = "company"
	InitiatorForceMajeure Initiator = "force_majeure"
)

// Valid reports whether i is a known initiator.
func (i Initiator) Valid() bool {
	return i == InitiatorClient || i == InitiatorCompany || i == InitiatorForceMajeure
}

// RefundReason is the stable code explaining a refund decision.
type RefundReason string

const (
	RefundNoPayment             RefundReason = "no_payment"
	RefundPreConfirmation       RefundReason = "pre_confirmation"
	RefundWithinDeadline        RefundReason = "within_deadline"
	RefundAfterDeadline         RefundReason = "after_deadline"
	RefundCompanyFault          RefundReason = "company_fault"
	RefundClientAfterAssignment RefundReason = "client_after_assignment"
	RefundServiceRendered       RefundReason = "service_rendered"
)

var (
	hundred = decimal.NewFromInt(100)

	// ErrNegativeTotal is returned when a discount exceeds the charges.
	ErrNegativeTotal = errors.New("total would be negative")
)

// DepositAmount is total * percent / 100 rounded to cents.
func DepositAmount(total, percent decimal.Decimal) decimal.Decimal {
	return total.Mul(percent).Div(hundred).Round(2)
}

// OutstandingBalance is what the client still owes, never negative.
func OutstandingBalance(total, netPaid decimal.Decimal) decimal.Decimal {
	return decimal.Max(total.Sub(netPaid), decimal.Zero)
}

// LineSubtotal is quantity * unit price rounded to cents.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// CalculateRefund evaluates the refund matrix. A nil changesDeadline is
// treated as already passed.
func CalculateRefund(p Policy, status Status, totalPaid decimal.Decimal, initiator Initiator, now time.Time, changesDeadline *time.Time) (decimal.Decimal, RefundReason) {
	if !totalPaid.IsPositive() {
		return decimal.Zero, RefundNoPayment
	}

	switch status {
	case StatusRequest, StatusNegotiation, StatusPreScheduled:
		return decimal.Zero, RefundPreConfirmation
	case StatusConfirmed:
		if changesDeadline != nil && !now.After(*changesDeadline) {
			return totalPaid, RefundWithinDeadline
		}
		return percentOf(totalPaid, p.LateCancelRefundPercent), RefundAfterDeadline
	case StatusAssigned:
		if initiator == InitiatorCompany || initiator == InitiatorForceMajeure {
			return percentOf(totalPaid, p.CompanyFaultRefundPercent), RefundCompanyFault
		}
		return decimal.Zero, RefundClientAfterAssignment
	}
	return decimal.Zero, RefundServiceRendered
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred).Round(2)
}

// Totals is the result of re-summing a booking's charges.
type Totals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// RecalculateTotal sums the line items from scratch and applies
// transportation and discount.
func RecalculateTotal(items []LineItem, transportation, discount decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Subtotal)
	}
	total := subtotal.Add(transportation).Sub(discount).Round(2)
	if total.IsNegative() {
		return Totals{}, ErrNegativeTotal
	}
	return Totals{Subtotal: subtotal.Round(2), Total: total}, nil
}
