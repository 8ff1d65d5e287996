package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType gives the direction of a payment. Amounts are always positive.
type PaymentType string

const (
	PaymentDeposit PaymentType = "deposit"
	PaymentBalance PaymentType = "balance"
	PaymentRefund  PaymentType = "refund"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentDeposit || t == PaymentBalance || t == PaymentRefund
}

// Payment records money movement against a booking. Payments are never
// mutated; reversals are new refund entries.
type Payment struct {
	ID         string
	BookingID  string
	Type       PaymentType
	Amount     decimal.Decimal
	Method     string
	Note       string
	RecordedBy string
	RecordedAt time.Time
}

// NetPaid sums deposits and balances and subtracts refunds.
func NetPaid(payments []Payment) decimal.Decimal {
	net := decimal.Zero
	for _, p := range payments {
		switch p.Type {
		case PaymentDeposit, PaymentBalance:
			net = net.Add(p.Amount)
		case PaymentRefund:
			net = net.Sub(p.Amount)
		}
	}
	return net
}
