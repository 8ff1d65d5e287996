package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// SecondDepositRule decides what happens to a deposit-type payment when
// the booking already has one.
type SecondDepositRule string

const (
	SecondDepositReject    SecondDepositRule = "reject"
	SecondDepositAsBalance SecondDepositRule = "as_balance"
)

// Policy holds the tunable business constants. It is passed explicitly to
// every calculation so tests can vary it per case.
type Policy struct {
	DepositPercent            decimal.Decimal
	PaymentDeadlineDays       int
	ChangesDeadlineDays       int
	EditingDays               int
	LateCancelRefundPercent   decimal.Decimal
	CompanyFaultRefundPercent decimal.Decimal
	SecondDeposit             SecondDepositRule
	RequireSettlement         bool
}

// DefaultPolicy returns the studio's standard terms.
func DefaultPolicy() Policy {
	return Policy{
		DepositPercent:            decimal.NewFromInt(50),
		PaymentDeadlineDays:       5,
		ChangesDeadlineDays:       7,
		EditingDays:               5,
		LateCancelRefundPercent:   decimal.NewFromInt(50),
		CompanyFaultRefundPercent: decimal.NewFromInt(100),
		SecondDeposit:             SecondDepositReject,
	}
}

// Validate rejects policies that would make calculations meaningless.
func (p Policy) Validate() error {
	hundred := decimal.NewFromInt(100)
	for name, pct := range map[string]decimal.Decimal{
		"deposit_percent":              p.DepositPercent,
		"late_cancel_refund_percent":   p.LateCancelRefundPercent,
		"company_fault_refund_percent": p.CompanyFaultRefundPercent,
	} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return fmt.Errorf("policy: %s must be within [0, 100], got %s", name, pct)
		}
	}
	if p.PaymentDeadlineDays < 0 || p.ChangesDeadlineDays < 0 || p.EditingDays < 0 {
		return fmt.Errorf("policy: day counts must not be negative")
	}
	switch p.SecondDeposit {
	case SecondDepositReject, SecondDepositAsBalance:
	default:
		return fmt.Errorf("policy: unknown second deposit rule %q", p.SecondDeposit)
	}
	return nil
}

// StaticPolicy serves a fixed policy.
type StaticPolicy Policy

// Policy implements PolicySource.
func (s StaticPolicy) Policy(context.Context) (Policy, error) {
	return Policy(s), nil
}
