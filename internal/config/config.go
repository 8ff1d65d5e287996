// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// Config is the process configuration. OpenTelemetry settings are read
// separately by the otel adapter from OTEL_* variables.
type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	DatabasePath    string        `envconfig:"DATABASE_PATH" default:"studiobook.db"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text"` // "text" or "json"
	LogLevel        slog.Level    `envconfig:"LOG_LEVEL" default:"info"`
	MaxAttempts     int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	Policy Policy `envconfig:"POLICY"`
}

// Policy mirrors domain.Policy with environment bindings (POLICY_*).
type Policy struct {
	DepositPercent            decimal.Decimal `envconfig:"DEPOSIT_PERCENT" default:"50"`
	PaymentDeadlineDays       int             `envconfig:"PAYMENT_DEADLINE_DAYS" default:"5"`
	ChangesDeadlineDays       int             `envconfig:"CHANGES_DEADLINE_DAYS" default:"7"`
	EditingDays               int             `envconfig:"EDITING_DAYS" default:"5"`
	LateCancelRefundPercent   decimal.Decimal `envconfig:"LATE_CANCEL_REFUND_PERCENT" default:"50"`
	CompanyFaultRefundPercent decimal.Decimal `envconfig:"COMPANY_FAULT_REFUND_PERCENT" default:"100"`
	SecondDeposit             string          `envconfig:"SECOND_DEPOSIT" default:"reject"`
	RequireSettlement         bool            `envconfig:"REQUIRE_SETTLEMENT" default:"false"`
}

// Domain converts the bound values into a domain.Policy.
func (p Policy) Domain() domain.Policy {
	return domain.Policy{
		DepositPercent:            p.DepositPercent,
		PaymentDeadlineDays:       p.PaymentDeadlineDays,
		ChangesDeadlineDays:       p.ChangesDeadlineDays,
		EditingDays:               p.EditingDays,
		LateCancelRefundPercent:   p.LateCancelRefundPercent,
		CompanyFaultRefundPercent: p.CompanyFaultRefundPercent,
		SecondDeposit:             domain.SecondDepositRule(p.SecondDeposit),
		RequireSettlement:         p.RequireSettlement,
	}
}

// Load reads the configuration and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot check on its own.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("config: MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("config: DISPATCH_TIMEOUT must be positive, got %s", c.DispatchTimeout)
	}
	return c.Policy.Domain().Validate()
}

// NewLogger builds the process logger: JSON for production, text otherwise.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
