package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/studiobook/internal/domain"
)

const (
	defaultMaxAttempts     = 3
	defaultDispatchTimeout = 5 * time.Second
)

// BookingService is the single entry point for every booking mutation.
// It holds no booking state of its own; all durable state lives behind the
// repository.
type BookingService struct {
	repo       domain.BookingRepository
	catalog    domain.CatalogSource
	validator  domain.TransitionValidator
	dispatcher domain.Dispatcher
	policies   domain.PolicySource

	checker         *AvailabilityChecker
	locker          ResourceLocker
	clock           domain.Clock
	logger          *slog.Logger
	maxAttempts     int
	dispatchTimeout time.Duration
}

// Option customizes a BookingService.
type Option func(*BookingService)

// WithClock replaces the wall clock.
func WithClock(c domain.Clock) Option {
	return func(s *BookingService) { s.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *BookingService) { s.logger = l }
}

// WithLocker replaces the in-process resource locker, e.g. with a
// distributed one when several engine processes share a store.
func WithLocker(l ResourceLocker) Option {
	return func(s *BookingService) { s.locker = l }
}

// WithMaxAttempts bounds optimistic-concurrency retries.
func WithMaxAttempts(n int) Option {
	return func(s *BookingService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithDispatchTimeout bounds how long post-commit dispatch may take.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

// NewBookingService creates a service with the given adapters.
func NewBookingService(
	repo domain.BookingRepository,
	catalog domain.CatalogSource,
	validator domain.TransitionValidator,
	dispatcher domain.Dispatcher,
	policies domain.PolicySource,
	opts ...Option,
) *BookingService {
	s := &BookingService{
		repo:            repo,
		catalog:         catalog,
		validator:       validator,
		dispatcher:      dispatcher,
		policies:        policies,
		checker:         NewAvailabilityChecker(repo),
		locker:          NewKeyedLocker(),
		clock:           domain.SystemClock{},
		logger:          slog.Default(),
		maxAttempts:     defaultMaxAttempts,
		dispatchTimeout: defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of an accepted command: the committed aggregate and
// the side-effect intents handed to the dispatcher.
type Result struct {
	Booking domain.Booking
	Intents []domain.Intent
}

// effects is what a mutation step produces besides the booking changes.
type effects struct {
	history []domain.StatusHistoryEntry
	intents []domain.Intent
}

// stepFunc mutates a freshly loaded booking in place.
type stepFunc func(b *domain.Booking, p domain.Policy, now time.Time) (effects, error)

// GetByID returns a booking aggregate.
func (s *BookingService) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	return s.load(ctx, id)
}

// List returns bookings matching the given filter.
func (s *BookingService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Booking, error) {
	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, &domain.DependencyError{Dependency: "repository", Op: "list bookings", Err: err}
	}
	return bookings, nil
}

// History returns the audit trail of a booking, oldest first.
func (s *BookingService) History(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, &domain.DependencyError{Dependency: "repository", Op: "load history", Err: err}
	}
	return entries, nil
}

// CheckAvailability reports whether a resource is free for an interval.
func (s *BookingService) CheckAvailability(ctx context.Context, key domain.ResourceKey, interval domain.Interval, excludeBookingID string) (bool, error) {
	if !key.Kind.Valid() || key.ResourceID == "" {
		return false, &domain.InvalidInputError{Field: "resource", Reason: "kind and id are required"}
	}
	return s.checker.IsAvailable(ctx, key, interval, excludeBookingID)
}

func (s *BookingService) load(ctx context.Context, id string) (domain.Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, &domain.DependencyError{Dependency: "repository", Op: "load booking", Err: err}
	}
	return b, nil
}

func (s *BookingService) policy(ctx context.Context) (domain.Policy, error) {
	p, err := s.policies.Policy(ctx)
	if err != nil {
		return domain.Policy{}, &domain.DependencyError{Dependency: "policy", Op: "load policy", Err: err}
	}
	return p, nil
}

// mutate runs step against a fresh copy of the booking and saves it,
// re-reading and retrying when another writer got there first.
func (s *BookingService) mutate(ctx context.Context, id, op string, step stepFunc) (Result, error) {
	p, err := s.policy(ctx)
	if err != nil {
		return Result{}, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		b, err := s.load(ctx, id)
		if err != nil {
			return Result{}, err
		}

		now := s.clock.Now()
		expected := b.Version

		fx, err := step(&b, p, now)
		if err != nil {
			return Result{}, err
		}

		b.UpdatedAt = now
		if err := b.CheckInvariants(); err != nil {
			s.logger.ErrorContext(ctx, "booking invariant violated",
				"booking_id", b.ID, "op", op, "error", err)
			return Result{}, err
		}

		err = s.repo.Save(ctx, domain.Change{Booking: b, ExpectedVersion: expected, History: fx.history})
		if errors.Is(err, domain.ErrVersionConflict) {
			s.logger.DebugContext(ctx, "version conflict, retrying",
				"booking_id", id, "op", op, "attempt", attempt)
			continue
		}
		if err != nil {
			var conflict *domain.ResourceConflictError
			if errors.As(err, &conflict) {
				return Result{}, conflict
			}
			return Result{}, &domain.DependencyError{Dependency: "repository", Op: op, Err: err}
		}

		b.Version = expected + 1
		s.dispatch(ctx, fx.intents)
		return Result{Booking: b, Intents: fx.intents}, nil
	}

	s.logger.WarnContext(ctx, "giving up after concurrent modifications",
		"booking_id", id, "op", op, "attempts", s.maxAttempts)
	return Result{}, &domain.ConcurrencyConflictError{BookingID: id, Attempts: s.maxAttempts}
}

// dispatch hands intents to the dispatcher after commit. It is detached
// from the caller's cancellation and a failure never undoes the change.
func (s *BookingService) dispatch(ctx context.Context, intents []domain.Intent) {
	if s.dispatcher == nil || len(intents) == 0 {
		return
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()

	for _, in := range intents {
		if err := s.dispatcher.Dispatch(dctx, in); err != nil {
			s.logger.WarnContext(ctx, "intent dispatch failed",
				"intent_type", string(in.Type), "booking_id", in.BookingID, "error", err)
		}
	}
}

func historyEntry(b *domain.Booking, from domain.Status, actor domain.Actor, reason string, override bool, now time.Time) domain.StatusHistoryEntry {
	return domain.StatusHistoryEntry{
		BookingID: b.ID,
		From:      from,
		To:        b.Status,
		ActorID:   actor.ID,
		Reason:    reason,
		Override:  override,
		ChangedAt: now,
	}
}

func notTerminal(b *domain.Booking) error {
	if b.Status.Terminal() {
		return &domain.GuardViolationError{
			Guard:   domain.GuardTerminal,
			Message: "booking is read-only in its current status",
			Values:  map[string]string{"status": string(b.Status)},
		}
	}
	return nil
}

func editable(b *domain.Booking) error {
	if !b.Status.Editable() {
		return &domain.GuardViolationError{
			Guard:   domain.GuardNotEditable,
			Message: "charges can only change during request or negotiation",
			Values:  map[string]string{"status": string(b.Status)},
		}
	}
	return nil
}

// recompute re-sums the booking and checks the paid amount still fits.
func recompute(b *domain.Booking) error {
	if err := b.Recompute(); err != nil {
		if errors.Is(err, domain.ErrNegativeTotal) {
			return &domain.InvalidInputError{Field: "discount", Reason: "total would be negative"}
		}
		return fmt.Errorf("recomputing totals: %w", err)
	}
	if b.NetPaid.GreaterThan(b.Total) {
		return &domain.GuardViolationError{
			Guard:   domain.GuardTotalBelowPaid,
			Message: "total cannot drop below what the client already paid",
			Values:  map[string]string{"total": b.Total.StringFixed(2), "net_paid": b.NetPaid.StringFixed(2)},
		}
	}
	return nil
}
