package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/studiobook/internal/domain"
)

const tracerName = "github.com/neomorfeo/studiobook/internal/adapter/otel"

// TracingRepository wraps a domain.BookingRepository with OpenTelemetry tracing.
// Each method creates a span with booking attributes and records errors.
type TracingRepository struct {
	next   domain.BookingRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.BookingRepository.
var _ domain.BookingRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.BookingRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, b domain.Booking, entry domain.StatusHistoryEntry) error {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.Create",
		trace.WithAttributes(
			attribute.String("booking.id", b.ID),
			attribute.String("booking.kind", string(b.Kind)),
			attribute.Int("booking.assignments", len(b.Assignments)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, b, entry)
	recordError(span, err)
	return err
}

func (r *TracingRepository) Get(ctx context.Context, id string) (domain.Booking, error) {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.Get",
		trace.WithAttributes(attribute.String("booking.id", id)),
	)
	defer span.End()

	b, err := r.next.Get(ctx, id)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(
			attribute.String("booking.status", string(b.Status)),
			attribute.Int("booking.version", b.Version),
		)
	}
	return b, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Booking, error) {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.ClientID != "" {
		span.SetAttributes(attribute.String("filter.client_id", filter.ClientID))
	}

	bookings, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(bookings)))
	}
	return bookings, err
}

func (r *TracingRepository) Save(ctx context.Context, c domain.Change) error {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.Save",
		trace.WithAttributes(
			attribute.String("booking.id", c.Booking.ID),
			attribute.String("booking.status", string(c.Booking.Status)),
			attribute.Int("booking.expected_version", c.ExpectedVersion),
			attribute.Int("history.entries", len(c.History)),
		),
	)
	defer span.End()

	err := r.next.Save(ctx, c)
	recordError(span, err)
	return err
}

func (r *TracingRepository) ActiveAssignments(ctx context.Context, key domain.ResourceKey) ([]domain.ResourceAssignment, error) {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.ActiveAssignments",
		trace.WithAttributes(attribute.String("resource.key", key.String())),
	)
	defer span.End()

	out, err := r.next.ActiveAssignments(ctx, key)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (r *TracingRepository) History(ctx context.Context, bookingID string) ([]domain.StatusHistoryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "BookingRepository.History",
		trace.WithAttributes(attribute.String("booking.id", bookingID)),
	)
	defer span.End()

	entries, err := r.next.History(ctx, bookingID)
	recordError(span, err)
	return entries, err
}

// recordError marks the span failed when err is non-nil.
func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
