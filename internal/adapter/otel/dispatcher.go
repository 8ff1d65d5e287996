package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// TracingDispatcher wraps a domain.Dispatcher with a span per intent and a
// counter of dispatched intents by type. Every accepted transition emits an
// intent, so the counter doubles as a transition count.
type TracingDispatcher struct {
	next       domain.Dispatcher
	tracer     trace.Tracer
	dispatched metric.Int64Counter
}

// Compile-time check: TracingDispatcher implements domain.Dispatcher.
var _ domain.Dispatcher = (*TracingDispatcher)(nil)

// NewTracingDispatcher creates a tracing decorator around the given dispatcher.
func NewTracingDispatcher(next domain.Dispatcher) *TracingDispatcher {
	counter, err := otel.Meter(tracerName).Int64Counter("studiobook.intents.dispatched",
		metric.WithDescription("Side-effect intents handed to the dispatcher"),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		otel.Handle(err)
		counter, _ = noop.NewMeterProvider().Meter(tracerName).Int64Counter("studiobook.intents.dispatched")
	}

	return &TracingDispatcher{
		next:       next,
		tracer:     otel.Tracer(tracerName),
		dispatched: counter,
	}
}

func (d *TracingDispatcher) Dispatch(ctx context.Context, intent domain.Intent) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.Dispatch",
		trace.WithAttributes(
			attribute.String("intent.type", string(intent.Type)),
			attribute.String("booking.id", intent.BookingID),
		),
	)
	defer span.End()

	err := d.next.Dispatch(ctx, intent)
	recordError(span, err)

	d.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("intent.type", string(intent.Type)),
		attribute.Bool("error", err != nil),
	))
	return err
}
