package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	adapter "github.com/neomorfeo/studiobook/internal/adapter/otel"
	"github.com/neomorfeo/studiobook/internal/domain"
)

// --- Mock dispatchers ---

type mockDispatcher struct {
	intents []domain.Intent
}

func (m *mockDispatcher) Dispatch(_ context.Context, in domain.Intent) error {
	m.intents = append(m.intents, in)
	return nil
}

type failingDispatcher struct{}

func (d *failingDispatcher) Dispatch(_ context.Context, _ domain.Intent) error {
	return fmt.Errorf("queue unavailable")
}

func setupTestMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

// dispatchedCount sums the intent counter for one intent type and error flag.
func dispatchedCount(t *testing.T, reader *sdkmetric.ManualReader, intentType string, failed bool) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "studiobook.intents.dispatched" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric data = %T, want Sum[int64]", m.Data)
			}
			for _, dp := range sum.DataPoints {
				typ, _ := dp.Attributes.Value(attribute.Key("intent.type"))
				errFlag, _ := dp.Attributes.Value(attribute.Key("error"))
				if typ.AsString() == intentType && errFlag.AsBool() == failed {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// --- Tests ---

func TestTracingDispatcher_Dispatch_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	setupTestMeter(t)
	inner := &mockDispatcher{}
	d := adapter.NewTracingDispatcher(inner)

	intent := domain.Intent{Type: domain.IntentBookingConfirmed, BookingID: "b-1", RecipientRef: "client-1"}
	if err := d.Dispatch(context.Background(), intent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Dispatcher.Dispatch" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Dispatcher.Dispatch")
	}

	assertAttribute(t, spans[0], "intent.type", "booking.confirmed")
	assertAttribute(t, spans[0], "booking.id", "b-1")

	if len(inner.intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(inner.intents))
	}
}

func TestTracingDispatcher_Dispatch_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	setupTestMeter(t)
	d := adapter.NewTracingDispatcher(&failingDispatcher{})

	err := d.Dispatch(context.Background(), domain.Intent{Type: domain.IntentBookingCanceled, BookingID: "b-1"})
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

func TestTracingDispatcher_CountsByType(t *testing.T) {
	setupTestTracer(t)
	reader := setupTestMeter(t)
	ok := adapter.NewTracingDispatcher(&mockDispatcher{})
	bad := adapter.NewTracingDispatcher(&failingDispatcher{})
	ctx := context.Background()

	for range 3 {
		_ = ok.Dispatch(ctx, domain.Intent{Type: domain.IntentPaymentRecorded, BookingID: "b-1"})
	}
	_ = ok.Dispatch(ctx, domain.Intent{Type: domain.IntentBookingAssigned, BookingID: "b-1"})
	_ = bad.Dispatch(ctx, domain.Intent{Type: domain.IntentPaymentRecorded, BookingID: "b-1"})

	if got := dispatchedCount(t, reader, "payment.recorded", false); got != 3 {
		t.Errorf("payment.recorded ok = %d, want 3", got)
	}
	if got := dispatchedCount(t, reader, "payment.recorded", true); got != 1 {
		t.Errorf("payment.recorded failed = %d, want 1", got)
	}
	if got := dispatchedCount(t, reader, "booking.assigned", false); got != 1 {
		t.Errorf("booking.assigned ok = %d, want 1", got)
	}
}
