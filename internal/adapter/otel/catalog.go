package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// TracingCatalog wraps a domain.CatalogStore with OpenTelemetry tracing.
type TracingCatalog struct {
	next   domain.CatalogStore
	tracer trace.Tracer
}

// Compile-time check: TracingCatalog implements domain.CatalogStore.
var _ domain.CatalogStore = (*TracingCatalog)(nil)

// NewTracingCatalog creates a tracing decorator around the given catalog.
func NewTracingCatalog(next domain.CatalogStore) *TracingCatalog {
	return &TracingCatalog{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (c *TracingCatalog) GetOffering(ctx context.Context, id string) (domain.Offering, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.GetOffering",
		trace.WithAttributes(attribute.String("offering.id", id)),
	)
	defer span.End()

	o, err := c.next.GetOffering(ctx, id)
	recordError(span, err)
	return o, err
}

func (c *TracingCatalog) GetBundle(ctx context.Context, id string) (domain.Bundle, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.GetBundle",
		trace.WithAttributes(attribute.String("bundle.id", id)),
	)
	defer span.End()

	b, err := c.next.GetBundle(ctx, id)
	recordError(span, err)
	return b, err
}

func (c *TracingCatalog) GetBundleComponents(ctx context.Context, bundleID string) ([]domain.BundleComponent, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.GetBundleComponents",
		trace.WithAttributes(attribute.String("bundle.id", bundleID)),
	)
	defer span.End()

	out, err := c.next.GetBundleComponents(ctx, bundleID)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (c *TracingCatalog) SaveOffering(ctx context.Context, o domain.Offering) error {
	ctx, span := c.tracer.Start(ctx, "Catalog.SaveOffering",
		trace.WithAttributes(
			attribute.String("offering.id", o.ID),
			attribute.String("offering.code", o.Code),
		),
	)
	defer span.End()

	err := c.next.SaveOffering(ctx, o)
	recordError(span, err)
	return err
}

func (c *TracingCatalog) SaveBundle(ctx context.Context, b domain.Bundle, components []domain.BundleComponent) error {
	ctx, span := c.tracer.Start(ctx, "Catalog.SaveBundle",
		trace.WithAttributes(
			attribute.String("bundle.id", b.ID),
			attribute.String("bundle.code", b.Code),
			attribute.Int("bundle.components", len(components)),
		),
	)
	defer span.End()

	err := c.next.SaveBundle(ctx, b, components)
	recordError(span, err)
	return err
}

func (c *TracingCatalog) ListOfferings(ctx context.Context, filter domain.CatalogFilter) ([]domain.Offering, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.ListOfferings",
		trace.WithAttributes(attribute.Bool("filter.include_inactive", filter.IncludeInactive)),
	)
	defer span.End()

	out, err := c.next.ListOfferings(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (c *TracingCatalog) ListBundles(ctx context.Context, filter domain.CatalogFilter) ([]domain.Bundle, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.ListBundles",
		trace.WithAttributes(attribute.Bool("filter.include_inactive", filter.IncludeInactive)),
	)
	defer span.End()

	out, err := c.next.ListBundles(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}
