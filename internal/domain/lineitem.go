package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKind names the closed set of line item origins.
type LineKind string

const (
	LineOffering   LineKind = "offering"
	LineBundle     LineKind = "bundle"
	LineAdjustment LineKind = "adjustment"
)

// LineSource records where a line item came from. The set of
// implementations is closed: OfferingSource, BundleSource, AdjustmentSource.
type LineSource interface {
	Kind() LineKind
	lineSource()
}

// OfferingSource marks a line attached from a single catalog offering.
type OfferingSource struct {
	OfferingID string
}

// BundleSource marks a line expanded from a bundle component.
type BundleSource struct {
	BundleID   string
	OfferingID string
}

// AdjustmentSource marks a manual line entered by a coordinator.
type AdjustmentSource struct{}

func (OfferingSource) Kind() LineKind   { return LineOffering }
func (BundleSource) Kind() LineKind     { return LineBundle }
func (AdjustmentSource) Kind() LineKind { return LineAdjustment }

func (OfferingSource) lineSource()   {}
func (BundleSource) lineSource()     {}
func (AdjustmentSource) lineSource() {}

// SourceFromParts rebuilds a LineSource from its stored columns.
func SourceFromParts(kind LineKind, offeringID, bundleID string) (LineSource, bool) {
	switch kind {
	case LineOffering:
		return OfferingSource{OfferingID: offeringID}, true
	case LineBundle:
		return BundleSource{BundleID: bundleID, OfferingID: offeringID}, true
	case LineAdjustment:
		return AdjustmentSource{}, true
	}
	return nil, false
}

// SourceParts flattens a LineSource into storable columns.
func SourceParts(src LineSource) (kind LineKind, offeringID, bundleID string) {
	switch s := src.(type) {
	case OfferingSource:
		return LineOffering, s.OfferingID, ""
	case BundleSource:
		return LineBundle, s.OfferingID, s.BundleID
	case AdjustmentSource:
		return LineAdjustment, "", ""
	}
	panic("domain: unknown line source")
}

// LineItem is an immutable priced entry on a booking. Code, name,
// description and unit price are copied from the catalog when the line is
// created and never re-read.
type LineItem struct {
	ID          string
	BookingID   string
	Source      LineSource
	Code        string
	Name        string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	CreatedBy   string
	CreatedAt   time.Time
}

// NewLineItem builds a line and computes its subtotal.
func NewLineItem(src LineSource, code, name, description string, quantity int, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		Source:      src,
		Code:        code,
		Name:        name,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    LineSubtotal(quantity, unitPrice),
	}
}
