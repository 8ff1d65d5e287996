package domain

import "github.com/shopspring/decimal"

// CatalogStatus is the soft-delete flag of catalog entries. It is separate
// from a booking's lifecycle status.
type CatalogStatus string

const (
	CatalogActive   CatalogStatus = "active"
	CatalogInactive CatalogStatus = "inactive"
)

// Offering is a single sellable catalog unit.
type Offering struct {
	ID          string
	Code        string
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Status      CatalogStatus
}

// BundleScope restricts which booking kinds a bundle may be attached to.
type BundleScope string

const (
	ScopeInStudio   BundleScope = "in_studio"
	ScopeOnLocation BundleScope = "on_location"
	ScopeAny        BundleScope = "any"
)

// Allows reports whether a bundle with this scope fits a booking kind.
func (s BundleScope) Allows(k Kind) bool {
	switch s {
	case ScopeAny, "":
		return true
	case ScopeInStudio:
		return k == KindInStudio
	case ScopeOnLocation:
		return k == KindOnLocation
	}
	return false
}

// Bundle is a named collection of offerings sold together. NominalPrice is
// informational; bookings are priced from the expanded components.
type Bundle struct {
	ID           string
	Code         string
	Name         string
	Description  string
	NominalPrice decimal.Decimal
	Scope        BundleScope
	Status       CatalogStatus
}

// BundleComponent is one offering in a bundle.
type BundleComponent struct {
	OfferingID string
	Quantity   int
}

// CatalogFilter narrows catalog listings. Inactive entries are excluded
// unless IncludeInactive is set.
type CatalogFilter struct {
	IncludeInactive bool
}
