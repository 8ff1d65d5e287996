package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// CatalogService administers offerings and bundles. Bookings never read
// from it after attachment; their line items are snapshots.
type CatalogService struct {
	store domain.CatalogStore
}

// NewCatalogService creates a service over the given store.
func NewCatalogService(store domain.CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// CreateOffering adds an active offering.
func (s *CatalogService) CreateOffering(ctx context.Context, code, name, description string, unitPrice decimal.Decimal) (domain.Offering, error) {
	if code == "" || name == "" {
		return domain.Offering{}, &domain.InvalidInputError{Field: "code", Reason: "code and name are required"}
	}
	if unitPrice.IsNegative() {
		return domain.Offering{}, &domain.InvalidInputError{Field: "unit_price", Reason: "must not be negative"}
	}

	o := domain.Offering{
		ID:          newID(),
		Code:        code,
		Name:        name,
		Description: description,
		UnitPrice:   unitPrice.Round(2),
		Status:      domain.CatalogActive,
	}
	if err := s.store.SaveOffering(ctx, o); err != nil {
		return domain.Offering{}, storeError(err, "save offering")
	}
	return o, nil
}

// UpdateOfferingPrice changes the list price. Existing line items keep the
// price they were sold at.
func (s *CatalogService) UpdateOfferingPrice(ctx context.Context, id string, unitPrice decimal.Decimal) (domain.Offering, error) {
	if unitPrice.IsNegative() {
		return domain.Offering{}, &domain.InvalidInputError{Field: "unit_price", Reason: "must not be negative"}
	}
	o, err := s.store.GetOffering(ctx, id)
	if err != nil {
		return domain.Offering{}, storeError(err, "get offering")
	}
	o.UnitPrice = unitPrice.Round(2)
	if err := s.store.SaveOffering(ctx, o); err != nil {
		return domain.Offering{}, storeError(err, "save offering")
	}
	return o, nil
}

// DeactivateOffering soft-deletes an offering.
func (s *CatalogService) DeactivateOffering(ctx context.Context, id string) error {
	return s.setOfferingStatus(ctx, id, domain.CatalogInactive)
}

// ReactivateOffering makes a deactivated offering attachable again.
func (s *CatalogService) ReactivateOffering(ctx context.Context, id string) error {
	return s.setOfferingStatus(ctx, id, domain.CatalogActive)
}

func (s *CatalogService) setOfferingStatus(ctx context.Context, id string, status domain.CatalogStatus) error {
	o, err := s.store.GetOffering(ctx, id)
	if err != nil {
		return storeError(err, "get offering")
	}
	if o.Status == status {
		return nil
	}
	o.Status = status
	if err := s.store.SaveOffering(ctx, o); err != nil {
		return storeError(err, "save offering")
	}
	return nil
}

// CreateBundle adds an active bundle with its components. Every component
// must reference an existing offering.
func (s *CatalogService) CreateBundle(ctx context.Context, b domain.Bundle, components []domain.BundleComponent) (domain.Bundle, error) {
	if b.Code == "" || b.Name == "" {
		return domain.Bundle{}, &domain.InvalidInputError{Field: "code", Reason: "code and name are required"}
	}
	if err := s.checkComponents(ctx, components); err != nil {
		return domain.Bundle{}, err
	}

	b.ID = newID()
	b.Status = domain.CatalogActive
	if b.Scope == "" {
		b.Scope = domain.ScopeAny
	}
	b.NominalPrice = b.NominalPrice.Round(2)
	if err := s.store.SaveBundle(ctx, b, components); err != nil {
		return domain.Bundle{}, storeError(err, "save bundle")
	}
	return b, nil
}

// SetBundleComponents replaces the composition of a bundle. Bookings that
// already expanded the bundle keep their line items.
func (s *CatalogService) SetBundleComponents(ctx context.Context, id string, components []domain.BundleComponent) (domain.Bundle, error) {
	b, err := s.store.GetBundle(ctx, id)
	if err != nil {
		return domain.Bundle{}, storeError(err, "get bundle")
	}
	if err := s.checkComponents(ctx, components); err != nil {
		return domain.Bundle{}, err
	}
	if err := s.store.SaveBundle(ctx, b, components); err != nil {
		return domain.Bundle{}, storeError(err, "save bundle")
	}
	return b, nil
}

// BundleComponents returns the current composition of a bundle.
func (s *CatalogService) BundleComponents(ctx context.Context, id string) ([]domain.BundleComponent, error) {
	components, err := s.store.GetBundleComponents(ctx, id)
	if err != nil {
		return nil, storeError(err, "get bundle components")
	}
	return components, nil
}

// DeactivateBundle soft-deletes a bundle.
func (s *CatalogService) DeactivateBundle(ctx context.Context, id string) error {
	return s.setBundleStatus(ctx, id, domain.CatalogInactive)
}

// ReactivateBundle makes a deactivated bundle attachable again.
func (s *CatalogService) ReactivateBundle(ctx context.Context, id string) error {
	return s.setBundleStatus(ctx, id, domain.CatalogActive)
}

func (s *CatalogService) setBundleStatus(ctx context.Context, id string, status domain.CatalogStatus) error {
	b, err := s.store.GetBundle(ctx, id)
	if err != nil {
		return storeError(err, "get bundle")
	}
	if b.Status == status {
		return nil
	}
	components, err := s.store.GetBundleComponents(ctx, id)
	if err != nil {
		return storeError(err, "get bundle components")
	}
	b.Status = status
	if err := s.store.SaveBundle(ctx, b, components); err != nil {
		return storeError(err, "save bundle")
	}
	return nil
}

// ListOfferings returns offerings; inactive ones only when asked for.
func (s *CatalogService) ListOfferings(ctx context.Context, filter domain.CatalogFilter) ([]domain.Offering, error) {
	offerings, err := s.store.ListOfferings(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list offerings")
	}
	return offerings, nil
}

// ListBundles returns bundles; inactive ones only when asked for.
func (s *CatalogService) ListBundles(ctx context.Context, filter domain.CatalogFilter) ([]domain.Bundle, error) {
	bundles, err := s.store.ListBundles(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list bundles")
	}
	return bundles, nil
}

func (s *CatalogService) checkComponents(ctx context.Context, components []domain.BundleComponent) error {
	if len(components) == 0 {
		return &domain.InvalidInputError{Field: "components", Reason: "a bundle needs at least one offering"}
	}
	for _, c := range components {
		if c.Quantity < 1 || c.Quantity > domain.MaxQuantity {
			return &domain.InvalidInputError{Field: "components", Reason: fmt.Sprintf("quantities must be between 1 and %d", domain.MaxQuantity)}
		}
		if _, err := s.store.GetOffering(ctx, c.OfferingID); err != nil {
			if errors.Is(err, domain.ErrOfferingNotFound) {
				return &domain.InvalidInputError{Field: "components", Reason: "unknown offering " + c.OfferingID}
			}
			return storeError(err, "get offering")
		}
	}
	return nil
}

// storeError keeps not-found sentinels and typed rejections, such as a
// duplicate code, and reports anything else as an unavailable catalog.
func storeError(err error, op string) error {
	var rejection domain.Rejection
	switch {
	case errors.Is(err, domain.ErrOfferingNotFound), errors.Is(err, domain.ErrBundleNotFound):
		return err
	case errors.As(err, &rejection):
		return err
	}
	return &domain.DependencyError{Dependency: "catalog", Op: op, Err: err}
}
