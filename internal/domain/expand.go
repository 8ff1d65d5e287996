package domain

import "fmt"

// MaxQuantity bounds the quantity of any single line item, including a
// bundle component after multiplication.
const MaxQuantity = 10_000

// PricedComponent is a bundle component joined with the catalog snapshot of
// its offering, read at the moment the bundle is attached.
type PricedComponent struct {
	Offering Offering
	Quantity int
}

// ExpandBundle turns a bundle into one line item per active component.
// Quantities are multiplied by multiplier. The returned lines carry no IDs
// or owner; the caller stamps them when attaching.
func ExpandBundle(bundle Bundle, components []PricedComponent, multiplier int) ([]LineItem, error) {
	if multiplier < 1 || multiplier > MaxQuantity {
		return nil, &InvalidInputError{Field: "quantity", Reason: fmt.Sprintf("must be between 1 and %d", MaxQuantity)}
	}

	items := make([]LineItem, 0, len(components))
	for _, c := range components {
		if c.Offering.Status == CatalogInactive {
			continue
		}
		if c.Quantity < 1 {
			return nil, &InvalidInputError{Field: "component_quantity", Reason: "bundle " + bundle.Code + " has a component with quantity below 1"}
		}
		if c.Quantity > MaxQuantity/multiplier {
			return nil, &InvalidInputError{Field: "quantity", Reason: fmt.Sprintf("bundle %s would expand beyond %d units of %s", bundle.Code, MaxQuantity, c.Offering.Code)}
		}
		items = append(items, NewLineItem(
			BundleSource{BundleID: bundle.ID, OfferingID: c.Offering.ID},
			c.Offering.Code,
			c.Offering.Name,
			c.Offering.Description,
			c.Quantity*multiplier,
			c.Offering.UnitPrice,
		))
	}

	if len(items) == 0 {
		return nil, &InvalidInputError{Field: "bundle_id", Reason: "bundle " + bundle.Code + " has no active components"}
	}
	return items, nil
}
