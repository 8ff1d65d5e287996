package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/domain"
)

// --- Offerings ---

type CreateOfferingInput struct {
	Body struct {
		Code        string `json:"code" minLength:"1" maxLength:"64" doc:"Unique catalog code"`
		Name        string `json:"name" minLength:"1" maxLength:"255"`
		Description string `json:"description,omitempty"`
		UnitPrice   string `json:"unit_price" pattern:"^[0-9]+(\\.[0-9]{1,2})?$"`
	}
}

type OfferingOutput struct {
	Body OfferingResponse
}

type UpdatePriceInput struct {
	ID   string `path:"id" doc:"Offering ID"`
	Body struct {
		UnitPrice string `json:"unit_price" pattern:"^[0-9]+(\\.[0-9]{1,2})?$"`
	}
}

type OfferingPathInput struct {
	ID string `path:"id" doc:"Offering ID"`
}

type ListCatalogInput struct {
	IncludeInactive bool `query:"include_inactive" required:"false" doc:"Include deactivated entries"`
}

type ListOfferingsOutput struct {
	Body []OfferingResponse
}

// --- Bundles ---

type CreateBundleInput struct {
	Body struct {
		Code         string           `json:"code" minLength:"1" maxLength:"64"`
		Name         string           `json:"name" minLength:"1" maxLength:"255"`
		Description  string           `json:"description,omitempty"`
		NominalPrice string           `json:"nominal_price,omitempty" pattern:"^[0-9]+(\\.[0-9]{1,2})?$" doc:"Informational list price"`
		Scope        string           `json:"scope,omitempty" enum:"in_studio,on_location,any" default:"any"`
		Components   []ComponentInput `json:"components" minItems:"1"`
	}
}

type BundlePathInput struct {
	ID string `path:"id" doc:"Bundle ID"`
}

type SetComponentsInput struct {
	ID   string `path:"id" doc:"Bundle ID"`
	Body struct {
		Components []ComponentInput `json:"components" minItems:"1"`
	}
}

type ComponentInput struct {
	OfferingID string `json:"offering_id" minLength:"1"`
	Quantity   int    `json:"quantity" minimum:"1" maximum:"10000"`
}

type ComponentsOutput struct {
	Body []BundleComponentResponse
}

type BundleOutput struct {
	Body BundleResponse
}

type ListBundlesOutput struct {
	Body []BundleResponse
}

func registerCatalog(api huma.API, svc *app.CatalogService) {
	tags := []string{"Catalog"}

	huma.Register(api, huma.Operation{
		OperationID:   "create-offering",
		Method:        http.MethodPost,
		Path:          "/api/v1/offerings",
		Summary:       "Create a catalog offering",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateOfferingInput) (*OfferingOutput, error) {
		price, err := parseMoney("unit_price", input.Body.UnitPrice)
		if err != nil {
			return nil, err
		}
		o, err := svc.CreateOffering(ctx, input.Body.Code, input.Body.Name, input.Body.Description, price)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &OfferingOutput{Body: toOfferingResponse(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-offerings",
		Method:      http.MethodGet,
		Path:        "/api/v1/offerings",
		Summary:     "List catalog offerings",
		Tags:        tags,
	}, func(ctx context.Context, input *ListCatalogInput) (*ListOfferingsOutput, error) {
		offerings, err := svc.ListOfferings(ctx, domain.CatalogFilter{IncludeInactive: input.IncludeInactive})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]OfferingResponse, len(offerings))
		for i, o := range offerings {
			resp[i] = toOfferingResponse(o)
		}
		return &ListOfferingsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-offering-price",
		Method:      http.MethodPut,
		Path:        "/api/v1/offerings/{id}/price",
		Summary:     "Change an offering's list price",
		Description: "Line items already on bookings keep the price they were sold at.",
		Tags:        tags,
	}, func(ctx context.Context, input *UpdatePriceInput) (*OfferingOutput, error) {
		price, err := parseMoney("unit_price", input.Body.UnitPrice)
		if err != nil {
			return nil, err
		}
		o, err := svc.UpdateOfferingPrice(ctx, input.ID, price)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &OfferingOutput{Body: toOfferingResponse(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deactivate-offering",
		Method:        http.MethodDelete,
		Path:          "/api/v1/offerings/{id}",
		Summary:       "Deactivate an offering",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *OfferingPathInput) (*struct{}, error) {
		if err := svc.DeactivateOffering(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reactivate-offering",
		Method:        http.MethodPost,
		Path:          "/api/v1/offerings/{id}/reactivate",
		Summary:       "Reactivate an offering",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *OfferingPathInput) (*struct{}, error) {
		if err := svc.ReactivateOffering(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-bundle",
		Method:        http.MethodPost,
		Path:          "/api/v1/bundles",
		Summary:       "Create a bundle of offerings",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBundleInput) (*BundleOutput, error) {
		nominal, err := parseMoney("nominal_price", input.Body.NominalPrice)
		if err != nil {
			return nil, err
		}
		bundle := domain.Bundle{
			Code:         input.Body.Code,
			Name:         input.Body.Name,
			Description:  input.Body.Description,
			NominalPrice: nominal,
			Scope:        domain.BundleScope(input.Body.Scope),
		}
		b, err := svc.CreateBundle(ctx, bundle, toComponents(input.Body.Components))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BundleOutput{Body: toBundleResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-bundles",
		Method:      http.MethodGet,
		Path:        "/api/v1/bundles",
		Summary:     "List bundles",
		Tags:        tags,
	}, func(ctx context.Context, input *ListCatalogInput) (*ListBundlesOutput, error) {
		bundles, err := svc.ListBundles(ctx, domain.CatalogFilter{IncludeInactive: input.IncludeInactive})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]BundleResponse, len(bundles))
		for i, b := range bundles {
			resp[i] = toBundleResponse(b)
		}
		return &ListBundlesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-bundle-components",
		Method:      http.MethodGet,
		Path:        "/api/v1/bundles/{id}/components",
		Summary:     "Show a bundle's composition",
		Tags:        tags,
	}, func(ctx context.Context, input *BundlePathInput) (*ComponentsOutput, error) {
		components, err := svc.BundleComponents(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ComponentsOutput{Body: toComponentResponses(components)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-bundle-components",
		Method:      http.MethodPut,
		Path:        "/api/v1/bundles/{id}/components",
		Summary:     "Replace a bundle's composition",
		Description: "Bookings that already expanded the bundle keep their line items.",
		Tags:        tags,
	}, func(ctx context.Context, input *SetComponentsInput) (*ComponentsOutput, error) {
		components := toComponents(input.Body.Components)
		if _, err := svc.SetBundleComponents(ctx, input.ID, components); err != nil {
			return nil, toHumaError(err)
		}
		return &ComponentsOutput{Body: toComponentResponses(components)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deactivate-bundle",
		Method:        http.MethodDelete,
		Path:          "/api/v1/bundles/{id}",
		Summary:       "Deactivate a bundle",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *BundlePathInput) (*struct{}, error) {
		if err := svc.DeactivateBundle(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reactivate-bundle",
		Method:        http.MethodPost,
		Path:          "/api/v1/bundles/{id}/reactivate",
		Summary:       "Reactivate a bundle",
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *BundlePathInput) (*struct{}, error) {
		if err := svc.ReactivateBundle(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})
}

func toComponents(in []ComponentInput) []domain.BundleComponent {
	components := make([]domain.BundleComponent, len(in))
	for i, c := range in {
		components[i] = domain.BundleComponent{OfferingID: c.OfferingID, Quantity: c.Quantity}
	}
	return components
}
