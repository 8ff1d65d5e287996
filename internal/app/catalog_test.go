package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/domain"
)

func TestCatalogService_Offerings(t *testing.T) {
	store := newMemCatalog()
	svc := app.NewCatalogService(store)
	ctx := context.Background()

	o, err := svc.CreateOffering(ctx, "HEADSHOT", "Headshot session", "30 minutes", money("149.999"))
	if err != nil {
		t.Fatalf("CreateOffering failed: %v", err)
	}
	if o.ID == "" || o.Status != domain.CatalogActive || !o.UnitPrice.Equal(money("150")) {
		t.Errorf("offering = %+v", o)
	}

	if _, err := svc.CreateOffering(ctx, "HEADSHOT", "Again", "", money("1")); err == nil {
		t.Error("expected duplicate code to be rejected")
	}

	var invalid *domain.InvalidInputError
	if _, err := svc.CreateOffering(ctx, "", "No code", "", money("1")); !errors.As(err, &invalid) {
		t.Errorf("missing code: got %v", err)
	}
	if _, err := svc.CreateOffering(ctx, "NEG", "Negative", "", money("-1")); !errors.As(err, &invalid) || invalid.Field != "unit_price" {
		t.Errorf("negative price: got %v", err)
	}

	updated, err := svc.UpdateOfferingPrice(ctx, o.ID, money("175"))
	if err != nil {
		t.Fatalf("UpdateOfferingPrice failed: %v", err)
	}
	if !updated.UnitPrice.Equal(money("175")) {
		t.Errorf("UnitPrice = %s, want 175", updated.UnitPrice)
	}
	if _, err := svc.UpdateOfferingPrice(ctx, "missing", money("1")); !errors.Is(err, domain.ErrOfferingNotFound) {
		t.Errorf("missing offering: got %v", err)
	}

	if err := svc.DeactivateOffering(ctx, o.ID); err != nil {
		t.Fatalf("DeactivateOffering failed: %v", err)
	}
	active, _ := svc.ListOfferings(ctx, domain.CatalogFilter{})
	if len(active) != 0 {
		t.Errorf("active offerings = %d, want 0", len(active))
	}
	all, _ := svc.ListOfferings(ctx, domain.CatalogFilter{IncludeInactive: true})
	if len(all) != 1 || all[0].Status != domain.CatalogInactive {
		t.Errorf("all offerings = %+v", all)
	}
}

func TestCatalogService_Bundles(t *testing.T) {
	store := newMemCatalog()
	store.addOffering("off-a", "DIGITAL", "10")
	svc := app.NewCatalogService(store)
	ctx := context.Background()

	b, err := svc.CreateBundle(ctx, domain.Bundle{Code: "STARTER", Name: "Starter"},
		[]domain.BundleComponent{{OfferingID: "off-a", Quantity: 3}})
	if err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}
	if b.Scope != domain.ScopeAny || b.Status != domain.CatalogActive {
		t.Errorf("bundle = %+v", b)
	}
	components, _ := store.GetBundleComponents(ctx, b.ID)
	if len(components) != 1 || components[0].Quantity != 3 {
		t.Errorf("components = %+v", components)
	}

	tests := []struct {
		name       string
		components []domain.BundleComponent
	}{
		{"empty", nil},
		{"unknown offering", []domain.BundleComponent{{OfferingID: "missing", Quantity: 1}}},
		{"zero quantity", []domain.BundleComponent{{OfferingID: "off-a", Quantity: 0}}},
		{"quantity above max", []domain.BundleComponent{{OfferingID: "off-a", Quantity: domain.MaxQuantity + 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBundle(ctx, domain.Bundle{Code: "BAD", Name: "Bad"}, tt.components)
			var invalid *domain.InvalidInputError
			if !errors.As(err, &invalid) || invalid.Field != "components" {
				t.Errorf("expected InvalidInputError on components, got %v", err)
			}
		})
	}

	listed, _ := svc.ListBundles(ctx, domain.CatalogFilter{})
	if len(listed) != 1 || listed[0].Code != "STARTER" {
		t.Errorf("bundles = %+v", listed)
	}
}

func TestCatalogService_BundleAdministration(t *testing.T) {
	store := newMemCatalog()
	store.addOffering("off-a", "DIGITAL", "10")
	store.addOffering("off-b", "ALBUM", "50")
	svc := app.NewCatalogService(store)
	ctx := context.Background()

	b, err := svc.CreateBundle(ctx, domain.Bundle{Code: "STARTER", Name: "Starter"},
		[]domain.BundleComponent{{OfferingID: "off-a", Quantity: 3}})
	if err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}

	if _, err := svc.SetBundleComponents(ctx, b.ID, []domain.BundleComponent{
		{OfferingID: "off-a", Quantity: 5},
		{OfferingID: "off-b", Quantity: 1},
	}); err != nil {
		t.Fatalf("SetBundleComponents failed: %v", err)
	}
	components, err := svc.BundleComponents(ctx, b.ID)
	if err != nil || len(components) != 2 || components[0].Quantity != 5 {
		t.Errorf("components = %+v, %v", components, err)
	}

	var invalid *domain.InvalidInputError
	if _, err := svc.SetBundleComponents(ctx, b.ID, nil); !errors.As(err, &invalid) || invalid.Field != "components" {
		t.Errorf("empty composition: got %v", err)
	}
	if _, err := svc.SetBundleComponents(ctx, "missing", components); !errors.Is(err, domain.ErrBundleNotFound) {
		t.Errorf("missing bundle: got %v", err)
	}

	if err := svc.DeactivateBundle(ctx, b.ID); err != nil {
		t.Fatalf("DeactivateBundle failed: %v", err)
	}
	if active, _ := svc.ListBundles(ctx, domain.CatalogFilter{}); len(active) != 0 {
		t.Errorf("active bundles = %d, want 0", len(active))
	}
	if err := svc.ReactivateBundle(ctx, b.ID); err != nil {
		t.Fatalf("ReactivateBundle failed: %v", err)
	}
	got, _ := store.GetBundle(ctx, b.ID)
	if got.Status != domain.CatalogActive {
		t.Errorf("Status = %s, want active", got.Status)
	}
	if components, _ := store.GetBundleComponents(ctx, b.ID); len(components) != 2 {
		t.Errorf("reactivation changed composition: %+v", components)
	}
	if err := svc.DeactivateBundle(ctx, "missing"); !errors.Is(err, domain.ErrBundleNotFound) {
		t.Errorf("missing bundle: got %v", err)
	}
}

func TestCatalogService_ReactivateOffering(t *testing.T) {
	store := newMemCatalog()
	store.addOffering("off-a", "DIGITAL", "10")
	svc := app.NewCatalogService(store)
	ctx := context.Background()

	if err := svc.DeactivateOffering(ctx, "off-a"); err != nil {
		t.Fatalf("DeactivateOffering failed: %v", err)
	}
	if err := svc.ReactivateOffering(ctx, "off-a"); err != nil {
		t.Fatalf("ReactivateOffering failed: %v", err)
	}
	o, _ := store.GetOffering(ctx, "off-a")
	if o.Status != domain.CatalogActive {
		t.Errorf("Status = %s, want active", o.Status)
	}
	if err := svc.ReactivateOffering(ctx, "missing"); !errors.Is(err, domain.ErrOfferingNotFound) {
		t.Errorf("missing offering: got %v", err)
	}
}

func TestSetBundleComponents_KeepsBookedLines(t *testing.T) {
	f := newFixture(t)
	f.catalog.addOffering("off-a", "DIGITAL", "10")
	f.catalog.addOffering("off-b", "ALBUM", "50")
	f.catalog.addBundle(domain.Bundle{ID: "bun-1", Code: "FAMILY", Scope: domain.ScopeAny},
		domain.BundleComponent{OfferingID: "off-a", Quantity: 3})
	catalog := app.NewCatalogService(f.catalog)
	b := f.onLocation(t)
	ctx := context.Background()

	if _, err := f.svc.AttachBundle(ctx, b.ID, "bun-1", 1, coordinator); err != nil {
		t.Fatalf("AttachBundle failed: %v", err)
	}
	if _, err := catalog.SetBundleComponents(ctx, "bun-1", []domain.BundleComponent{
		{OfferingID: "off-b", Quantity: 2},
	}); err != nil {
		t.Fatalf("SetBundleComponents failed: %v", err)
	}

	stored, _ := f.svc.GetByID(ctx, b.ID)
	if len(stored.LineItems) != 1 {
		t.Fatalf("LineItems = %d, want 1", len(stored.LineItems))
	}
	li := stored.LineItems[0]
	if li.Code != "DIGITAL" || li.Quantity != 3 || !stored.Total.Equal(money("30")) {
		t.Errorf("line = %s x %d, total %s; want DIGITAL x 3, total 30", li.Code, li.Quantity, stored.Total)
	}

	// New attachments follow the new composition.
	res, err := f.svc.AttachBundle(ctx, b.ID, "bun-1", 1, coordinator)
	if err != nil {
		t.Fatalf("second AttachBundle failed: %v", err)
	}
	if last := res.Booking.LineItems[len(res.Booking.LineItems)-1]; last.Code != "ALBUM" || last.Quantity != 2 {
		t.Errorf("new line = %s x %d, want ALBUM x 2", last.Code, last.Quantity)
	}
}

func TestCatalogService_StoreFailures(t *testing.T) {
	store := newMemCatalog()
	store.addOffering("off-a", "DIGITAL", "10")
	store.addBundle(domain.Bundle{ID: "bun-1", Code: "SET"}, domain.BundleComponent{OfferingID: "off-a", Quantity: 1})
	svc := app.NewCatalogService(store)
	ctx := context.Background()

	store.saveErr = errors.New("database is locked")
	calls := map[string]func() error{
		"create offering": func() error {
			_, err := svc.CreateOffering(ctx, "NEW", "New", "", money("1"))
			return err
		},
		"update price": func() error {
			_, err := svc.UpdateOfferingPrice(ctx, "off-a", money("12"))
			return err
		},
		"deactivate offering": func() error { return svc.DeactivateOffering(ctx, "off-a") },
		"set components": func() error {
			_, err := svc.SetBundleComponents(ctx, "bun-1", []domain.BundleComponent{{OfferingID: "off-a", Quantity: 2}})
			return err
		},
		"deactivate bundle": func() error { return svc.DeactivateBundle(ctx, "bun-1") },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			var dep *domain.DependencyError
			if err := call(); !errors.As(err, &dep) || dep.Dependency != "catalog" {
				t.Errorf("expected catalog DependencyError, got %v", err)
			}
		})
	}

	store.saveErr = nil
	store.err = errors.New("connection reset")
	var dep *domain.DependencyError
	if _, err := svc.UpdateOfferingPrice(ctx, "off-a", money("12")); !errors.As(err, &dep) {
		t.Errorf("read failure: expected DependencyError, got %v", err)
	}
}
