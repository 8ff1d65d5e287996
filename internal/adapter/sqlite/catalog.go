package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// Compile-time check: Catalog implements domain.CatalogStore.
var _ domain.CatalogStore = (*Catalog)(nil)

// Catalog implements domain.CatalogStore on the same database as bookings.
type Catalog struct {
	db *sql.DB
}

func (c *Catalog) GetOffering(ctx context.Context, id string) (domain.Offering, error) {
	o, err := scanOffering(c.db.QueryRowContext(ctx, selectOffering+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offering{}, domain.ErrOfferingNotFound
	}
	return o, err
}

func (c *Catalog) GetBundle(ctx context.Context, id string) (domain.Bundle, error) {
	b, err := scanBundle(c.db.QueryRowContext(ctx, selectBundle+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bundle{}, domain.ErrBundleNotFound
	}
	return b, err
}

// GetBundleComponents returns the components in the order they were defined.
func (c *Catalog) GetBundleComponents(ctx context.Context, bundleID string) ([]domain.BundleComponent, error) {
	if _, err := c.GetBundle(ctx, bundleID); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT offering_id, quantity FROM bundle_components WHERE bundle_id = ? ORDER BY position`, bundleID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying bundle components: %w", err)
	}
	defer rows.Close()

	var out []domain.BundleComponent
	for rows.Next() {
		var bc domain.BundleComponent
		if err := rows.Scan(&bc.OfferingID, &bc.Quantity); err != nil {
			return nil, fmt.Errorf("scanning bundle component: %w", err)
		}
		out = append(out, bc)
	}
	return out, rows.Err()
}

// SaveOffering inserts or replaces an offering.
func (c *Catalog) SaveOffering(ctx context.Context, o domain.Offering) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO offerings (id, code, name, description, unit_price, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   code = excluded.code, name = excluded.name, description = excluded.description,
		   unit_price = excluded.unit_price, status = excluded.status`,
		o.ID, o.Code, o.Name, o.Description, money(o.UnitPrice), string(o.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.InvalidInputError{Field: "code", Reason: fmt.Sprintf("offering code %q is already in use", o.Code)}
		}
		return fmt.Errorf("saving offering: %w", err)
	}
	return nil
}

// SaveBundle inserts or replaces a bundle and its full component list.
func (c *Catalog) SaveBundle(ctx context.Context, b domain.Bundle, components []domain.BundleComponent) error {
	return inTx(ctx, c.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bundles (id, code, name, description, nominal_price, scope, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   code = excluded.code, name = excluded.name, description = excluded.description,
			   nominal_price = excluded.nominal_price, scope = excluded.scope, status = excluded.status`,
			b.ID, b.Code, b.Name, b.Description, money(b.NominalPrice), string(b.Scope), string(b.Status),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.InvalidInputError{Field: "code", Reason: fmt.Sprintf("bundle code %q is already in use", b.Code)}
			}
			return fmt.Errorf("saving bundle: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_components WHERE bundle_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clearing bundle components: %w", err)
		}
		for i, bc := range components {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO bundle_components (bundle_id, offering_id, quantity, position) VALUES (?, ?, ?, ?)`,
				b.ID, bc.OfferingID, bc.Quantity, i,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return &domain.InvalidInputError{Field: "components", Reason: "an offering appears twice"}
				}
				return fmt.Errorf("inserting bundle component: %w", err)
			}
		}
		return nil
	})
}

func (c *Catalog) ListOfferings(ctx context.Context, filter domain.CatalogFilter) ([]domain.Offering, error) {
	query, args := selectOffering, []any{}
	if !filter.IncludeInactive {
		query += ` WHERE status = ?`
		args = append(args, string(domain.CatalogActive))
	}
	query += ` ORDER BY code`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing offerings: %w", err)
	}
	defer rows.Close()

	var out []domain.Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (c *Catalog) ListBundles(ctx context.Context, filter domain.CatalogFilter) ([]domain.Bundle, error) {
	query, args := selectBundle, []any{}
	if !filter.IncludeInactive {
		query += ` WHERE status = ?`
		args = append(args, string(domain.CatalogActive))
	}
	query += ` ORDER BY code`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bundles: %w", err)
	}
	defer rows.Close()

	var out []domain.Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const selectOffering = `SELECT id, code, name, description, unit_price, status FROM offerings`

func scanOffering(s scanner) (domain.Offering, error) {
	var (
		o      domain.Offering
		status string
	)
	if err := s.Scan(&o.ID, &o.Code, &o.Name, &o.Description, &o.UnitPrice, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Offering{}, err
		}
		return domain.Offering{}, fmt.Errorf("scanning offering: %w", err)
	}
	o.Status = domain.CatalogStatus(status)
	return o, nil
}

const selectBundle = `SELECT id, code, name, description, nominal_price, scope, status FROM bundles`

func scanBundle(s scanner) (domain.Bundle, error) {
	var (
		b             domain.Bundle
		scope, status string
	)
	if err := s.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.NominalPrice, &scope, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bundle{}, err
		}
		return domain.Bundle{}, fmt.Errorf("scanning bundle: %w", err)
	}
	b.Scope = domain.BundleScope(scope)
	b.Status = domain.CatalogStatus(status)
	return b, nil
}
