package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/studiobook/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: BookingRepository implements domain.BookingRepository.
var _ domain.BookingRepository = (*BookingRepository)(nil)

// BookingRepository implements domain.BookingRepository using SQLite.
// The booking row and its children are always written in one transaction.
type BookingRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*BookingRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to the connection that created them.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*BookingRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &BookingRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *BookingRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *BookingRepository) DB() *sql.DB {
	return r.db
}

// Catalog returns a catalog store sharing this repository's connection.
func (r *BookingRepository) Catalog() *Catalog {
	return &Catalog{db: r.db}
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// Create inserts a new booking with its initial children and history entry.
func (r *BookingRepository) Create(ctx context.Context, b domain.Booking, entry domain.StatusHistoryEntry) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		windowStart, windowEnd := nullWindow(b.Window)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (id, client_id, kind, status, session_date, window_start, window_end,
			   room_id, location, subtotal, transportation, discount, total, deposit_required, net_paid,
			   payment_deadline, changes_deadline, estimated_delivery, actual_delivery, editor_id,
			   cancellation_reason, canceled_at, created_by, created_at, updated_at, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.ClientID, string(b.Kind), string(b.Status), formatDate(b.SessionDate), windowStart, windowEnd,
			b.RoomID, b.Location, money(b.Subtotal), money(b.Transportation), money(b.Discount), money(b.Total),
			money(b.DepositRequired), money(b.NetPaid),
			nullTime(b.PaymentDeadline), nullTime(b.ChangesDeadline), nullTime(b.EstimatedDelivery), nullTime(b.ActualDelivery),
			b.EditorID, b.CancellationReason, nullTime(b.CanceledAt),
			b.CreatedBy, formatTime(b.CreatedAt), formatTime(b.UpdatedAt), b.Version,
		)
		if err != nil {
			return fmt.Errorf("inserting booking: %w", err)
		}
		if err := writeChildren(ctx, tx, b); err != nil {
			return err
		}
		return insertHistory(ctx, tx, []domain.StatusHistoryEntry{entry})
	})
}

// Get loads a booking aggregate with its line items, assignments and payments.
func (r *BookingRepository) Get(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, selectBooking+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, err
	}
	if err := loadChildren(ctx, r.db, &b); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if filter.ClientID != "" {
		where = append(where, `client_id = ?`)
		args = append(args, filter.ClientID)
	}
	if filter.From != nil {
		where = append(where, `session_date >= ?`)
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		where = append(where, `session_date <= ?`)
		args = append(args, formatDate(*filter.To))
	}

	query := selectBooking
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY session_date, created_at`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Children are loaded after the cursor is closed: the pool may hold a
	// single connection.
	for i := range bookings {
		if err := loadChildren(ctx, r.db, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// Save writes a booking aggregate if its stored version still matches.
func (r *BookingRepository) Save(ctx context.Context, c domain.Change) error {
	b := c.Booking
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		windowStart, windowEnd := nullWindow(b.Window)
		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, window_start = ?, window_end = ?, room_id = ?, location = ?,
			   subtotal = ?, transportation = ?, discount = ?, total = ?, deposit_required = ?, net_paid = ?,
			   payment_deadline = ?, changes_deadline = ?, estimated_delivery = ?, actual_delivery = ?,
			   editor_id = ?, cancellation_reason = ?, canceled_at = ?, updated_at = ?, version = version + 1
			 WHERE id = ? AND version = ?`,
			string(b.Status), windowStart, windowEnd, b.RoomID, b.Location,
			money(b.Subtotal), money(b.Transportation), money(b.Discount), money(b.Total),
			money(b.DepositRequired), money(b.NetPaid),
			nullTime(b.PaymentDeadline), nullTime(b.ChangesDeadline), nullTime(b.EstimatedDelivery), nullTime(b.ActualDelivery),
			b.EditorID, b.CancellationReason, nullTime(b.CanceledAt), formatTime(b.UpdatedAt),
			b.ID, c.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("updating booking: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if rows == 0 {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, b.ID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrBookingNotFound
			}
			if err != nil {
				return fmt.Errorf("checking booking: %w", err)
			}
			return domain.ErrVersionConflict
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE booking_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clearing line items: %w", err)
		}
		if err := writeChildren(ctx, tx, b); err != nil {
			return err
		}
		return insertHistory(ctx, tx, c.History)
	})
}

// ActiveAssignments returns every active assignment holding the resource on
// the key's date, ordered by coverage start. Assignments left on completed
// or canceled bookings do not hold the resource.
func (r *BookingRepository) ActiveAssignments(ctx context.Context, key domain.ResourceKey) ([]domain.ResourceAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		selectAssignment+` WHERE resource_kind = ? AND resource_id = ? AND date = ? AND status = ?`+
			liveBookingFilter+` ORDER BY coverage_start`,
		string(key.Kind), key.ResourceID, formatDate(key.Date), string(domain.AssignmentActive),
		string(domain.StatusCompleted), string(domain.StatusCanceled),
	)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.ResourceAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// History returns the audit trail of a booking in insertion order.
func (r *BookingRepository) History(ctx context.Context, bookingID string) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT booking_id, from_status, to_status, actor_id, reason, override, changed_at
		 FROM status_history WHERE booking_id = ? ORDER BY seq`, bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []domain.StatusHistoryEntry
	for rows.Next() {
		var (
			e                   domain.StatusHistoryEntry
			from, to, changedAt string
			override            bool
		)
		if err := rows.Scan(&e.BookingID, &from, &to, &e.ActorID, &e.Reason, &override, &changedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.From = domain.Status(from)
		e.To = domain.Status(to)
		e.Override = override
		e.ChangedAt = parseTime(changedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Children ---

// writeChildren inserts line items and payments, and upserts assignments.
// Payments are append-only, so existing rows are left untouched.
func writeChildren(ctx context.Context, tx *sql.Tx, b domain.Booking) error {
	for _, li := range b.LineItems {
		kind, offeringID, bundleID := domain.SourceParts(li.Source)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO line_items (id, booking_id, kind, offering_id, bundle_id, code, name, description,
			   quantity, unit_price, subtotal, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			li.ID, b.ID, string(kind), offeringID, bundleID, li.Code, li.Name, li.Description,
			li.Quantity, money(li.UnitPrice), money(li.Subtotal), li.CreatedBy, formatTime(li.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting line item: %w", err)
		}
	}

	for _, a := range b.Assignments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO resource_assignments (id, booking_id, resource_kind, resource_id, role, date,
			   coverage_start, coverage_end, attended, attended_at, status, assigned_by, assigned_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   attended = excluded.attended, attended_at = excluded.attended_at, status = excluded.status`,
			a.ID, b.ID, string(a.ResourceKind), a.ResourceID, string(a.Role), formatDate(a.Date),
			formatTime(a.Coverage.Start), formatTime(a.Coverage.End), a.Attended, nullTime(a.AttendedAt),
			string(a.Status), a.AssignedBy, formatTime(a.AssignedAt),
		)
		if err != nil {
			return fmt.Errorf("writing assignment: %w", err)
		}
	}
	if err := checkOverlaps(ctx, tx, b); err != nil {
		return err
	}

	for _, p := range b.Payments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, booking_id, type, amount, method, note, recorded_by, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			p.ID, b.ID, string(p.Type), money(p.Amount), p.Method, p.Note, p.RecordedBy, formatTime(p.RecordedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting payment: %w", err)
		}
	}
	return nil
}

// checkOverlaps refuses the write when an active assignment of b overlaps
// an active assignment of another live booking for the same resource and date.
// Times are stored in a fixed-width UTC format, so string order is time order.
func checkOverlaps(ctx context.Context, tx *sql.Tx, b domain.Booking) error {
	for _, a := range b.ActiveAssignments() {
		var conflictID, start, end string
		err := tx.QueryRowContext(ctx,
			`SELECT booking_id, coverage_start, coverage_end FROM resource_assignments
			 WHERE resource_kind = ? AND resource_id = ? AND date = ? AND status = ?
			   AND booking_id <> ? AND coverage_start < ? AND ? < coverage_end`+
				liveBookingFilter+` LIMIT 1`,
			string(a.ResourceKind), a.ResourceID, formatDate(a.Date), string(domain.AssignmentActive),
			b.ID, formatTime(a.Coverage.End), formatTime(a.Coverage.Start),
			string(domain.StatusCompleted), string(domain.StatusCanceled),
		).Scan(&conflictID, &start, &end)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("checking overlaps: %w", err)
		}
		return &domain.ResourceConflictError{
			Key:                 a.Key(),
			Requested:           a.Coverage,
			ConflictBookingID:   conflictID,
			ConflictingCoverage: domain.Interval{Start: parseTime(start), End: parseTime(end)},
		}
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, entries []domain.StatusHistoryEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO status_history (booking_id, from_status, to_status, actor_id, reason, override, changed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.BookingID, string(e.From), string(e.To), e.ActorID, e.Reason, e.Override, formatTime(e.ChangedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting history: %w", err)
		}
	}
	return nil
}

func loadChildren(ctx context.Context, q querier, b *domain.Booking) error {
	var err error
	if b.LineItems, err = loadLineItems(ctx, q, b.ID); err != nil {
		return err
	}
	if b.Assignments, err = loadAssignments(ctx, q, b.ID); err != nil {
		return err
	}
	if b.Payments, err = loadPayments(ctx, q, b.ID); err != nil {
		return err
	}
	return nil
}

func loadLineItems(ctx context.Context, q querier, bookingID string) ([]domain.LineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, booking_id, kind, offering_id, bundle_id, code, name, description,
		   quantity, unit_price, subtotal, created_by, created_at
		 FROM line_items WHERE booking_id = ? ORDER BY rowid`, bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying line items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var (
			li                         domain.LineItem
			kind, offeringID, bundleID string
			createdAt                  string
		)
		err := rows.Scan(&li.ID, &li.BookingID, &kind, &offeringID, &bundleID, &li.Code, &li.Name, &li.Description,
			&li.Quantity, &li.UnitPrice, &li.Subtotal, &li.CreatedBy, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning line item row: %w", err)
		}
		src, ok := domain.SourceFromParts(domain.LineKind(kind), offeringID, bundleID)
		if !ok {
			return nil, fmt.Errorf("line item %s: unknown kind %q", li.ID, kind)
		}
		li.Source = src
		li.CreatedAt = parseTime(createdAt)
		items = append(items, li)
	}
	return items, rows.Err()
}

// liveBookingFilter drops assignments whose booking has reached a terminal
// status. Bind the completed and canceled statuses after the other args.
const liveBookingFilter = ` AND booking_id IN (SELECT id FROM bookings WHERE status NOT IN (?, ?))`

const selectAssignment = `SELECT id, booking_id, resource_kind, resource_id, role, date,
	coverage_start, coverage_end, attended, attended_at, status, assigned_by, assigned_at
	FROM resource_assignments`

func loadAssignments(ctx context.Context, q querier, bookingID string) ([]domain.ResourceAssignment, error) {
	rows, err := q.QueryContext(ctx, selectAssignment+` WHERE booking_id = ? ORDER BY rowid`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.ResourceAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(s scanner) (domain.ResourceAssignment, error) {
	var (
		a                            domain.ResourceAssignment
		kind, role, status           string
		date, start, end, assignedAt string
		attendedAt                   sql.NullString
	)
	err := s.Scan(&a.ID, &a.BookingID, &kind, &a.ResourceID, &role, &date,
		&start, &end, &a.Attended, &attendedAt, &status, &a.AssignedBy, &assignedAt)
	if err != nil {
		return domain.ResourceAssignment{}, fmt.Errorf("scanning assignment row: %w", err)
	}
	a.ResourceKind = domain.ResourceKind(kind)
	a.Role = domain.Role(role)
	a.Status = domain.AssignmentStatus(status)
	a.Date = parseDate(date)
	a.Coverage = domain.Interval{Start: parseTime(start), End: parseTime(end)}
	a.AttendedAt = parseNullTime(attendedAt)
	a.AssignedAt = parseTime(assignedAt)
	return a, nil
}

func loadPayments(ctx context.Context, q querier, bookingID string) ([]domain.Payment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, booking_id, type, amount, method, note, recorded_by, recorded_at
		 FROM payments WHERE booking_id = ? ORDER BY rowid`, bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var (
			p             domain.Payment
			typ, recorded string
		)
		if err := rows.Scan(&p.ID, &p.BookingID, &typ, &p.Amount, &p.Method, &p.Note, &p.RecordedBy, &recorded); err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}
		p.Type = domain.PaymentType(typ)
		p.RecordedAt = parseTime(recorded)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Booking rows ---

const selectBooking = `SELECT id, client_id, kind, status, session_date, window_start, window_end,
	room_id, location, subtotal, transportation, discount, total, deposit_required, net_paid,
	payment_deadline, changes_deadline, estimated_delivery, actual_delivery, editor_id,
	cancellation_reason, canceled_at, created_by, created_at, updated_at, version
	FROM bookings`

// scanBooking scans one bookings row; children are loaded separately.
func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b                                 domain.Booking
		kind, status, sessionDate         string
		windowStart, windowEnd            sql.NullString
		paymentDeadline, changesDeadline  sql.NullString
		estimatedDelivery, actualDelivery sql.NullString
		canceledAt                        sql.NullString
		createdAt, updatedAt              string
	)
	err := s.Scan(&b.ID, &b.ClientID, &kind, &status, &sessionDate, &windowStart, &windowEnd,
		&b.RoomID, &b.Location, &b.Subtotal, &b.Transportation, &b.Discount, &b.Total, &b.DepositRequired, &b.NetPaid,
		&paymentDeadline, &changesDeadline, &estimatedDelivery, &actualDelivery, &b.EditorID,
		&b.CancellationReason, &canceledAt, &b.CreatedBy, &createdAt, &updatedAt, &b.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, err
		}
		return domain.Booking{}, fmt.Errorf("scanning booking: %w", err)
	}

	b.Kind = domain.Kind(kind)
	b.Status = domain.Status(status)
	b.SessionDate = parseDate(sessionDate)
	if windowStart.Valid && windowEnd.Valid {
		b.Window = &domain.Interval{Start: parseTime(windowStart.String), End: parseTime(windowEnd.String)}
	}
	b.PaymentDeadline = parseNullTime(paymentDeadline)
	b.ChangesDeadline = parseNullTime(changesDeadline)
	b.EstimatedDelivery = parseNullTime(estimatedDelivery)
	b.ActualDelivery = parseNullTime(actualDelivery)
	b.CanceledAt = parseNullTime(canceledAt)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

// --- Helpers ---

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func formatDate(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func parseDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullWindow(w *domain.Interval) (sql.NullString, sql.NullString) {
	if w == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullTime(&w.Start), nullTime(&w.End)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
