package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-dairy/internal/pricing"
)

// Store is the PostgreSQL backed record store.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store backed by a pgx connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const shipmentColumns = `id, vendor_id, ph, temperature, weight, status, quality_score, probability,
spoilage_hours, price_per_liter, total_amount, created_at`

// FindVendor looks a vendor up by id.
func (s *Store) FindVendor(ctx context.Context, id int64) (Vendor, error) {
	if s == nil || s.pool == nil {
		return Vendor{}, ErrUnavailable
	}
	var v Vendor
	err := s.pool.QueryRow(ctx, `SELECT id, name, location, phone FROM vendors WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Location, &v.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrVendorNotFound
		}
		return Vendor{}, unavailable("find vendor", err)
	}
	return v, nil
}

// ListVendors returns every vendor ordered by id.
func (s *Store) ListVendors(ctx context.Context) ([]Vendor, error) {
	if s == nil || s.pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name, location, phone FROM vendors ORDER BY id`)
	if err != nil {
		return nil, unavailable("list vendors", err)
	}
	vendors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Vendor, error) {
		var v Vendor
		err := row.Scan(&v.ID, &v.Name, &v.Location, &v.Phone)
		return v, err
	})
	if err != nil {
		return nil, unavailable("scan vendors", err)
	}
	return vendors, nil
}

// AppendShipment inserts a shipment and returns it with its id and timestamp.
// The vendor row is locked for share in the same transaction so a shipment can
// never reference a vendor that vanished between lookup and insert.
func (s *Store) AppendShipment(ctx context.Context, sh Shipment) (Shipment, error) {
	if s == nil || s.pool == nil {
		return Shipment{}, ErrUnavailable
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Shipment{}, unavailable("begin append", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var vendorID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM vendors WHERE id = $1 FOR SHARE`, sh.VendorID).Scan(&vendorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrVendorNotFound
		}
		return Shipment{}, unavailable("lock vendor", err)
	}

	createdAt := sh.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := tx.QueryRow(ctx, `INSERT INTO shipments (vendor_id, ph, temperature, weight, status, quality_score,
probability, spoilage_hours, price_per_liter, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+shipmentColumns,
		sh.VendorID, sh.PH, sh.Temperature, sh.Weight, string(sh.Status), sh.QualityScore,
		sh.Probability, sh.SpoilageHours, sh.PricePerLiter, sh.TotalAmount, createdAt)
	saved, err := scanShipment(row)
	if err != nil {
		return Shipment{}, unavailable("insert shipment", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Shipment{}, unavailable("commit shipment", err)
	}
	return saved, nil
}

// AllShipments returns every shipment in insertion order.
func (s *Store) AllShipments(ctx context.Context) ([]Shipment, error) {
	if s == nil || s.pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments ORDER BY id`)
	if err != nil {
		return nil, unavailable("list shipments", err)
	}
	return collectShipments(rows)
}

// ShipmentsForVendor returns the shipments of one vendor in insertion order.
func (s *Store) ShipmentsForVendor(ctx context.Context, vendorID int64) ([]Shipment, error) {
	if s == nil || s.pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE vendor_id = $1 ORDER BY id`, vendorID)
	if err != nil {
		return nil, unavailable("list vendor shipments", err)
	}
	return collectShipments(rows)
}

// FindAdmin looks an admin up by username.
func (s *Store) FindAdmin(ctx context.Context, username string) (Admin, error) {
	if s == nil || s.pool == nil {
		return Admin{}, ErrUnavailable
	}
	var a Admin
	err := s.pool.QueryRow(ctx, `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`, username).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, ErrAdminNotFound
		}
		return Admin{}, unavailable("find admin", err)
	}
	return a, nil
}

// Ping verifies the database is reachable within timeout.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	if s == nil || s.pool == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

func collectShipments(rows pgx.Rows) ([]Shipment, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Shipment, error) {
		return scanShipment(row)
	})
	if err != nil {
		return nil, unavailable("scan shipments", err)
	}
	return out, nil
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var (
		sh     Shipment
		status string
	)
	err := row.Scan(&sh.ID, &sh.VendorID, &sh.PH, &sh.Temperature, &sh.Weight, &status, &sh.QualityScore,
		&sh.Probability, &sh.SpoilageHours, &sh.PricePerLiter, &sh.TotalAmount, &sh.CreatedAt)
	if err != nil {
		return Shipment{}, err
	}
	sh.Status = pricing.Status(status)
	return sh, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("store: %s: %w: %w", op, ErrUnavailable, err)
}
