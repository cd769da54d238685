package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/promokit/coupon-service/internal/domain/coupon"
)

const (
	createCouponSQL = `INSERT INTO coupons (id, type, details, expires_at)
		VALUES ($1, $2, $3, $4)`

	getCouponByIDSQL = `SELECT id, type, details, expires_at, created_at, updated_at
		FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT id, type, details, expires_at, created_at, updated_at
		FROM coupons ORDER BY created_at, id LIMIT $1 OFFSET $2`

	updateCouponSQL = `UPDATE coupons
		SET type = $2, details = $3, expires_at = $4, updated_at = now()
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	findNonExpiredSQL = `SELECT id, type, details, expires_at, created_at, updated_at
		FROM coupons WHERE expires_at >= $1 ORDER BY created_at, id`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL. The
// variant details are stored as a JSONB document keyed by the coupon type.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create persists a new coupon. A duplicate ID yields coupon.ErrAlreadyExists.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	details, err := encodeDetails(c)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, createCouponSQL, c.ID, string(c.Type), details, c.ExpiresAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return coupon.ErrAlreadyExists
		}
		return errors.Wrapf(err, "create coupon %q", c.ID)
	}
	return nil
}

// FindByID returns the coupon with the given ID, or coupon.ErrNotFound.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", id)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", id)
	}
	return &c, nil
}

// List returns one page of coupons in storage order. Page numbering starts
// at 1; out-of-range pages yield an empty slice.
func (r *CouponRepository) List(ctx context.Context, page, limit int) ([]coupon.Coupon, error) {
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, listCouponsSQL, limit, limit*(page-1))
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Update replaces the coupon's type, details, and expiry. Returns
// coupon.ErrNotFound when the ID does not resolve.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	details, err := encodeDetails(c)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateCouponSQL, c.ID, string(c.Type), details, c.ExpiresAt)
	if err != nil {
		return errors.Wrapf(err, "update coupon %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes the coupon. Returns coupon.ErrNotFound when the ID does not
// resolve.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// FindNonExpired returns every coupon expiring at or after now, in storage
// order.
func (r *CouponRepository) FindNonExpired(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findNonExpiredSQL, now)
	if err != nil {
		return nil, errors.Wrap(err, "find non-expired coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// --- JSONB details codec ---

type productQuantityRecord struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type detailsRecord struct {
	Threshold       *decimal.Decimal        `json:"threshold,omitempty"`
	Discount        *decimal.Decimal        `json:"discount,omitempty"`
	ProductID       *string                 `json:"product_id,omitempty"`
	BuyProducts     []productQuantityRecord `json:"buy_products,omitempty"`
	GetProducts     []productQuantityRecord `json:"get_products,omitempty"`
	RepetitionLimit *int                    `json:"repetition_limit,omitempty"`
}

func encodeDetails(c *coupon.Coupon) ([]byte, error) {
	var rec detailsRecord
	switch c.Type {
	case coupon.TypeCartWise:
		d := c.CartWise
		rec.Threshold = &d.Threshold
		rec.Discount = &d.Discount
	case coupon.TypeProductWise:
		d := c.ProductWise
		rec.ProductID = &d.ProductID
		rec.Discount = &d.Discount
	case coupon.TypeBuyXGetY:
		d := c.BuyXGetY
		rec.BuyProducts = toProductRecords(d.BuyProducts)
		rec.GetProducts = toProductRecords(d.GetProducts)
		rec.RepetitionLimit = d.RepetitionLimit
	default:
		return nil, errors.Errorf("unknown coupon type %q", c.Type)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "encode details for coupon %q", c.ID)
	}
	return data, nil
}

func decodeDetails(c *coupon.Coupon, data []byte) error {
	var rec detailsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return errors.Wrapf(err, "decode details for coupon %q", c.ID)
	}

	switch c.Type {
	case coupon.TypeCartWise:
		d := &coupon.CartWiseDetails{}
		if rec.Threshold != nil {
			d.Threshold = *rec.Threshold
		}
		if rec.Discount != nil {
			d.Discount = *rec.Discount
		}
		c.CartWise = d
	case coupon.TypeProductWise:
		d := &coupon.ProductWiseDetails{}
		if rec.ProductID != nil {
			d.ProductID = *rec.ProductID
		}
		if rec.Discount != nil {
			d.Discount = *rec.Discount
		}
		c.ProductWise = d
	case coupon.TypeBuyXGetY:
		c.BuyXGetY = &coupon.BuyXGetYDetails{
			BuyProducts:     toProductQuantities(rec.BuyProducts),
			GetProducts:     toProductQuantities(rec.GetProducts),
			RepetitionLimit: rec.RepetitionLimit,
		}
	default:
		return errors.Errorf("unknown coupon type %q for coupon %q", c.Type, c.ID)
	}
	return nil
}

func toProductRecords(pqs []coupon.ProductQuantity) []productQuantityRecord {
	out := make([]productQuantityRecord, len(pqs))
	for i, pq := range pqs {
		out[i] = productQuantityRecord{
			ProductID: pq.ProductID,
			Quantity:  pq.Quantity,
			UnitPrice: pq.UnitPrice,
		}
	}
	return out
}

func toProductQuantities(recs []productQuantityRecord) []coupon.ProductQuantity {
	out := make([]coupon.ProductQuantity, len(recs))
	for i, rec := range recs {
		out[i] = coupon.ProductQuantity{
			ProductID: rec.ProductID,
			Quantity:  rec.Quantity,
			UnitPrice: rec.UnitPrice,
		}
	}
	return out
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c           coupon.Coupon
		typ         string
		detailsJSON []byte
	)
	if err := row.Scan(&c.ID, &typ, &detailsJSON, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return coupon.Coupon{}, err
	}
	c.Type = coupon.Type(typ)
	if err := decodeDetails(&c, detailsJSON); err != nil {
		return coupon.Coupon{}, err
	}
	return c, nil
}
