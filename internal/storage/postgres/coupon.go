package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, discount_type, discount_value, min_purchase, max_discount,
		usage_limit, usage_count, starts_at, ends_at, active, created_at`

	getCouponByCodeSQL  = `SELECT ` + couponColumns + `, 0 FROM coupons WHERE code = $1`
	lockCouponByCodeSQL = getCouponByCodeSQL + ` FOR UPDATE`

	// Zero affected rows means the limit was reached after the caller's
	// read. The comparison runs against the current row version.
	incrementCouponUsageSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	importCouponSQL = insertCouponSQL + ` ON CONFLICT (code) DO NOTHING`

	listCouponsSQL = `SELECT ` + couponColumns + `,
			(SELECT count(*) FROM orders o WHERE o.coupon_id = c.id)
		FROM coupons c ORDER BY created_at DESC, id`

	setCouponActiveSQL = `UPDATE coupons SET active = $2 WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	db *DB
}

// NewCouponRepository returns a CouponRepository.
func NewCouponRepository(db *DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// FindByCode looks up a coupon by its exact, case-sensitive code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.byCode(ctx, getCouponByCodeSQL, code)
}

// LockByCode looks up a coupon and locks its row.
func (r *CouponRepository) LockByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.byCode(ctx, lockCouponByCodeSQL, code)
}

func (r *CouponRepository) byCode(ctx context.Context, sql, code string) (*coupon.Coupon, error) {
	rows, err := r.db.conn(ctx).Query(ctx, sql, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &c, nil
}

// IncrementUsage atomically increments the usage counter while it is under
// the limit.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, incrementCouponUsageSQL, id)
	if err != nil {
		return errors.Wrapf(err, "increment usage of coupon %s", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrExhausted
	}
	return nil
}

// Create inserts a coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.db.conn(ctx).Exec(ctx, insertCouponSQL, couponArgs(c)...)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeTaken
		}
		return errors.Wrapf(err, "insert coupon %q", c.Code)
	}
	return nil
}

// Import inserts coupons in one batch, skipping codes that already exist.
// It returns the number of coupons inserted.
func (r *CouponRepository) Import(ctx context.Context, coupons []coupon.Coupon) (int64, error) {
	if len(coupons) == 0 {
		return 0, nil
	}
	var inserted int64
	err := r.db.RunInTx(ctx, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for i := range coupons {
			b.Queue(importCouponSQL, couponArgs(&coupons[i])...)
		}
		br := r.db.conn(ctx).SendBatch(ctx, b)
		for range b.Len() {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return errors.Wrap(err, "import coupon")
			}
			inserted += tag.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// List returns every coupon with the number of orders using it.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

// SetActive toggles whether the coupon can be applied.
func (r *CouponRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.conn(ctx).Exec(ctx, setCouponActiveSQL, id, active)
	if err != nil {
		return errors.Wrapf(err, "set coupon %s active", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func couponArgs(c *coupon.Coupon) []any {
	return []any{
		c.ID, c.Code, c.Description, string(c.Type), c.Value, c.MinPurchase, c.MaxDiscount,
		c.UsageLimit, c.UsageCount, c.StartsAt, c.EndsAt, c.Active, c.CreatedAt,
	}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.Value, &c.MinPurchase, &c.MaxDiscount,
		&c.UsageLimit, &c.UsageCount, &c.StartsAt, &c.EndsAt, &c.Active, &c.CreatedAt,
		&c.OrderCount,
	)
	c.Type = coupon.DiscountType(discountType)
	return c, err
}
