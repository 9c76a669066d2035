package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_id, status, subtotal, tax_amount, shipping_amount,
		discount_amount, total_amount, shipping_address, billing_address, notes, coupon_id,
		created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderLineSQL = `INSERT INTO order_items
		(id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderSQL  = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listUserOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id`

	orderLinesSQL = `SELECT id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, total_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY sku, id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	applyOrderDiscountSQL = `UPDATE orders
		SET discount_amount = $2, total_amount = $3, coupon_id = $4, updated_at = now()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db *DB
}

// NewOrderRepository returns an OrderRepository.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order header and its lines in one batch.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.RunInTx(ctx, func(ctx context.Context) error {
		b := &pgx.Batch{}
		b.Queue(insertOrderSQL,
			o.ID, o.Number, o.UserID, string(o.Status), o.Subtotal, o.Tax, o.Shipping,
			o.Discount, o.Total, o.ShippingAddress, o.BillingAddress, o.Note, o.CouponID,
			o.CreatedAt, o.UpdatedAt,
		)
		for _, l := range o.Lines {
			b.Queue(insertOrderLineSQL,
				l.ID, o.ID, l.ProductID, l.VariantID, l.ProductName, l.SKU, l.UnitPrice, l.Quantity, l.Total,
			)
		}

		br := r.db.conn(ctx).SendBatch(ctx, b)
		for range b.Len() {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return errors.Wrapf(err, "insert order %s", o.Number)
			}
		}
		return br.Close()
	})
}

// FindByID returns the order with its lines.
func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := r.one(ctx, getOrderSQL, id)
	if err != nil {
		return nil, err
	}
	orders := []order.Order{*o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// LockByID returns the order header and locks its row.
func (r *OrderRepository) LockByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.one(ctx, lockOrderSQL, id)
}

func (r *OrderRepository) one(ctx context.Context, sql string, id uuid.UUID) (*order.Order, error) {
	rows, err := r.db.conn(ctx).Query(ctx, sql, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return &o, nil
}

// ListByUser returns the user's orders newest first with their lines.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listUserOrdersSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.conn(ctx).Query(ctx, orderLinesSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Line, error) {
		var l order.Line
		err := row.Scan(
			&l.ID, &l.OrderID, &l.ProductID, &l.VariantID, &l.ProductName, &l.SKU,
			&l.UnitPrice, &l.Quantity, &l.Total,
		)
		return l, err
	})
	if err != nil {
		return errors.Wrap(err, "list order lines")
	}
	for _, l := range lines {
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return nil
}

// UpdateStatus sets the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) error {
	tag, err := r.db.conn(ctx).Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return errors.Wrapf(err, "update order %s status", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ApplyDiscount records the coupon discount and new total.
func (r *OrderRepository) ApplyDiscount(ctx context.Context, id uuid.UUID, discount, total decimal.Decimal, couponID uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, applyOrderDiscountSQL, id, discount, total, couponID)
	if err != nil {
		return errors.Wrapf(err, "apply discount to order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &status, &o.Subtotal, &o.Tax, &o.Shipping,
		&o.Discount, &o.Total, &o.ShippingAddress, &o.BillingAddress, &o.Note, &o.CouponID,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}
