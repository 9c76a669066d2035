package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	getOrCreateCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at`

	lockCartSQL = `SELECT id, user_id, created_at, updated_at
		FROM carts WHERE user_id = $1 FOR UPDATE`

	cartLinesSQL = `SELECT ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity, ci.unit_price,
			p.name, p.sku, COALESCE(v.name, ''), COALESCE(v.sku, '')
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`

	cartLineColumns = `id, cart_id, product_id, variant_id, quantity, unit_price`

	upsertCartLineSQL = `INSERT INTO cart_items (` + cartLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT cart_items_line_key
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING ` + cartLineColumns

	setCartLineQuantitySQL = `UPDATE cart_items ci SET quantity = $3
		FROM carts c
		WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $1
		RETURNING ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity, ci.unit_price`

	deleteCartLineSQL = `DELETE FROM cart_items ci USING carts c
		WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $1`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	db *DB
}

// NewCartRepository returns a CartRepository.
func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetOrCreate returns the user's cart, inserting it on first access.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	rows, err := r.db.conn(ctx).Query(ctx, getOrCreateCartSQL, uuid.New(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	return &c, nil
}

// LockByUser locks the user's cart row and returns it with its lines.
func (r *CartRepository) LockByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	rows, err := r.db.conn(ctx).Query(ctx, lockCartSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "lock cart")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "lock cart")
	}

	if c.Lines, err = r.Lines(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

// Lines returns the cart lines joined with product and variant details.
func (r *CartRepository) Lines(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	rows, err := r.db.conn(ctx).Query(ctx, cartLinesSQL, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var l cart.Line
		err := row.Scan(
			&l.ID, &l.CartID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice,
			&l.ProductName, &l.ProductSKU, &l.VariantName, &l.VariantSKU,
		)
		return l, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	return lines, nil
}

// AddLine inserts l or adds its quantity to the existing line of the same
// product and variant.
func (r *CartRepository) AddLine(ctx context.Context, l *cart.Line) (*cart.Line, error) {
	var out *cart.Line
	err := r.db.RunInTx(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)
		// The cart row is locked before its lines, the same order checkout
		// takes them in.
		if _, err := q.Exec(ctx, touchCartSQL, l.CartID); err != nil {
			return errors.Wrap(err, "touch cart")
		}
		rows, err := q.Query(ctx, upsertCartLineSQL,
			l.ID, l.CartID, l.ProductID, l.VariantID, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return errors.Wrap(err, "upsert cart line")
		}
		line, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
		if err != nil {
			return errors.Wrap(err, "upsert cart line")
		}
		out = &line
		return nil
	})
	return out, err
}

// SetLineQuantity updates a line of the user's cart.
func (r *CartRepository) SetLineQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*cart.Line, error) {
	rows, err := r.db.conn(ctx).Query(ctx, setCartLineQuantitySQL, userID, lineID, qty)
	if err != nil {
		return nil, errors.Wrap(err, "update cart line")
	}
	line, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, errors.Wrap(err, "update cart line")
	}
	return &line, nil
}

// DeleteLine removes a line of the user's cart.
func (r *CartRepository) DeleteLine(ctx context.Context, userID, lineID uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, deleteCartLineSQL, userID, lineID)
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// ClearLines deletes every line of the cart. The cart row is kept.
func (r *CartRepository) ClearLines(ctx context.Context, cartID uuid.UUID) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, clearCartSQL, cartID)
	if err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}
	return tag.RowsAffected(), nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var c cart.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.CartID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice)
	return l, err
}
