package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/wishlist"
)

const (
	insertWishlistItemSQL = `INSERT INTO wishlist_items (id, user_id, product_id, created_at)
		VALUES ($1, $2, $3, $4)`

	deleteWishlistItemSQL = `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`

	listWishlistSQL = `SELECT w.id, w.user_id, w.created_at,
			p.id, p.category_id, p.name, p.slug, p.description, p.sku, p.price, p.stock, p.active, p.created_at, p.updated_at
		FROM wishlist_items w JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, w.id`

	wishlistContainsSQL = `SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND product_id = $2)`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	db *DB
}

// NewWishlistRepository returns a WishlistRepository.
func NewWishlistRepository(db *DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add inserts it. A product is listed at most once per user.
func (r *WishlistRepository) Add(ctx context.Context, it *wishlist.Item) error {
	_, err := r.db.conn(ctx).Exec(ctx, insertWishlistItemSQL, it.ID, it.UserID, it.ProductID, it.CreatedAt)
	switch {
	case isUniqueViolation(err):
		return wishlist.ErrAlreadyListed
	case err != nil:
		return errors.Wrap(err, "insert wishlist item")
	}
	return nil
}

// Remove deletes the user's item for the product.
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, deleteWishlistItemSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "delete wishlist item")
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrNotFound
	}
	return nil
}

// List returns the user's items joined with their products, newest first.
func (r *WishlistRepository) List(ctx context.Context, userID uuid.UUID) ([]wishlist.Item, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (wishlist.Item, error) {
		var (
			it wishlist.Item
			p  = &it.Product
		)
		err := row.Scan(
			&it.ID, &it.UserID, &it.CreatedAt,
			&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.SKU,
			&p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		)
		it.ProductID = p.ID
		return it, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	return items, nil
}

// Contains reports whether the user saved the product.
func (r *WishlistRepository) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var ok bool
	if err := r.db.conn(ctx).QueryRow(ctx, wishlistContainsSQL, userID, productID).Scan(&ok); err != nil {
		return false, errors.Wrap(err, "check wishlist")
	}
	return ok, nil
}
