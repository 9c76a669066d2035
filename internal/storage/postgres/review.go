package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/review"
)

const (
	reviewColumns = `r.id, r.product_id, r.user_id, r.order_id, r.rating, r.title, r.comment,
		r.verified, r.created_at, r.updated_at, u.first_name, u.last_name`

	insertReviewSQL = `WITH r AS (
			INSERT INTO reviews (id, product_id, user_id, order_id, rating, title, comment, verified, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING user_id
		)
		SELECT u.first_name, u.last_name FROM r JOIN users u ON u.id = r.user_id`

	updateReviewSQL = `UPDATE reviews r SET
			rating = COALESCE($3, r.rating),
			title = COALESCE($4, r.title),
			comment = COALESCE($5, r.comment),
			updated_at = now()
		FROM users u
		WHERE r.id = $1 AND r.user_id = $2 AND u.id = r.user_id
		RETURNING ` + reviewColumns

	listProductReviewsSQL = `SELECT ` + reviewColumns + `
		FROM reviews r JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id`

	productRatingSQL = `SELECT COALESCE(ROUND(AVG(rating), 1), 0), COUNT(*)
		FROM reviews WHERE product_id = $1`

	lastPurchaseSQL = `SELECT o.id FROM orders o
		WHERE o.user_id = $1
		  AND o.status IN ('confirmed', 'shipped', 'delivered')
		  AND EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.product_id = $2)
		ORDER BY o.created_at DESC
		LIMIT 1`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository returns a ReviewRepository.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts r and fills in the author name. One review per user and
// product.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	err := r.db.conn(ctx).QueryRow(ctx, insertReviewSQL,
		rv.ID, rv.ProductID, rv.UserID, rv.OrderID, rv.Rating, rv.Title, rv.Comment,
		rv.Verified, rv.CreatedAt, rv.UpdatedAt,
	).Scan(&rv.AuthorFirstName, &rv.AuthorLastName)
	if err != nil {
		if isUniqueViolation(err) {
			return review.ErrAlreadyReviewed
		}
		return errors.Wrap(err, "insert review")
	}
	return nil
}

// Update applies c in a single statement scoped to the author.
func (r *ReviewRepository) Update(ctx context.Context, userID, id uuid.UUID, c review.Changes) (*review.Review, error) {
	rows, err := r.db.conn(ctx).Query(ctx, updateReviewSQL, id, userID, c.Rating, c.Title, c.Comment)
	if err != nil {
		return nil, errors.Wrap(err, "update review")
	}
	rv, err := pgx.CollectExactlyOneRow(rows, scanReview)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, review.ErrNotFound
		}
		return nil, errors.Wrap(err, "update review")
	}
	return &rv, nil
}

// ListByProduct returns the reviews of a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]review.Review, error) {
	rows, err := r.db.conn(ctx).Query(ctx, listProductReviewsSQL, productID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	list, err := pgx.CollectRows(rows, scanReview)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	return list, nil
}

// Rating averages the ratings of a product in the database.
func (r *ReviewRepository) Rating(ctx context.Context, productID uuid.UUID) (review.Rating, error) {
	var out review.Rating
	if err := r.db.conn(ctx).QueryRow(ctx, productRatingSQL, productID).Scan(&out.Average, &out.Count); err != nil {
		return review.Rating{}, errors.Wrap(err, "product rating")
	}
	return out, nil
}

// LastPurchase returns the newest order past pending that contains the
// product.
func (r *ReviewRepository) LastPurchase(ctx context.Context, userID, productID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.conn(ctx).QueryRow(ctx, lastPurchaseSQL, userID, productID).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "find purchase")
	}
	return &id, nil
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var rv review.Review
	err := row.Scan(
		&rv.ID, &rv.ProductID, &rv.UserID, &rv.OrderID, &rv.Rating, &rv.Title, &rv.Comment,
		&rv.Verified, &rv.CreatedAt, &rv.UpdatedAt, &rv.AuthorFirstName, &rv.AuthorLastName,
	)
	return rv, err
}
