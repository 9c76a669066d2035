package review

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/catalog"
)

// ProductFinder looks up catalog products.
type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// CreateInput carries the fields of a new review.
type CreateInput struct {
	ProductID uuid.UUID
	Rating    int
	Title     string
	Comment   string
}

// Validate checks the rating range and that title and comment are present.
func (in CreateInput) Validate() error {
	return Changes{Rating: &in.Rating, Title: &in.Title, Comment: &in.Comment}.Validate()
}

// Validate checks the fields that are set.
func (c Changes) Validate() error {
	switch {
	case c.Rating != nil && (*c.Rating < MinRating || *c.Rating > MaxRating):
		return ErrInvalidRating
	case c.Title != nil && strings.TrimSpace(*c.Title) == "":
		return apperr.New(apperr.Validation, "title is required")
	case c.Comment != nil && strings.TrimSpace(*c.Comment) == "":
		return apperr.New(apperr.Validation, "comment is required")
	}
	return nil
}

func (c Changes) trimmed() Changes {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	return Changes{Rating: c.Rating, Title: trim(c.Title), Comment: trim(c.Comment)}
}

// Service manages product reviews.
type Service struct {
	reviews  Repository
	products ProductFinder
	now      func() time.Time
}

// NewService creates a review Service.
func NewService(reviews Repository, products ProductFinder) *Service {
	return &Service{
		reviews:  reviews,
		products: products,
		now:      time.Now,
	}
}

// Create stores the review of userID. The product must be active and not yet
// reviewed by the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.products.GetProduct(ctx, in.ProductID)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return nil, catalog.ErrProductUnavailable
	case err != nil:
		return nil, errors.Wrap(err, "get product")
	case !p.Active:
		return nil, catalog.ErrProductUnavailable
	}

	orderID, err := s.reviews.LastPurchase(ctx, userID, in.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "find purchase")
	}

	now := s.now()
	r := &Review{
		ID:        uuid.New(),
		ProductID: in.ProductID,
		UserID:    userID,
		OrderID:   orderID,
		Rating:    in.Rating,
		Title:     strings.TrimSpace(in.Title),
		Comment:   strings.TrimSpace(in.Comment),
		Verified:  orderID != nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return nil, ErrAlreadyReviewed
		}
		return nil, errors.Wrap(err, "create review")
	}

	zctx.From(ctx).Info("Review created",
		zap.Stringer("product_id", r.ProductID),
		zap.Int("rating", r.Rating),
		zap.Bool("verified", r.Verified),
	)
	return r, nil
}

// Update changes the review id of userID. Reviews of other users are
// reported as not found.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, c Changes) (*Review, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r, err := s.reviews.Update(ctx, userID, id, c.trimmed())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update review")
	}
	return r, nil
}

// ListByProduct returns the reviews of an existing product, newest first.
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]Review, error) {
	if err := s.productExists(ctx, productID); err != nil {
		return nil, err
	}
	list, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	return list, nil
}

// ProductRating returns the average rating and review count of an existing
// product.
func (s *Service) ProductRating(ctx context.Context, productID uuid.UUID) (Rating, error) {
	if err := s.productExists(ctx, productID); err != nil {
		return Rating{}, err
	}
	r, err := s.reviews.Rating(ctx, productID)
	if err != nil {
		return Rating{}, errors.Wrap(err, "product rating")
	}
	r.Average = r.Average.Round(1)
	return r, nil
}

func (s *Service) productExists(ctx context.Context, id uuid.UUID) error {
	if _, err := s.products.GetProduct(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return catalog.ErrProductNotFound
		}
		return errors.Wrap(err, "get product")
	}
	return nil
}
