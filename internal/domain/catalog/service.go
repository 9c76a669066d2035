package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/money"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductInput carries the writable fields of a product.
type ProductInput struct {
	CategoryID  *uuid.UUID
	Name        string
	Description string
	SKU         string
	Price       decimal.Decimal
	Stock       int
	Variants    []VariantInput
}

// VariantInput carries the writable fields of a variant.
type VariantInput struct {
	Name  string
	SKU   string
	Stock int
}

// Validate checks that the input describes a sellable product.
func (in ProductInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperr.New(apperr.Validation, "name is required")
	case strings.TrimSpace(in.SKU) == "":
		return apperr.New(apperr.Validation, "sku is required")
	case !money.Fits(in.Price):
		return apperr.New(apperr.Validation, "price is out of range")
	case !in.Price.Round(money.Scale).IsPositive():
		return apperr.New(apperr.Validation, "price must be positive")
	case in.Stock < 0:
		return apperr.New(apperr.Validation, "stock must not be negative")
	}
	for _, v := range in.Variants {
		if strings.TrimSpace(v.Name) == "" || strings.TrimSpace(v.SKU) == "" {
			return apperr.New(apperr.Validation, "variant name and sku are required")
		}
		if v.Stock < 0 {
			return apperr.New(apperr.Validation, "variant stock must not be negative")
		}
	}
	return nil
}

// Service exposes catalog reads and admin writes.
type Service struct {
	repo Repository
}

// NewService creates a catalog Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListProducts returns one page of active products. Page numbers start at 1.
func (s *Service) ListProducts(ctx context.Context, categoryID *uuid.UUID, search string, page, limit int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	products, total, err := s.repo.ListProducts(ctx, ProductFilter{
		CategoryID: categoryID,
		Search:     strings.TrimSpace(search),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

// GetProduct returns a product with its variants.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct validates and stores a new active product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &Product{
		ID:          uuid.New(),
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        Slugify(in.Name),
		Description: in.Description,
		SKU:         strings.TrimSpace(in.SKU),
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		Active:      true,
	}
	p.Variants = buildVariants(p.ID, in.Variants)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// UpdateProduct replaces the writable fields of an existing product.
// Variants are replaced as a whole.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	p.CategoryID = in.CategoryID
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = Slugify(in.Name)
	p.Description = in.Description
	p.SKU = strings.TrimSpace(in.SKU)
	p.Price = in.Price.Round(2)
	p.Stock = in.Stock
	p.Variants = buildVariants(p.ID, in.Variants)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// DeactivateProduct hides a product from listings and from new cart lines.
// Existing orders keep their snapshot.
func (s *Service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetProductActive(ctx, id, false)
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, parentID *uuid.UUID, name, description string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.New(apperr.Validation, "name is required")
	}

	c := &Category{
		ID:          uuid.New(),
		ParentID:    parentID,
		Name:        strings.TrimSpace(name),
		Slug:        Slugify(name),
		Description: description,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	return c, nil
}

func buildVariants(productID uuid.UUID, in []VariantInput) []Variant {
	if len(in) == 0 {
		return nil
	}
	out := make([]Variant, len(in))
	for i, v := range in {
		out[i] = Variant{
			ID:        uuid.New(),
			ProductID: productID,
			Name:      strings.TrimSpace(v.Name),
			SKU:       strings.TrimSpace(v.SKU),
			Stock:     v.Stock,
		}
	}
	return out
}
