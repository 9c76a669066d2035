// Package catalog holds products, their variants and the category tree.
package catalog

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

var (
	// ErrProductNotFound is returned when a product does not exist.
	ErrProductNotFound = apperr.New(apperr.NotFound, "product not found")
	// ErrProductUnavailable is returned when a product exists but is inactive.
	ErrProductUnavailable = apperr.New(apperr.NotFound, "product not found or unavailable")
	// ErrVariantNotFound is returned when a variant does not belong to the product.
	ErrVariantNotFound = apperr.New(apperr.NotFound, "variant not found")
	// ErrCategoryNotFound is returned when a category does not exist.
	ErrCategoryNotFound = apperr.New(apperr.NotFound, "category not found")
	// ErrDuplicate is returned when a SKU or slug is already taken.
	ErrDuplicate = apperr.New(apperr.Conflict, "sku or slug already in use")
)

// Category groups products. Categories may nest one level or more via ParentID.
type Category struct {
	ID          uuid.UUID
	ParentID    *uuid.UUID
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

// Product is a sellable catalog item.
type Product struct {
	ID          uuid.UUID
	CategoryID  *uuid.UUID
	Name        string
	Slug        string
	Description string
	SKU         string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	Variants    []Variant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant returns the product variant with the given id.
func (p *Product) Variant(id uuid.UUID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Variant is a purchasable option of a product (size, colour, ...). Variants
// are priced at the product price.
type Variant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	SKU       string
	Stock     int
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []Product
	Total    int
	Page     int
	Limit    int
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	SetProductActive(ctx context.Context, id uuid.UUID, active bool) error
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

// Slugify lower-cases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
