// Package handler implements the storefront HTTP API on top of the domain
// services.
package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/wishlist"
)

// Accounts registers and authenticates users.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
}

// TokenParser resolves a bearer token to the caller identity.
type TokenParser interface {
	Parse(raw string) (auth.Identity, error)
}

// Catalog serves categories and products.
type Catalog interface {
	ListProducts(ctx context.Context, categoryID *uuid.UUID, search string, page, limit int) (*catalog.ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in catalog.ProductInput) (*catalog.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, parentID *uuid.UUID, name, description string) (*catalog.Category, error)
}

// Carts manages the caller's cart.
type Carts interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req cart.AddItemRequest) (*cart.Line, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*cart.Line, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Orders checks out carts and tracks orders.
type Orders interface {
	CreateFromCart(ctx context.Context, req order.CreateRequest) (*order.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]order.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next order.Status) (*order.Order, error)
}

// Coupons validates, applies and administers coupons.
type Coupons interface {
	Validate(ctx context.Context, code string, total decimal.Decimal) (*coupon.Validation, error)
	ApplyToOrder(ctx context.Context, userID, orderID uuid.UUID, code string) (*order.Order, error)
	Create(ctx context.Context, in coupon.CreateInput) (*coupon.Coupon, error)
	List(ctx context.Context) ([]coupon.Coupon, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// Reviews reads and writes product reviews.
type Reviews interface {
	Create(ctx context.Context, userID uuid.UUID, in review.CreateInput) (*review.Review, error)
	Update(ctx context.Context, userID, id uuid.UUID, c review.Changes) (*review.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]review.Review, error)
	ProductRating(ctx context.Context, productID uuid.UUID) (review.Rating, error)
}

// Wishlists manages the caller's wishlist.
type Wishlists interface {
	Add(ctx context.Context, userID, productID uuid.UUID) (*wishlist.Item, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]wishlist.Item, error)
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

// Handler serves the API routes.
type Handler struct {
	accounts  Accounts
	tokens    TokenParser
	catalog   Catalog
	carts     Carts
	orders    Orders
	coupons   Coupons
	reviews   Reviews
	wishlists Wishlists
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	accounts Accounts,
	tokens TokenParser,
	catalog Catalog,
	carts Carts,
	orders Orders,
	coupons Coupons,
	reviews Reviews,
	wishlists Wishlists,
) *Handler {
	return &Handler{
		accounts:  accounts,
		tokens:    tokens,
		catalog:   catalog,
		carts:     carts,
		orders:    orders,
		coupons:   coupons,
		reviews:   reviews,
		wishlists: wishlists,
	}
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/refresh", h.refresh)

	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("POST /api/categories", h.admin(h.createCategory))
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("POST /api/products", h.admin(h.createProduct))
	mux.HandleFunc("PUT /api/products/{id}", h.admin(h.updateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", h.admin(h.deactivateProduct))
	mux.HandleFunc("GET /api/products/{id}/rating", h.productRating)

	mux.HandleFunc("GET /api/reviews/product/{id}", h.listProductReviews)
	mux.HandleFunc("POST /api/reviews", h.authed(h.createReview))
	mux.HandleFunc("PUT /api/reviews/{id}", h.authed(h.updateReview))

	mux.HandleFunc("GET /api/wishlist", h.authed(h.listWishlist))
	mux.HandleFunc("POST /api/wishlist", h.authed(h.addToWishlist))
	mux.HandleFunc("GET /api/wishlist/{id}", h.authed(h.wishlistContains))
	mux.HandleFunc("DELETE /api/wishlist/{id}", h.authed(h.removeFromWishlist))

	mux.HandleFunc("GET /api/cart", h.authed(h.getCart))
	mux.HandleFunc("DELETE /api/cart", h.authed(h.clearCart))
	mux.HandleFunc("POST /api/cart/items", h.authed(h.addCartItem))
	mux.HandleFunc("PUT /api/cart/items/{id}", h.authed(h.updateCartItem))
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.authed(h.removeCartItem))

	mux.HandleFunc("GET /api/orders", h.authed(h.listOrders))
	mux.HandleFunc("POST /api/orders", h.authed(h.createOrder))
	mux.HandleFunc("GET /api/orders/{id}", h.authed(h.getOrder))
	mux.HandleFunc("POST /api/orders/{id}/coupon", h.authed(h.applyCoupon))
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.admin(h.updateOrderStatus))

	mux.HandleFunc("GET /api/coupons", h.admin(h.listCoupons))
	mux.HandleFunc("POST /api/coupons", h.admin(h.createCoupon))
	mux.HandleFunc("POST /api/coupons/validate", h.authed(h.validateCoupon))
	mux.HandleFunc("POST /api/coupons/{id}/deactivate", h.admin(h.deactivateCoupon))
}
