//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

type reviewResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
	Verified  bool   `json:"verified"`
	User      struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
	} `json:"user"`
}

type ratingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type wishlistItemResponse struct {
	ProductID string          `json:"product_id"`
	Product   productResponse `json:"product"`
}

func postReview(t *testing.T, token, productID string, rating int) *http.Response {
	t.Helper()

	return doRequest(t, http.MethodPost, "/api/reviews", map[string]any{
		"product_id": productID,
		"rating":     rating,
		"title":      fmt.Sprintf("%d stars", rating),
		"comment":    "Tested in integration",
	}, token)
}

func createProduct(t *testing.T) productResponse {
	t.Helper()

	resp := doRequest(t, http.MethodPost, "/api/products", map[string]any{
		"name":  fmt.Sprintf("Reviewed %d", time.Now().UnixNano()),
		"sku":   fmt.Sprintf("REV-%d", time.Now().UnixNano()),
		"price": "5.00",
		"stock": 10,
	}, adminToken)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
	return decodeJSON[productResponse](t, resp)
}

func TestReviews(t *testing.T) {
	product := createProduct(t)

	buyer := registerUser(t)
	addToCart(t, buyer, product.ID, 1)
	o := placeOrder(t, buyer)
	confirm := doRequest(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", map[string]string{"status": "confirmed"}, adminToken)
	confirm.Body.Close()
	expectStatus(t, confirm, http.StatusOK)

	resp := postReview(t, buyer, product.ID, 5)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
	verified := decodeJSON[reviewResponse](t, resp)
	if !verified.Verified {
		t.Error("review of a confirmed purchase is not verified")
	}
	if verified.User.FirstName != "Test" {
		t.Errorf("author: got %q", verified.User.FirstName)
	}

	browser := registerUser(t)
	resp2 := postReview(t, browser, product.ID, 4)
	defer resp2.Body.Close()
	expectStatus(t, resp2, http.StatusCreated)
	if decodeJSON[reviewResponse](t, resp2).Verified {
		t.Error("review without purchase is verified")
	}

	t.Run("duplicate", func(t *testing.T) {
		resp := postReview(t, buyer, product.ID, 1)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusConflict)
	})

	t.Run("rating out of range", func(t *testing.T) {
		resp := postReview(t, registerUser(t), product.ID, 6)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("update by another user", func(t *testing.T) {
		resp := doRequest(t, http.MethodPut, "/api/reviews/"+verified.ID, map[string]any{"rating": 1}, browser)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("update", func(t *testing.T) {
		resp := doRequest(t, http.MethodPut, "/api/reviews/"+verified.ID, map[string]any{"comment": "Still great"}, buyer)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)
		r := decodeJSON[reviewResponse](t, resp)
		if r.Comment != "Still great" || r.Rating != 5 {
			t.Errorf("unexpected review after update: %+v", r)
		}
	})

	t.Run("list", func(t *testing.T) {
		resp := doGet(t, "/api/reviews/product/"+product.ID)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)
		list := decodeJSON[[]reviewResponse](t, resp)
		if len(list) != 2 {
			t.Fatalf("expected 2 reviews, got %d", len(list))
		}
		if list[0].Rating != 4 {
			t.Errorf("expected newest review first, got %+v", list[0])
		}
	})

	t.Run("rating", func(t *testing.T) {
		resp := doGet(t, "/api/products/"+product.ID+"/rating")
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)
		if r := decodeJSON[ratingResponse](t, resp); r.Average != 4.5 || r.Count != 2 {
			t.Errorf("rating: got %+v, want 4.5 over 2", r)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		resp := doGet(t, "/api/reviews/product/00000000-0000-0000-0000-000000000000")
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusNotFound)
	})
}

func TestWishlist(t *testing.T) {
	token := registerUser(t)
	mug := findProduct(t, "MUG-001")

	resp := doRequest(t, http.MethodPost, "/api/wishlist", map[string]string{"product_id": mug.ID}, token)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	dup := doRequest(t, http.MethodPost, "/api/wishlist", map[string]string{"product_id": mug.ID}, token)
	defer dup.Body.Close()
	expectStatus(t, dup, http.StatusConflict)

	list := doRequest(t, http.MethodGet, "/api/wishlist", nil, token)
	defer list.Body.Close()
	expectStatus(t, list, http.StatusOK)
	items := decodeJSON[[]wishlistItemResponse](t, list)
	if len(items) != 1 || items[0].Product.SKU != "MUG-001" {
		t.Fatalf("unexpected wishlist: %+v", items)
	}

	removed := doRequest(t, http.MethodDelete, "/api/wishlist/"+mug.ID, nil, token)
	defer removed.Body.Close()
	expectStatus(t, removed, http.StatusNoContent)

	again := doRequest(t, http.MethodDelete, "/api/wishlist/"+mug.ID, nil, token)
	defer again.Body.Close()
	expectStatus(t, again, http.StatusNotFound)
}

func TestRefreshToken(t *testing.T) {
	email := fmt.Sprintf("refresh-%d@example.com", time.Now().UnixNano())
	resp := doRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":      email,
		"password":   "correct-horse-battery",
		"first_name": "Test",
		"last_name":  "User",
	}, "")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
	s := decodeJSON[sessionResponse](t, resp)
	if s.RefreshToken == "" {
		t.Fatal("no refresh token issued")
	}

	refreshed := doRequest(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": s.RefreshToken}, "")
	defer refreshed.Body.Close()
	expectStatus(t, refreshed, http.StatusOK)
	next := decodeJSON[sessionResponse](t, refreshed)

	cart := doRequest(t, http.MethodGet, "/api/cart", nil, next.Token)
	defer cart.Body.Close()
	expectStatus(t, cart, http.StatusOK)

	// A refresh token is not a bearer token and vice versa.
	asBearer := doRequest(t, http.MethodGet, "/api/cart", nil, s.RefreshToken)
	defer asBearer.Body.Close()
	expectStatus(t, asBearer, http.StatusUnauthorized)

	asRefresh := doRequest(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": s.Token}, "")
	defer asRefresh.Body.Close()
	expectStatus(t, asRefresh, http.StatusUnauthorized)
}
