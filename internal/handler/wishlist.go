package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/auth"
)

func (h *Handler) listWishlist(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	items, err := h.wishlists.List(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range items {
				encWishlistItem(e, &items[i])
			}
		})
	})
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var productID uuid.UUID
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "product_id":
			productID, err = decodeUUID(d, key)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if productID == uuid.Nil {
		h.fail(w, r, badRequest("product_id is required"))
		return
	}

	it, err := h.wishlists.Add(r.Context(), id.UserID, productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encWishlistItem(e, it) })
}

func (h *Handler) wishlistContains(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	productID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok, err := h.wishlists.Contains(r.Context(), id.UserID, productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			encUUID(e, "product_id", productID)
			e.FieldStart("in_wishlist")
			e.Bool(ok)
		})
	})
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	productID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.wishlists.Remove(r.Context(), id.UserID, productID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
