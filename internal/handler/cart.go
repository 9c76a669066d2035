package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	c, err := h.carts.Get(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encCart(e, c) })
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if err := h.carts.Clear(r.Context(), id.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req cart.AddItemRequest
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "product_id":
			req.ProductID, err = decodeUUID(d, key)
		case "variant_id":
			req.VariantID, err = decodeOptUUID(d, key)
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.carts.AddItem(r.Context(), id.UserID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encCartLine(e, l) })
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	lineID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var qty int
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "quantity" {
			qty, err = d.Int()
			return err
		}
		return d.Skip()
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.carts.UpdateQuantity(r.Context(), id.UserID, lineID, qty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encCartLine(e, l) })
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	lineID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.carts.RemoveItem(r.Context(), id.UserID, lineID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
