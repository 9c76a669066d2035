package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
)

func decodeAddress(d *jx.Decoder) (order.Address, error) {
	var a order.Address
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "street":
			a.Street, err = d.Str()
		case "city":
			a.City, err = d.Str()
		case "postal_code":
			a.PostalCode, err = d.Str()
		case "country":
			a.Country, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return a, err
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	req := order.CreateRequest{UserID: id.UserID}
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "shipping_address":
			req.ShippingAddress, err = decodeAddress(d)
		case "billing_address":
			if d.Next() == jx.Null {
				return d.Null()
			}
			req.BillingAddress, err = decodeAddress(d)
		case "note":
			req.Note, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.CreateFromCart(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encOrder(e, o) })
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encOrder(e, &orders[i])
			}
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orderID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), id.UserID, orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encOrder(e, o) })
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orderID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var code string
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "code" {
			code, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if code == "" {
		h.fail(w, r, badRequest("code is required"))
		return
	}

	o, err := h.coupons.ApplyToOrder(r.Context(), id.UserID, orderID, code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encOrder(e, o) })
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var status string
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		if key == "status" {
			status, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, order.Status(status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encOrder(e, o) })
}
