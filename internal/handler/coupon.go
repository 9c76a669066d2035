package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
)

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	var (
		code  string
		total decimal.Decimal
		seen  bool
	)
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			code, err = d.Str()
		case "cart_total":
			seen = true
			total, err = decodeDecimal(d, key)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	switch {
	case code == "":
		h.fail(w, r, badRequest("code is required"))
		return
	case !seen:
		h.fail(w, r, badRequest("cart_total is required"))
		return
	}

	v, err := h.coupons.Validate(r.Context(), code, total)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.FieldStart("coupon")
			encCoupon(e, v.Coupon)
			encMoney(e, "discount", v.Discount)
			encMoney(e, "final_total", v.FinalTotal)
		})
	})
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range list {
				encCoupon(e, &list[i])
			}
		})
	})
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var in coupon.CreateInput
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			in.Code, err = d.Str()
		case "description":
			in.Description, err = d.Str()
		case "type":
			var t string
			t, err = d.Str()
			in.Type = coupon.DiscountType(t)
		case "value":
			in.Value, err = decodeDecimal(d, key)
		case "min_purchase":
			in.MinPurchase, err = decodeNullDecimal(d, key)
		case "max_discount":
			in.MaxDiscount, err = decodeNullDecimal(d, key)
		case "usage_limit":
			in.UsageLimit, err = decodeOptInt(d)
		case "starts_at":
			in.StartsAt, err = decodeTime(d, key)
		case "ends_at":
			in.EndsAt, err = decodeTime(d, key)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.coupons.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encCoupon(e, c) })
}

func (h *Handler) deactivateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.coupons.Deactivate(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
