package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/review"
)

func (h *Handler) listProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.reviews.ListByProduct(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range list {
				encReview(e, &list[i])
			}
		})
	})
}

func (h *Handler) productRating(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rating, err := h.reviews.ProductRating(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encRating(e, rating) })
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var in review.CreateInput
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "product_id":
			in.ProductID, err = decodeUUID(d, key)
		case "rating":
			in.Rating, err = decodeRating(d)
		case "title":
			in.Title, err = d.Str()
		case "comment":
			in.Comment, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	rv, err := h.reviews.Create(r.Context(), id.UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encReview(e, rv) })
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	reviewID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var c review.Changes
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "rating":
			v, err := decodeRating(d)
			c.Rating = &v
			return err
		case "title":
			v, err := d.Str()
			c.Title = &v
			return err
		case "comment":
			v, err := d.Str()
			c.Comment = &v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	rv, err := h.reviews.Update(r.Context(), id.UserID, reviewID, c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encReview(e, rv) })
}

// decodeRating accepts whole numbers only.
func decodeRating(d *jx.Decoder) (int, error) {
	if d.Next() != jx.Number {
		return 0, review.ErrInvalidRating
	}
	n, err := d.Num()
	if err != nil {
		return 0, err
	}
	if !n.IsInt() {
		return 0, review.ErrInvalidRating
	}
	v, err := n.Int64()
	if err != nil || v < review.MinRating || v > review.MaxRating {
		return 0, review.ErrInvalidRating
	}
	return int(v), nil
}
