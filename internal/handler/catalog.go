package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/catalog"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range cats {
				encCategory(e, &cats[i])
			}
		})
	})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var (
		parentID          *uuid.UUID
		name, description string
	)
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "parent_id":
			parentID, err = decodeOptUUID(d, key)
		case "name":
			name, err = d.Str()
		case "description":
			description, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.catalog.CreateCategory(r.Context(), parentID, name, description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encCategory(e, c) })
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var categoryID *uuid.UUID
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.fail(w, r, badRequest("category_id must be a UUID"))
			return
		}
		categoryID = &id
	}
	page, err := queryInt(r, "page")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.catalog.ListProducts(r.Context(), categoryID, q.Get("search"), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.FieldStart("products")
			e.Arr(func(e *jx.Encoder) {
				for i := range res.Products {
					encProduct(e, &res.Products[i])
				}
			})
			encInt(e, "total", res.Total)
			encInt(e, "page", res.Page)
			encInt(e, "limit", res.Limit)
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encProduct(e, p) })
}

func decodeProductInput(w http.ResponseWriter, r *http.Request) (catalog.ProductInput, error) {
	var in catalog.ProductInput
	err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "category_id":
			in.CategoryID, err = decodeOptUUID(d, key)
		case "name":
			in.Name, err = d.Str()
		case "description":
			in.Description, err = d.Str()
		case "sku":
			in.SKU, err = d.Str()
		case "price":
			in.Price, err = decodeDecimal(d, key)
		case "stock":
			in.Stock, err = d.Int()
		case "variants":
			err = d.Arr(func(d *jx.Decoder) error {
				var v catalog.VariantInput
				if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
					switch key {
					case "name":
						v.Name, err = d.Str()
					case "sku":
						v.SKU, err = d.Str()
					case "stock":
						v.Stock, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				in.Variants = append(in.Variants, v)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encProduct(e, p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := decodeProductInput(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encProduct(e, p) })
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.catalog.DeactivateProduct(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
