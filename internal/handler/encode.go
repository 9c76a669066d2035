package handler

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/wishlist"
)

func encSession(e *jx.Encoder, s *auth.Session) {
	e.Obj(func(e *jx.Encoder) {
		encStr(e, "token", s.Token)
		encTime(e, "expires_at", s.ExpiresAt)
		if s.RefreshToken != "" {
			encStr(e, "refresh_token", s.RefreshToken)
			encTime(e, "refresh_expires_at", s.RefreshExpiresAt)
		}
		e.FieldStart("user")
		e.Obj(func(e *jx.Encoder) {
			encUUID(e, "id", s.User.ID)
			encStr(e, "email", s.User.Email)
			encStr(e, "first_name", s.User.FirstName)
			encStr(e, "last_name", s.User.LastName)
			encStr(e, "role", string(s.User.Role))
		})
	})
}

func encCategory(e *jx.Encoder, c *catalog.Category) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", c.ID)
		encOptUUID(e, "parent_id", c.ParentID)
		encStr(e, "name", c.Name)
		encStr(e, "slug", c.Slug)
		encStr(e, "description", c.Description)
	})
}

func encProduct(e *jx.Encoder, p *catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", p.ID)
		encOptUUID(e, "category_id", p.CategoryID)
		encStr(e, "name", p.Name)
		encStr(e, "slug", p.Slug)
		encStr(e, "description", p.Description)
		encStr(e, "sku", p.SKU)
		encMoney(e, "price", p.Price)
		encInt(e, "stock", p.Stock)
		e.FieldStart("active")
		e.Bool(p.Active)
		e.FieldStart("variants")
		e.Arr(func(e *jx.Encoder) {
			for _, v := range p.Variants {
				e.Obj(func(e *jx.Encoder) {
					encUUID(e, "id", v.ID)
					encStr(e, "name", v.Name)
					encStr(e, "sku", v.SKU)
					encInt(e, "stock", v.Stock)
				})
			}
		})
	})
}

func encCartLine(e *jx.Encoder, l *cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", l.ID)
		encUUID(e, "product_id", l.ProductID)
		encOptUUID(e, "variant_id", l.VariantID)
		encStr(e, "product_name", l.ProductName)
		if l.VariantName != "" {
			encStr(e, "variant_name", l.VariantName)
		}
		encStr(e, "sku", l.SKU())
		encInt(e, "quantity", l.Quantity)
		encMoney(e, "unit_price", l.UnitPrice)
		encMoney(e, "total", l.Total())
	})
}

func encCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", c.ID)
		e.FieldStart("items")
		e.Arr(func(e *jx.Encoder) {
			for i := range c.Lines {
				encCartLine(e, &c.Lines[i])
			}
		})
		encMoney(e, "subtotal", c.Subtotal())
	})
}

func encAddress(e *jx.Encoder, name string, a order.Address) {
	e.FieldStart(name)
	e.Obj(func(e *jx.Encoder) {
		encStr(e, "street", a.Street)
		encStr(e, "city", a.City)
		encStr(e, "postal_code", a.PostalCode)
		encStr(e, "country", a.Country)
	})
}

func encOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", o.ID)
		encStr(e, "number", o.Number)
		encStr(e, "status", string(o.Status))
		encMoney(e, "subtotal", o.Subtotal)
		encMoney(e, "tax", o.Tax)
		encMoney(e, "shipping", o.Shipping)
		encMoney(e, "discount", o.Discount)
		encMoney(e, "total", o.Total)
		encAddress(e, "shipping_address", o.ShippingAddress)
		encAddress(e, "billing_address", o.BillingAddress)
		if o.Note != "" {
			encStr(e, "note", o.Note)
		}
		encOptUUID(e, "coupon_id", o.CouponID)
		e.FieldStart("items")
		e.Arr(func(e *jx.Encoder) {
			for _, l := range o.Lines {
				e.Obj(func(e *jx.Encoder) {
					encUUID(e, "product_id", l.ProductID)
					encOptUUID(e, "variant_id", l.VariantID)
					encStr(e, "product_name", l.ProductName)
					encStr(e, "sku", l.SKU)
					encInt(e, "quantity", l.Quantity)
					encMoney(e, "unit_price", l.UnitPrice)
					encMoney(e, "total", l.Total)
				})
			}
		})
		encTime(e, "created_at", o.CreatedAt)
	})
}

func encCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", c.ID)
		encStr(e, "code", c.Code)
		encStr(e, "description", c.Description)
		encStr(e, "type", string(c.Type))
		e.FieldStart("value")
		e.Str(c.Value.String())
		encNullMoney(e, "min_purchase", c.MinPurchase)
		encNullMoney(e, "max_discount", c.MaxDiscount)
		e.FieldStart("usage_limit")
		if c.UsageLimit == nil {
			e.Null()
		} else {
			e.Int(*c.UsageLimit)
		}
		encInt(e, "usage_count", c.UsageCount)
		encTime(e, "starts_at", c.StartsAt)
		encTime(e, "ends_at", c.EndsAt)
		e.FieldStart("active")
		e.Bool(c.Active)
		encInt(e, "order_count", c.OrderCount)
	})
}

func encReview(e *jx.Encoder, r *review.Review) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", r.ID)
		encUUID(e, "product_id", r.ProductID)
		encInt(e, "rating", r.Rating)
		encStr(e, "title", r.Title)
		encStr(e, "comment", r.Comment)
		e.FieldStart("verified")
		e.Bool(r.Verified)
		e.FieldStart("user")
		e.Obj(func(e *jx.Encoder) {
			encUUID(e, "id", r.UserID)
			encStr(e, "first_name", r.AuthorFirstName)
			encStr(e, "last_name", r.AuthorLastName)
		})
		encTime(e, "created_at", r.CreatedAt)
		encTime(e, "updated_at", r.UpdatedAt)
	})
}

func encRating(e *jx.Encoder, r review.Rating) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("average")
		e.Num(jx.Num(r.Average.StringFixed(1)))
		encInt(e, "count", r.Count)
	})
}

func encWishlistItem(e *jx.Encoder, it *wishlist.Item) {
	e.Obj(func(e *jx.Encoder) {
		encUUID(e, "id", it.ID)
		encUUID(e, "product_id", it.ProductID)
		encTime(e, "created_at", it.CreatedAt)
		e.FieldStart("product")
		encProduct(e, &it.Product)
	})
}
