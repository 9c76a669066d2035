package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

var (
	errUnauthorized = errors.New("missing or invalid bearer token")
	errForbidden    = errors.New("admin role required")
)

type identityKey struct{}

// IdentityFrom returns the authenticated caller stored in ctx.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (h *Handler) identify(r *http.Request) (auth.Identity, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return auth.Identity{}, errUnauthorized
	}
	return h.tokens.Parse(raw)
}

// authed requires a valid bearer token. The caller identity is stored in the
// request context and tagged on the request logger and span.
func (h *Handler) authed(next func(http.ResponseWriter, *http.Request, auth.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := h.identify(r)
		if err != nil {
			h.fail(w, r, errors.Wrap(errUnauthorized, err.Error()))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = zctx.With(ctx, zap.Stringer("user_id", id.UserID))
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("user.id", id.UserID.String()),
			attribute.String("user.role", string(id.Role)),
		)
		next(w, r.WithContext(ctx), id)
	}
}

// admin is authed restricted to the admin role.
func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return h.authed(func(w http.ResponseWriter, r *http.Request, id auth.Identity) {
		if !id.IsAdmin() {
			h.fail(w, r, errForbidden)
			return
		}
		next(w, r)
	})
}

// RateLimitKey keys authenticated requests by user id and anonymous ones by
// client IP.
func RateLimitKey(tokens TokenParser) func(*http.Request) string {
	return func(r *http.Request) string {
		if raw, ok := bearerToken(r); ok {
			if id, err := tokens.Parse(raw); err == nil {
				return "user:" + id.UserID.String()
			}
		}
		return "ip:" + httpmiddleware.ClientIP(r)
	}
}
