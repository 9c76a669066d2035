package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

// statusOf maps an error to its HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	}
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.EmptyCart, apperr.Validation:
		return http.StatusBadRequest
	case apperr.InvalidState:
		return http.StatusUnprocessableEntity
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a {"code","message"} body. Internal errors are logged
// and their message is hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)

	var msg string
	switch code {
	case http.StatusInternalServerError:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	case http.StatusUnauthorized:
		msg = "unauthorized"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = auth.ErrInvalidCredentials.Message
		}
	case http.StatusForbidden:
		msg = errForbidden.Error()
	default:
		msg = apperr.Message(err)
	}

	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			encInt(e, "code", code)
			encStr(e, "message", msg)
		})
	})
}
