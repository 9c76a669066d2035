package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "email":
			in.Email, err = d.Str()
		case "password":
			in.Password, err = d.Str()
		case "first_name":
			in.FirstName, err = d.Str()
		case "last_name":
			in.LastName, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encSession(e, s) })
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "email":
			email, err = d.Str()
		case "password":
			password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.accounts.Login(r.Context(), email, password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSession(e, s) })
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "refresh_token":
			token, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if token == "" {
		h.fail(w, r, badRequest("refresh_token is required"))
		return
	}

	s, err := h.accounts.Refresh(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSession(e, s) })
}
