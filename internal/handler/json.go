package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/money"
)

const maxBodySize = 1 << 20

// badRequest classifies malformed input so it is reported as 400.
func badRequest(format string, args ...any) error {
	return apperr.Errorf(apperr.Validation, format, args...)
}

// decodeBody decodes a JSON object body, calling fn for every field.
// Unknown fields must be skipped by fn.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 4096)
	if err := d.Obj(fn); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return badRequest("invalid request body: %s", err)
	}
	return nil
}

func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, badRequest("%s must be a decimal number", field)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, badRequest("%s must be a decimal number", field)
	}
	if !money.Fits(v) {
		return decimal.Decimal{}, badRequest("%s is out of range", field)
	}
	return v, nil
}

func decodeNullDecimal(d *jx.Decoder, field string) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeDecimal(d, field)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

func decodeUUID(d *jx.Decoder, field string) (uuid.UUID, error) {
	s, err := d.Str()
	if err != nil {
		return uuid.Nil, badRequest("%s must be a string", field)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, badRequest("%s must be a UUID", field)
	}
	return id, nil
}

func decodeOptUUID(d *jx.Decoder, field string) (*uuid.UUID, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	id, err := decodeUUID(d, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func decodeTime(d *jx.Decoder, field string) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, badRequest("%s must be a string", field)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, badRequest("%s must be an RFC 3339 timestamp", field)
	}
	return t, nil
}

func decodeOptInt(d *jx.Decoder) (*int, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encMoney(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.Str(v.StringFixed(2))
}

func encNullMoney(e *jx.Encoder, name string, v decimal.NullDecimal) {
	e.FieldStart(name)
	if !v.Valid {
		e.Null()
		return
	}
	e.Str(v.Decimal.StringFixed(2))
}

func encTime(e *jx.Encoder, name string, t time.Time) {
	e.FieldStart(name)
	e.Str(t.UTC().Format(time.RFC3339))
}

func encUUID(e *jx.Encoder, name string, id uuid.UUID) {
	e.FieldStart(name)
	e.Str(id.String())
}

func encOptUUID(e *jx.Encoder, name string, id *uuid.UUID) {
	e.FieldStart(name)
	if id == nil {
		e.Null()
		return
	}
	e.Str(id.String())
}

func encStr(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func encInt(e *jx.Encoder, name string, v int) {
	e.FieldStart(name)
	e.Int(v)
}
