package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// Columns of a coupon CSV record.
const (
	colCode = iota
	colType
	colValue
	colMin
	colMax
	colLimit
	colStarts
	colEnds
	numCols
)

// scanFile streams the records of a gzip-compressed CSV file. A leading
// header row starting with "code" is skipped. The record slice is reused
// between calls.
func scanFile(ctx context.Context, path string, fn func(line int, rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = numCols
	r.ReuseRecord = true
	r.TrimLeadingSpace = true

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if line == 1 && strings.EqualFold(rec[colCode], "code") {
			continue
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

// parseRecord converts a CSV record into a coupon. Empty min, max and limit
// columns mean no threshold. Dates are RFC 3339 timestamps or plain dates.
func parseRecord(rec []string, now time.Time) (*coupon.Coupon, error) {
	value, err := decimal.NewFromString(rec[colValue])
	if err != nil {
		return nil, errors.Errorf("value %q is not a decimal", rec[colValue])
	}
	minPurchase, err := parseNullDecimal(rec[colMin], "min")
	if err != nil {
		return nil, err
	}
	maxDiscount, err := parseNullDecimal(rec[colMax], "max")
	if err != nil {
		return nil, err
	}
	var limit *int
	if raw := strings.TrimSpace(rec[colLimit]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Errorf("limit %q is not an integer", raw)
		}
		limit = &n
	}
	starts, err := parseDate(rec[colStarts])
	if err != nil {
		return nil, err
	}
	ends, err := parseDate(rec[colEnds])
	if err != nil {
		return nil, err
	}

	typ := coupon.DiscountType(strings.ToUpper(strings.TrimSpace(rec[colType])))
	return coupon.New(coupon.CreateInput{
		Code:        rec[colCode],
		Description: describe(typ, value),
		Type:        typ,
		Value:       value,
		MinPurchase: minPurchase,
		MaxDiscount: maxDiscount,
		UsageLimit:  limit,
		StartsAt:    starts,
		EndsAt:      ends,
	}, now)
}

func parseNullDecimal(raw, name string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, errors.Errorf("%s %q is not a decimal", name, raw)
	}
	return decimal.NewNullDecimal(v), nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.Errorf("date %q is neither RFC 3339 nor YYYY-MM-DD", raw)
	}
	return t, nil
}

func describe(typ coupon.DiscountType, value decimal.Decimal) string {
	if typ == coupon.DiscountPercentage {
		return fmt.Sprintf("%s%% off", value.String())
	}
	return fmt.Sprintf("%s off", value.StringFixed(2))
}
