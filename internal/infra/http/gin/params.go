package ginserver

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/shared/apperr"
	"staybook/internal/domain/shared/daterange"
)

func parseDate(field, raw string) (time.Time, error) {
	t, err := daterange.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindValidation, "http: "+field+" must be formatted as YYYY-MM-DD", err)
	}
	return t, nil
}

func parsePositiveInt(field, raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperr.Validation("http: " + field + " must be a positive integer")
	}
	return v, nil
}

func parseOptionalDecimal(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "http: "+field+" must be a decimal", err)
	}
	return &v, nil
}

// optionalDate parses raw when present and returns the zero time otherwise.
func optionalDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(field, raw)
}
