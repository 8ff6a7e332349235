// This file implements decoding of request bodies and query strings into
// domain values, with uniform errors for the two failure classes: a body or
// query that cannot be read (400) and values the domain rejects (422).

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON value from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return malformed("request body must hold a single JSON object", nil)
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return malformed("request body is required", nil)
	case errors.Is(err, core.ErrInvalidAmount):
		return core.Validation("amount must be a decimal number")
	case errors.Is(err, core.ErrInvalidDate):
		return core.Validation("dates must be formatted YYYY-MM-DD")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return malformed("malformed JSON", err)
	case errors.As(err, &typeErr):
		return malformed("field "+typeErr.Field+" has the wrong type", nil)
	case errors.As(err, &maxErr):
		return malformed("request body too large", nil)
	default:
		return malformed("malformed JSON", err)
	}
}

// parseMonth reads year and month from the query, defaulting to the month
// of today.
func parseMonth(query url.Values, today core.Date) (core.Date, error) {
	year, month := today.Year(), int(today.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return core.Date{}, core.Validation("year must be a number between 1 and 9999")
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.Date{}, core.Validation("month must be a number between 1 and 12")
		}
		month = m
	}
	return core.NewDate(year, month, 1), nil
}

// parseExpenseFilter reads the list filter of GET /api/expenses.
func parseExpenseFilter(query url.Values) (ledger.ExpenseFilter, error) {
	var f ledger.ExpenseFilter
	var err error

	if f.From, err = queryDate(query, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(query, "to"); err != nil {
		return f, err
	}
	f.CategoryID = strings.TrimSpace(query.Get("categoryId"))
	f.SavingsGoalID = strings.TrimSpace(query.Get("savingsGoalId"))

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, core.Validation("limit must be a non-negative number")
		}
		f.Limit = n
	}
	return f, nil
}

func queryDate(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Validation("%s must be formatted YYYY-MM-DD", key)
	}
	return d, nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
