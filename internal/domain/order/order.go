package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	// CurrencyINR is the only currency orders are created in.
	CurrencyINR = "INR"
	// MinAmount is the smallest accepted amount in paise (₹10).
	MinAmount int64 = 1000
)

var (
	ErrMissingAmount = errors.New("order: amount is required")
	ErrInvalidAmount = errors.New("order: amount must be an integer number of paise")
	ErrAmountTooLow  = errors.New("order: amount must be at least 1000 paise")

	ErrEmptyBody     = errors.New("order: request body must be a JSON object")
	ErrMalformedBody = errors.New("order: request body is not valid JSON")
)

// Request is the validated order intent of a single checkout.
type Request struct {
	Amount      int64
	Currency    string
	AutoCapture bool
}

// Result is what the checkout widget needs to open the payment dialog.
type Result struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PublicKey string `json:"key"`
}

// NewRequest validates amount and returns an INR, auto-captured request.
func NewRequest(amount int64) (Request, error) {
	if amount < MinAmount {
		return Request{}, ErrAmountTooLow
	}
	return Request{
		Amount:      amount,
		Currency:    CurrencyINR,
		AutoCapture: true,
	}, nil
}

// DecodeAmount reads a JSON object body and returns the raw "amount" value,
// empty when the field is absent.
func DecodeAmount(body io.Reader) (json.RawMessage, error) {
	if body == nil {
		return nil, ErrEmptyBody
	}
	var payload struct {
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		return nil, ErrMalformedBody
	}
	return payload.Amount, nil
}

// ParseAmount accepts a JSON integer, an integral JSON float or a numeric string.
func ParseAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrMissingAmount
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, ErrInvalidAmount
		}
		s = strings.TrimSpace(s)
	} else {
		s = string(raw)
	}
	if s == "" {
		return 0, ErrMissingAmount
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, ErrInvalidAmount
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, ErrInvalidAmount
	}
	return int64(f), nil
}

// IsValidation reports whether err is one of the body or amount validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBody) ||
		errors.Is(err, ErrMalformedBody) ||
		errors.Is(err, ErrMissingAmount) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAmountTooLow)
}
