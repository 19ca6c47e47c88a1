package appconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// Source resolves runtime settings. ok is false when the key is not set.
type Source interface {
	Value(ctx context.Context, key string) (value any, ok bool, err error)
}

// ParseValue decodes JSON when the text is valid JSON and returns it
// unchanged otherwise. Numbers decode as json.Number.
func ParseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// Schedule reads an ordered list of amounts. A missing key yields def; a
// source failure or malformed value yields def together with an error
// wrapping domain.ErrConfigurationUnavailable.
func Schedule(ctx context.Context, src Source, key string, def []decimal.Decimal) ([]decimal.Decimal, error) {
	v, ok, err := src.Value(ctx, key)
	if err != nil {
		return def, fmt.Errorf("%s: %v: %w", key, err, domain.ErrConfigurationUnavailable)
	}
	if !ok {
		return def, nil
	}
	items, isList := v.([]any)
	if !isList {
		return def, fmt.Errorf("%s: expected a list, got %T: %w", key, v, domain.ErrConfigurationUnavailable)
	}
	out := make([]decimal.Decimal, 0, len(items))
	for i, item := range items {
		d, err := toDecimal(item)
		if err != nil || d.IsNegative() {
			return def, fmt.Errorf("%s[%d]: invalid amount %v: %w", key, i, item, domain.ErrConfigurationUnavailable)
		}
		out = append(out, d)
	}
	return out, nil
}

// Decimal reads a single number.
func Decimal(ctx context.Context, src Source, key string, def decimal.Decimal) (decimal.Decimal, error) {
	v, ok, err := src.Value(ctx, key)
	if err != nil {
		return def, fmt.Errorf("%s: %v: %w", key, err, domain.ErrConfigurationUnavailable)
	}
	if !ok {
		return def, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return def, fmt.Errorf("%s: %v: %w", key, err, domain.ErrConfigurationUnavailable)
	}
	return d, nil
}

// Int reads a whole number.
func Int(ctx context.Context, src Source, key string, def int) (int, error) {
	d, err := Decimal(ctx, src, key, decimal.NewFromInt(int64(def)))
	if err != nil {
		return def, err
	}
	if !d.Equal(d.Truncate(0)) {
		return def, fmt.Errorf("%s: %s is not a whole number: %w", key, d, domain.ErrConfigurationUnavailable)
	}
	return int(d.IntPart()), nil
}

// IntSet reads a list of whole numbers into a set; missing means empty.
func IntSet(ctx context.Context, src Source, key string) (map[int]bool, error) {
	amounts, err := Schedule(ctx, src, key, nil)
	if err != nil {
		return map[int]bool{}, err
	}
	out := make(map[int]bool, len(amounts))
	for _, d := range amounts {
		if d.Equal(d.Truncate(0)) && d.IsPositive() {
			out[int(d.IntPart())] = true
		}
	}
	return out, nil
}

// String reads a text value; non-string JSON is re-encoded.
func String(ctx context.Context, src Source, key string, def string) (string, error) {
	v, ok, err := src.Value(ctx, key)
	if err != nil {
		return def, fmt.Errorf("%s: %v: %w", key, err, domain.ErrConfigurationUnavailable)
	}
	if !ok {
		return def, nil
	}
	if s, isString := v.(string); isString {
		return s, nil
	}
	b, _ := json.Marshal(v)
	return string(b), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	}
	return decimal.Zero, fmt.Errorf("not a number: %T", v)
}

// EncodeValue renders a value the way app_config stores it.
func EncodeValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.RawMessage:
		return string(t), nil
	case int:
		return strconv.Itoa(t), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Static fixed in-memory Source
type Static map[string]any

func (s Static) Value(_ context.Context, key string) (any, bool, error) {
	v, ok := s[key]
	if !ok {
		return nil, false, nil
	}
	if raw, isString := v.(string); isString {
		return ParseValue(raw), true, nil
	}
	return v, true, nil
}
