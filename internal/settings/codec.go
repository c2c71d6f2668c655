package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Coerce converts v to the schema type of key. Values decoded from JSON
// (float64 numbers, []any collections) are accepted when they convert
// losslessly. Collection values must also pass the rules the collection
// operations enforce on single entries.
func Coerce(key string, v any) (any, error) {
	cv, err := coerce(key, v)
	if err != nil {
		return nil, err
	}
	if err := checkCollection(key, cv); err != nil {
		return nil, fmt.Errorf("setting %q: %w", key, err)
	}
	return cv, nil
}

func coerce(key string, v any) (any, error) {
	def, ok := schema[key]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", key)
	}
	switch def.(type) {
	case bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case string:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			if n >= math.MinInt && n <= math.MaxInt {
				return int(n), nil
			}
		case float64:
			// float64(math.MaxInt) rounds up to a power of two, so the upper bound is exclusive.
			if n == math.Trunc(n) && n >= float64(math.MinInt) && n < -float64(math.MinInt) {
				return int(n), nil
			}
			return nil, fmt.Errorf("setting %q: %v is not an integer in range", key, n)
		}
	case []Item:
		if items, ok := v.([]Item); ok {
			return cloneValue(items), nil
		}
	case []DropdownOption:
		if opts, ok := v.([]DropdownOption); ok {
			return cloneValue(opts), nil
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("setting %q: %w", key, err)
	}
	return Decode(key, raw)
}

// Decode parses the persisted JSON encoding of key.
func Decode(key string, raw []byte) (any, error) {
	def, ok := schema[key]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", key)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("setting %q: null value", key)
	}

	var err error
	switch def.(type) {
	case bool:
		var b bool
		if err = strictUnmarshal(raw, &b); err == nil {
			return b, nil
		}
	case string:
		var s string
		if err = strictUnmarshal(raw, &s); err == nil {
			return s, nil
		}
	case int:
		var n int
		if err = strictUnmarshal(raw, &n); err == nil {
			return n, nil
		}
	case []Item:
		items := []Item{}
		if err = strictUnmarshal(raw, &items); err == nil {
			return cloneValue(items), nil
		}
	case []DropdownOption:
		opts := []DropdownOption{}
		if err = strictUnmarshal(raw, &opts); err == nil {
			return cloneValue(opts), nil
		}
	default:
		err = fmt.Errorf("unsupported type %T", def)
	}
	return nil, fmt.Errorf("setting %q: %w", key, err)
}

// Encode returns the persisted JSON encoding of v.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after value")
	}
	return nil
}
