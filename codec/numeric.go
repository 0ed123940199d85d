package codec

import (
	"math"
	"reflect"
	"strconv"
)

// Numeric is the value codec used by hashcache stores.
//
// Numbers (every Go integer and float kind, named types such as
// time.Duration included, finite floats only) are written as their canonical
// decimal text with no serialization wrapper, which keeps them usable by
// server-side arithmetic such as HINCRBY. Anything else is handed
// to Inner. On decode, a payload that looks like a decimal number comes back
// as int64, uint64 (beyond int64 range) or float64; everything else goes to
// Inner.Decode.
//
// Integral floats therefore come back as int64 (8.0 -> "8" -> int64(8)).
type Numeric struct {
	Inner Codec[any]
}

var _ Codec[any] = Numeric{}

func (c Numeric) Encode(v any) ([]byte, error) {
	if b, ok := formatNumber(v); ok {
		return b, nil
	}
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if LooksNumeric(b) {
		return nil, ErrAmbiguous
	}
	return b, nil
}

func (c Numeric) Decode(b []byte) (any, error) {
	if LooksNumeric(b) {
		return parseNumber(b)
	}
	return c.Inner.Decode(b)
}

// LooksNumeric reports whether b is a plain decimal number:
// optional minus, digits, optional fraction, optional exponent.
func LooksNumeric(b []byte) bool {
	i, n := 0, len(b)
	if i < n && b[i] == '-' {
		i++
	}
	start := i
	for i < n && isDigit(b[i]) {
		i++
	}
	if i == start {
		return false
	}
	if i < n && b[i] == '.' {
		i++
		frac := i
		for i < n && isDigit(b[i]) {
			i++
		}
		if i == frac {
			return false
		}
	}
	if i < n && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < n && (b[i] == '+' || b[i] == '-') {
			i++
		}
		exp := i
		for i < n && isDigit(b[i]) {
			i++
		}
		if i == exp {
			return false
		}
	}
	return i == n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func formatNumber(v any) ([]byte, bool) {
	switch n := v.(type) {
	case int:
		return strconv.AppendInt(nil, int64(n), 10), true
	case int8:
		return strconv.AppendInt(nil, int64(n), 10), true
	case int16:
		return strconv.AppendInt(nil, int64(n), 10), true
	case int32:
		return strconv.AppendInt(nil, int64(n), 10), true
	case int64:
		return strconv.AppendInt(nil, n, 10), true
	case uint:
		return strconv.AppendUint(nil, uint64(n), 10), true
	case uint8:
		return strconv.AppendUint(nil, uint64(n), 10), true
	case uint16:
		return strconv.AppendUint(nil, uint64(n), 10), true
	case uint32:
		return strconv.AppendUint(nil, uint64(n), 10), true
	case uint64:
		return strconv.AppendUint(nil, n, 10), true
	case float32:
		return formatFloat(float64(n), 32)
	case float64:
		return formatFloat(n, 64)
	}
	// named numeric types such as time.Duration
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(nil, rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.AppendUint(nil, rv.Uint(), 10), true
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	}
	return nil, false
}

func formatFloat(f float64, bits int) ([]byte, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return strconv.AppendFloat(nil, f, 'g', -1, bits), true
}

func parseNumber(b []byte) (any, error) {
	s := string(b)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}
