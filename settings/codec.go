package settings

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/esrf-bliss/blisscore/errors"
)

// Codec converts between typed values and their stored string form.
// Encode runs before every remote write, Decode after every remote
// read.
type Codec[T any] interface {
	Encode(T) (string, error)
	Decode(string) (T, error)
}

// StringCodec stores strings as-is
type StringCodec struct{}

func (StringCodec) Encode(v string) (string, error) { return v, nil }

func (StringCodec) Decode(s string) (string, error) { return s, nil }

// IntCodec stores int64 values in decimal form
type IntCodec struct{}

func (IntCodec) Encode(v int64) (string, error) {
	return strconv.FormatInt(v, 10), nil
}

func (IntCodec) Decode(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.WrapInvalid(errors.ErrDecodeFailed, "IntCodec", "Decode", s)
	}
	return v, nil
}

// FloatCodec stores float64 values in shortest round-trippable form
type FloatCodec struct{}

func (FloatCodec) Encode(v float64) (string, error) {
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}

func (FloatCodec) Decode(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.WrapInvalid(errors.ErrDecodeFailed, "FloatCodec", "Decode", s)
	}
	return v, nil
}

// BoolCodec stores booleans as "true"/"false", accepting the usual
// literal spellings on read
type BoolCodec struct{}

func (BoolCodec) Encode(v bool) (string, error) {
	return strconv.FormatBool(v), nil
}

func (BoolCodec) Decode(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, errors.WrapInvalid(errors.ErrDecodeFailed, "BoolCodec", "Decode", s)
}

// JSONCodec stores arbitrary structured values as JSON
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.WrapInvalid(err, "JSONCodec", "Encode", "marshal")
	}
	return string(data), nil
}

func (JSONCodec[T]) Decode(s string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, errors.WrapInvalid(errors.ErrDecodeFailed, "JSONCodec", "Decode", s)
	}
	return v, nil
}

// AutoCodec guesses the value type on read: boolean literal first, then
// integer, then float, falling back to the raw string. A convertor that
// fails moves on to the next; nothing is propagated.
type AutoCodec struct{}

func (AutoCodec) Encode(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "", errors.WrapInvalid(err, "AutoCodec", "Encode", "marshal")
		}
		return string(data), nil
	}
}

func (AutoCodec) Decode(s string) (any, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	return s, nil
}
