package streaming

import (
	"strconv"
	"strings"

	"github.com/esrf-bliss/blisscore/errors"
)

// ParseIndex splits a composite "<millis>-<seq>" stream index
func ParseIndex(index string) (millis, seq int64, err error) {
	head, tail, found := strings.Cut(index, "-")
	if !found {
		return 0, 0, errors.WrapInvalid(errors.ErrInvalidValue, "streaming", "ParseIndex", index)
	}
	millis, err = strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, 0, errors.WrapInvalid(errors.ErrInvalidValue, "streaming", "ParseIndex", index)
	}
	seq, err = strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, 0, errors.WrapInvalid(errors.ErrInvalidValue, "streaming", "ParseIndex", index)
	}
	return millis, seq, nil
}

// FormatIndex builds a composite stream index
func FormatIndex(millis, seq int64) string {
	return strconv.FormatInt(millis, 10) + "-" + strconv.FormatInt(seq, 10)
}

// IncrIndex returns the smallest index strictly greater than index:
// the sequence component is incremented, the millisecond part is left
// alone.
func IncrIndex(index string) (string, error) {
	millis, seq, err := ParseIndex(index)
	if err != nil {
		return "", err
	}
	return FormatIndex(millis, seq+1), nil
}
