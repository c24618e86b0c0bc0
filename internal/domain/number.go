package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var errNotNumeric = errors.New("value is not numeric")

// Number is a counter written by a producer either as a JSON number or as a
// numeric string (LinkedIn reports company size both ways). The original text
// is kept so findings render the value exactly as it was stored.
type Number struct {
	text   string
	quoted bool
}

// NewNumber builds a Number from an integer counter.
func NewNumber(v int64) *Number {
	return &Number{text: strconv.FormatInt(v, 10)}
}

// NumberFromString builds a Number the way a producer that stores strings would.
func NumberFromString(s string) *Number {
	return &Number{text: s, quoted: true}
}

// String returns the value as the producer wrote it.
func (n Number) String() string {
	return n.text
}

// Float coerces the value to a float64. Blank, non-numeric, NaN and infinite
// values are rejected.
func (n Number) Float() (float64, error) {
	s := strings.TrimSpace(n.text)
	if s == "" {
		return 0, errNotNumeric
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", errNotNumeric, n.text)
	}
	return f, nil
}

// UnmarshalJSON accepts numbers and strings. Any other JSON value is kept as
// raw text so that coercion fails later instead of rejecting the whole record.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.text, n.quoted = s, true
		return nil
	}
	n.text, n.quoted = string(data), false
	return nil
}

// MarshalJSON writes the value back in the shape it was read.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.quoted {
		return json.Marshal(n.text)
	}
	if !json.Valid([]byte(n.text)) {
		return json.Marshal(n.text)
	}
	return []byte(n.text), nil
}
