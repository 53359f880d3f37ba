package timedataset

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Null returns the placeholder used for positions without a value.
func Null() float64 {
	return math.NaN()
}

// IsNull reports whether v is the null placeholder.
func IsNull(v float64) bool {
	return math.IsNaN(v)
}

// Values is a slice of values aligned to a timeline where NaN marks a null
// position. It serializes NaN as JSON null.
type Values []float64

// NewNullValues returns n null positions.
func NewNullValues(n int) Values {
	v := make(Values, n)
	for i := range v {
		v[i] = Null()
	}
	return v
}

// Finite returns the non-null values in order.
func (v Values) Finite() []float64 {
	out := make([]float64, 0, len(v))
	for _, val := range v {
		if IsNull(val) || math.IsInf(val, 0) {
			continue
		}
		out = append(out, val)
	}
	return out
}

// Count returns the number of non-null positions.
func (v Values) Count() int {
	var cnt int
	for _, val := range v {
		if !IsNull(val) {
			cnt++
		}
	}
	return cnt
}

// At returns the value at i and whether it is present.
func (v Values) At(i int) (float64, bool) {
	if i < 0 || i >= len(v) || IsNull(v[i]) {
		return 0, false
	}
	return v[i], true
}

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(v)*8)
	buf = append(buf, '[')
	for i, val := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		if IsNull(val) || math.IsInf(val, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, val, 'f', -1, 64)
	}
	buf = append(buf, ']')
	return buf, nil
}

func (v *Values) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = nil
		return nil
	}
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, val := range raw {
		if val == nil {
			out[i] = Null()
			continue
		}
		out[i] = *val
	}
	*v = out
	return nil
}
