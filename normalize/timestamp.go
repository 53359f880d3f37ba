package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrUnparsableTimestamp = errors.New("unparsable timestamp")
	ErrMissingTimestamp    = errors.New("missing timestamp")
)

// epoch values below this magnitude are seconds, anything above is millis
const secondsCutoff = 1e11

// maxEpochMillis keeps conversions inside int64 range.
const maxEpochMillis = 9.2e18

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp holds a raw JSON timestamp, either an epoch number or a string,
// until it is parsed into epoch milliseconds.
type Timestamp struct {
	raw []byte
}

// TimestampMillis returns a numeric epoch millisecond timestamp.
func TimestampMillis(ms int64) Timestamp {
	return Timestamp{raw: strconv.AppendInt(nil, ms, 10)}
}

// TimestampString returns a string timestamp such as an RFC3339 date.
func TimestampString(s string) Timestamp {
	return Timestamp{raw: strconv.AppendQuote(nil, s)}
}

// IsZero reports whether the timestamp is missing, null or a blank string.
func (t Timestamp) IsZero() bool {
	raw := bytes.TrimSpace(t.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}
	if raw[0] != '"' {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return strings.TrimSpace(s) == ""
}

func (t Timestamp) String() string {
	return string(t.raw)
}

// Millis parses the timestamp into epoch milliseconds.
func (t Timestamp) Millis() (int64, error) {
	if t.IsZero() {
		return 0, ErrMissingTimestamp
	}
	raw := bytes.TrimSpace(t.raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%s, %w", raw, ErrUnparsableTimestamp)
		}
		return ParseTime(s)
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s, %w", raw, ErrUnparsableTimestamp)
	}
	return epochMillis(f)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.raw, nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.raw = append(t.raw[:0], data...)
	return nil
}

// ParseTime parses an epoch number string (seconds or milliseconds) or one
// of the accepted date layouts into epoch milliseconds. Layouts without a
// zone are read as UTC.
func ParseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingTimestamp
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochMillis(f)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%q, %w", s, ErrUnparsableTimestamp)
}

func epochMillis(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v, %w", f, ErrUnparsableTimestamp)
	}
	if math.Abs(f) < secondsCutoff {
		return int64(math.Round(f * 1000)), nil
	}
	if math.Abs(f) > maxEpochMillis {
		return 0, fmt.Errorf("%v out of range, %w", f, ErrUnparsableTimestamp)
	}
	return int64(math.Round(f)), nil
}
