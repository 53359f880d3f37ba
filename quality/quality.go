// Package quality collects data-quality events raised while normalizing and
// merging series. None of them abort a merge.
package quality

import (
	"fmt"
	"time"
)

// Kind classifies a data-quality event.
type Kind int

const (
	// MalformedRecord means a single raw record was dropped.
	MalformedRecord Kind = iota
	// BoundsInverted means a forecast point had upper < lower and was swapped.
	BoundsInverted
	// DuplicateTimestamp means an earlier record was replaced by a later one
	// with the same timestamp.
	DuplicateTimestamp
)

func (k Kind) String() string {
	switch k {
	case MalformedRecord:
		return "malformed_record"
	case BoundsInverted:
		return "bounds_inverted"
	case DuplicateTimestamp:
		return "duplicate_timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Warning is a single human-readable data-quality event. Timestamp is epoch
// milliseconds, or zero when the record had no usable timestamp.
type Warning struct {
	Kind      Kind   `json:"kind"`
	Series    string `json:"series"`
	Index     int    `json:"index"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Message   string `json:"message"`
}

func (w Warning) String() string {
	if w.Timestamp != 0 {
		return fmt.Sprintf("%s: %s record %d at %s: %s",
			w.Kind, w.Series, w.Index,
			time.UnixMilli(w.Timestamp).UTC().Format(time.RFC3339), w.Message,
		)
	}
	return fmt.Sprintf("%s: %s record %d: %s", w.Kind, w.Series, w.Index, w.Message)
}

// Report accumulates warnings in the order they were raised.
type Report struct {
	warnings []Warning
}

func (r *Report) Add(w ...Warning) {
	r.warnings = append(r.warnings, w...)
}

func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.warnings)
}

// Warnings returns a copy of the collected warnings.
func (r *Report) Warnings() []Warning {
	if r.Len() == 0 {
		return nil
	}
	dst := make([]Warning, len(r.warnings))
	copy(dst, r.warnings)
	return dst
}

// Count returns the number of warnings of the given kind.
func (r *Report) Count(kind Kind) int {
	if r == nil {
		return 0
	}
	var cnt int
	for _, w := range r.warnings {
		if w.Kind == kind {
			cnt++
		}
	}
	return cnt
}

// Strings renders every warning for a status display.
func (r *Report) Strings() []string {
	if r.Len() == 0 {
		return nil
	}
	out := make([]string, 0, len(r.warnings))
	for _, w := range r.warnings {
		out = append(out, w.String())
	}
	return out
}
