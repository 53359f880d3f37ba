package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var ErrEmptyPayload = errors.New("empty payload")

// Number is a JSON value decoded from a number or a numeric string. Null,
// missing, or unparsable inputs leave it invalid instead of failing the
// payload so a single bad record can be dropped on its own.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, n.Value, 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.Value = f
	n.Valid = true
	return nil
}

// HistoryRecord is one observed candle from the history endpoint. Only the
// timestamp and close are used; ds and y are accepted as aliases.
type HistoryRecord struct {
	Timestamp Timestamp `json:"timestamp"`
	DS        Timestamp `json:"ds"`
	Close     Number    `json:"close"`
	Y         Number    `json:"y"`
}

func (r HistoryRecord) timestamp() Timestamp {
	if r.Timestamp.IsZero() {
		return r.DS
	}
	return r.Timestamp
}

func (r HistoryRecord) value() Number {
	if r.Close.Valid {
		return r.Close
	}
	return r.Y
}

// ForecastRecord is one predicted point from the prediction endpoint.
type ForecastRecord struct {
	Timestamp Timestamp `json:"timestamp"`
	DS        Timestamp `json:"ds"`
	Yhat      Number    `json:"yhat"`
	YhatLower Number    `json:"yhat_lower"`
	YhatUpper Number    `json:"yhat_upper"`
}

func (r ForecastRecord) timestamp() Timestamp {
	if r.Timestamp.IsZero() {
		return r.DS
	}
	return r.Timestamp
}

// HistoryPayload is the history endpoint envelope.
type HistoryPayload struct {
	Symbol string          `json:"symbol"`
	Count  int             `json:"count"`
	Data   []HistoryRecord `json:"data"`
}

// ForecastPayload is the prediction endpoint envelope.
type ForecastPayload struct {
	Symbol   string           `json:"symbol"`
	Source   string           `json:"source"`
	Forecast []ForecastRecord `json:"forecast"`
}

// DecodeHistory decodes either a bare record array or a HistoryPayload.
func DecodeHistory(data []byte) ([]HistoryRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] == '[' {
		var records []HistoryRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("unable to decode history records, %w", err)
		}
		return records, nil
	}
	var payload HistoryPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unable to decode history payload, %w", err)
	}
	return payload.Data, nil
}

// DecodeForecast decodes either a bare record array or a ForecastPayload.
func DecodeForecast(data []byte) ([]ForecastRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] == '[' {
		var records []ForecastRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("unable to decode forecast records, %w", err)
		}
		return records, nil
	}
	var payload ForecastPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unable to decode forecast payload, %w", err)
	}
	return payload.Forecast, nil
}
