package types

import (
	"math"
	"time"
)

// MarketData is a single OHLC(V) bar. Numeric fields use NaN as the null
// marker so that sparse source files (empty CSV cells) survive decoding
// without a separate optional wrapper.
type MarketData struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// HasHighLow reports whether the bar carries usable high and low values.
func (m MarketData) HasHighLow() bool {
	return !math.IsNaN(m.High) && !math.IsNaN(m.Low)
}

// Day returns the bar's calendar day: its timestamp truncated to midnight in
// the given location. A nil location means UTC.
func (m MarketData) Day(loc *time.Location) time.Time {
	return DayOf(m.Time, loc)
}

// DayOf truncates t to midnight in loc. A nil location means UTC.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := t.In(loc).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
