// Package extrema derives per-calendar-day high/low values from a bar series.
//
// Both functions are pure: they never log, touch I/O, or retain state, so
// concurrent callers need no coordination.
package extrema

import (
	"math"
	"sort"
	"time"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// Extract partitions bars by calendar day (truncated in loc, UTC when nil)
// and aggregates max(high) / min(low) over each partition.
//
// Bars with a NaN high or low are excluded from their day's aggregation; a
// day whose bars are all excluded is omitted from the result. Result keys are
// midnight times in loc; iteration order is unspecified.
//
// Returns ErrCodeEmptyInput for an empty series and ErrCodeMissingField when
// a required field (timestamp, high, low) is absent from every bar, which
// indicates a malformed schema rather than sparse data.
func Extract(bars []types.MarketData, loc *time.Location) (map[time.Time]types.DailyExtremum, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no bars supplied")
	}

	if err := checkSchema(bars); err != nil {
		return nil, err
	}

	result := make(map[time.Time]types.DailyExtremum)

	for _, bar := range bars {
		if bar.Time.IsZero() || !bar.HasHighLow() {
			continue
		}

		day := bar.Day(loc)

		entry, ok := result[day]
		if !ok {
			result[day] = types.DailyExtremum{Date: day, High: bar.High, Low: bar.Low}

			continue
		}

		entry.High = math.Max(entry.High, bar.High)
		entry.Low = math.Min(entry.Low, bar.Low)
		result[day] = entry
	}

	return result, nil
}

// DistinctDates returns every calendar day represented in the series exactly
// once, ascending. Days are derived from timestamps alone, so a day whose
// bars all lack high/low still appears here even though Extract omits it.
func DistinctDates(bars []types.MarketData, loc *time.Location) ([]time.Time, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no bars supplied")
	}

	seen := make(map[time.Time]struct{})

	var dates []time.Time

	for _, bar := range bars {
		if bar.Time.IsZero() {
			continue
		}

		day := bar.Day(loc)
		if _, ok := seen[day]; ok {
			continue
		}

		seen[day] = struct{}{}

		dates = append(dates, day)
	}

	if len(dates) == 0 {
		return nil, errors.New(errors.ErrCodeMissingField, "timestamp absent from every bar")
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	return dates, nil
}

// checkSchema distinguishes a malformed schema (a field missing everywhere)
// from tolerated sparse nulls.
func checkSchema(bars []types.MarketData) error {
	var hasTime, hasHigh, hasLow bool

	for _, bar := range bars {
		if !bar.Time.IsZero() {
			hasTime = true
		}

		if !math.IsNaN(bar.High) {
			hasHigh = true
		}

		if !math.IsNaN(bar.Low) {
			hasLow = true
		}

		if hasTime && hasHigh && hasLow {
			return nil
		}
	}

	switch {
	case !hasTime:
		return errors.New(errors.ErrCodeMissingField, "timestamp absent from every bar")
	case !hasHigh:
		return errors.New(errors.ErrCodeMissingField, "high absent from every bar")
	default:
		return errors.New(errors.ErrCodeMissingField, "low absent from every bar")
	}
}
