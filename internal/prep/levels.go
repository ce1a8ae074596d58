package prep

import (
	"math"
	"time"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// StampDailyLevels computes the aggregated high/low over all usable rows of
// targetDate (a "2006-01-02" string, evaluated in loc) and stamps the pdh
// and pdl columns on every row of that date.
//
// Returns the stamped extremum. Fails with ErrCodeInvalidTimestamp when
// targetDate does not parse, ErrCodeDataNotFound when the date has no rows,
// and ErrCodeMissingField when none of its rows carry high/low values.
func StampDailyLevels(rows []*Row, targetDate string, loc *time.Location) (types.DailyExtremum, error) {
	if loc == nil {
		loc = time.UTC
	}

	day, err := time.ParseInLocation("2006-01-02", targetDate, loc)
	if err != nil {
		return types.DailyExtremum{}, errors.Wrapf(errors.ErrCodeInvalidTimestamp, err, "cannot parse target date %q", targetDate)
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	matched := 0
	usable := 0

	for _, row := range rows {
		if row.Date.IsZero() || !types.DayOf(row.Date.Normalize(loc), loc).Equal(day) {
			continue
		}

		matched++

		if row.High == nil || row.Low == nil {
			continue
		}

		usable++
		high = math.Max(high, *row.High)
		low = math.Min(low, *row.Low)
	}

	if matched == 0 {
		return types.DailyExtremum{}, errors.Newf(errors.ErrCodeDataNotFound, "no rows for date %s", targetDate)
	}

	if usable == 0 {
		return types.DailyExtremum{}, errors.Newf(errors.ErrCodeMissingField, "no usable high/low values for date %s", targetDate)
	}

	for _, row := range rows {
		if row.Date.IsZero() || !types.DayOf(row.Date.Normalize(loc), loc).Equal(day) {
			continue
		}

		row.PDH = ptr(high)
		row.PDL = ptr(low)
	}

	return types.DailyExtremum{Date: day, High: high, Low: low}, nil
}

// StampFromLevels stamps the pdh and pdl columns on one row from its day's
// precomputed extremum, so stamping a whole file needs one aggregation pass
// plus one row pass. Reports whether the row was stamped; rows without a
// timestamp or whose day has no extremum keep nil columns.
func StampFromLevels(row *Row, levels map[time.Time]types.DailyExtremum, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}

	if row.Date.IsZero() {
		return false
	}

	entry, ok := levels[types.DayOf(row.Date.Normalize(loc), loc)]
	if !ok {
		return false
	}

	row.PDH = ptr(entry.High)
	row.PDL = ptr(entry.Low)

	return true
}

// UniqueDailyLevels collapses stamped rows into one record per calendar day.
// Rows lacking either level column are dropped; duplicates within a day are
// resolved by aggregation (max pdh, min pdl), never by picking the first row.
func UniqueDailyLevels(rows []*Row, loc *time.Location) (map[time.Time]types.DailyExtremum, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no rows supplied")
	}

	if loc == nil {
		loc = time.UTC
	}

	result := make(map[time.Time]types.DailyExtremum)

	for _, row := range rows {
		if row.Date.IsZero() || row.PDH == nil || row.PDL == nil {
			continue
		}

		day := types.DayOf(row.Date.Normalize(loc), loc)

		entry, ok := result[day]
		if !ok {
			result[day] = types.DailyExtremum{Date: day, High: *row.PDH, Low: *row.PDL}

			continue
		}

		entry.High = math.Max(entry.High, *row.PDH)
		entry.Low = math.Min(entry.Low, *row.PDL)
		result[day] = entry
	}

	if len(result) == 0 {
		return nil, errors.New(errors.ErrCodeMissingField, "pdh/pdl absent from every row")
	}

	return result, nil
}
