package prep

import "math"

// AddWickColumns stamps upper_wick, lower_wick and total_wick on every row
// that carries a full OHLC set:
//
//	upper_wick = high - max(open, close)
//	lower_wick = min(open, close) - low
//	total_wick = upper_wick + lower_wick
//
// Rows missing any OHLC value keep nil wick columns. Returns the number of
// rows stamped.
func AddWickColumns(rows []*Row) int {
	stamped := 0

	for _, row := range rows {
		if row.Open == nil || row.High == nil || row.Low == nil || row.Close == nil {
			continue
		}

		upper := *row.High - math.Max(*row.Open, *row.Close)
		lower := math.Min(*row.Open, *row.Close) - *row.Low

		row.UpperWick = ptr(upper)
		row.LowerWick = ptr(lower)
		row.TotalWick = ptr(upper + lower)
		stamped++
	}

	return stamped
}
