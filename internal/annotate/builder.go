// Package annotate turns daily level points into time-bounded reference
// segments for a rendering collaborator to draw.
package annotate

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// DateRange is an inclusive visible window on the calendar axis. Bounds are
// compared at day granularity and must carry the same location as the point
// anchors they filter; mixing locations shifts the effective window by up to
// a day at each end.
type DateRange struct {
	From time.Time
	To   time.Time
}

// timestampLayouts are the accepted forms for externally supplied point
// timestamps, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePoints converts externally supplied (timestamp, value) pairs into
// labeled level points. The label's default color is attached so the result
// is ready for Build. Returns ErrCodeInvalidTimestamp when a timestamp fits
// none of the accepted layouts; offset-less timestamps are interpreted in
// loc (UTC when nil).
func ParsePoints(raw []types.RawLevelPoint, label types.LevelLabel, loc *time.Location) ([]types.LevelPoint, error) {
	if loc == nil {
		loc = time.UTC
	}

	points := make([]types.LevelPoint, 0, len(raw))

	for _, r := range raw {
		anchor, err := parseTimestamp(r.Timestamp, loc)
		if err != nil {
			return nil, err
		}

		points = append(points, types.LevelPoint{
			Anchor: anchor,
			Value:  r.Value,
			Label:  label,
			Color:  label.DefaultColor(),
		})
	}

	return points, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Newf(errors.ErrCodeInvalidTimestamp, "cannot parse point timestamp %q", s)
}

// PointsFromExtrema expands per-day extrema into PDH and PDL point lists,
// each sorted ascending by date with the label's default color attached.
func PointsFromExtrema(extrema map[time.Time]types.DailyExtremum) (pdh, pdl []types.LevelPoint) {
	days := make([]time.Time, 0, len(extrema))
	for day := range extrema {
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})

	for _, day := range days {
		entry := extrema[day]

		pdh = append(pdh, types.LevelPoint{
			Anchor: entry.Date,
			Value:  entry.High,
			Label:  types.LevelLabelPDH,
			Color:  types.LevelLabelPDH.DefaultColor(),
		})
		pdl = append(pdl, types.LevelPoint{
			Anchor: entry.Date,
			Value:  entry.Low,
			Label:  types.LevelLabelPDL,
			Color:  types.LevelLabelPDL.DefaultColor(),
		})
	}

	return pdh, pdl
}

// Build derives one reference segment per surviving point.
//
// The segment starts at the anchor's start of day. A Friday anchor spans
// three days so the level stays visible across the weekend until Monday's
// first bar; every other weekday spans one day. The next trading day, not
// the next calendar day, is when a daily level rolls over, and Friday is the
// only weekday where the two differ (no holiday calendar is consulted).
//
// When a visible range is supplied, a point anchored strictly before From or
// strictly after To is dropped whole; segments are never clipped. Output
// preserves the input order of surviving points.
//
// Returns ErrCodeInvalidTimestamp when a point carries a zero anchor.
func Build(points []types.LevelPoint, visible optional.Option[DateRange]) ([]types.ReferenceSegment, error) {
	// The window truncates once, in its own location, so every point is
	// filtered against the same pair of midnight instants.
	var from, to time.Time

	if visible.IsSome() {
		window := visible.Unwrap()
		from = types.DayOf(window.From, window.From.Location())
		to = types.DayOf(window.To, window.To.Location())
	}

	segments := make([]types.ReferenceSegment, 0, len(points))

	for _, p := range points {
		if p.Anchor.IsZero() {
			return nil, errors.Newf(errors.ErrCodeInvalidTimestamp, "point with label %s has no timestamp", p.Label)
		}

		start := types.DayOf(p.Anchor, p.Anchor.Location())

		if visible.IsSome() && (start.Before(from) || start.After(to)) {
			continue
		}

		days := 1
		if start.Weekday() == time.Friday {
			days = 3
		}

		color := p.Color
		if color == "" {
			color = p.Label.DefaultColor()
		}

		segments = append(segments, types.ReferenceSegment{
			Id:    uuid.New().String(),
			Start: start,
			End:   start.AddDate(0, 0, days),
			Value: p.Value,
			Label: p.Label,
			Color: color,
		})
	}

	return segments, nil
}
