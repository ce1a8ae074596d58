package types

import (
	"time"

	"github.com/atlas-quant/daylevels/pkg/errors"
)

// offsetLayouts and naiveLayouts are the accepted date column forms. The
// split matters: a file mixing both kinds is ambiguous unless the caller
// names a normalization timezone.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -0700",
}

var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CSVTime decodes a CSV date cell, remembering whether the source string
// carried an explicit UTC offset. Offset-less strings are parsed as UTC wall
// time; callers that configure a timezone reinterpret them afterward.
type CSVTime struct {
	time.Time
	withOffset bool
}

// HasOffset reports whether the decoded string carried an explicit offset.
func (t CSVTime) HasOffset() bool {
	return t.withOffset
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller. An empty cell decodes to
// the zero time.
func (t *CSVTime) UnmarshalCSV(s string) error {
	if s == "" {
		return nil
	}

	for _, layout := range offsetLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			t.withOffset = true

			return nil
		}
	}

	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			t.withOffset = false

			return nil
		}
	}

	return errors.Newf(errors.ErrCodeInvalidTimestamp, "cannot parse date %q", s)
}

// MarshalCSV implements gocsv.TypeMarshaller. The zero time marshals to an
// empty cell.
func (t CSVTime) MarshalCSV() (string, error) {
	if t.IsZero() {
		return "", nil
	}

	return t.Format("2006-01-02 15:04:05"), nil
}

// Normalize reinterprets the decoded time into loc: offset-bearing times are
// converted, offset-less ones keep their wall clock and attach loc. A nil
// location returns the time unchanged.
func (t CSVTime) Normalize(loc *time.Location) time.Time {
	if loc == nil || t.IsZero() {
		return t.Time
	}

	if t.withOffset {
		return t.In(loc)
	}

	y, m, d := t.Date()
	h, min, sec := t.Clock()

	return time.Date(y, m, d, h, min, sec, t.Nanosecond(), loc)
}
