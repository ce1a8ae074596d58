package types

import "time"

// LevelLabel identifies the kind of daily reference level a point carries.
type LevelLabel string

const (
	LevelLabelPDH LevelLabel = "PDH"
	LevelLabelPDL LevelLabel = "PDL"
)

// LevelColor is an opaque display color carried through to the renderer.
type LevelColor string

const (
	LevelColorNeonGreen LevelColor = "#39FF14"
	LevelColorMagenta   LevelColor = "magenta"
	LevelColorCyan      LevelColor = "cyan"
	LevelColorGray      LevelColor = "gray"
)

// DefaultColor returns the conventional display color for a label.
func (l LevelLabel) DefaultColor() LevelColor {
	if l == LevelLabelPDL {
		return LevelColorMagenta
	}

	return LevelColorNeonGreen
}

// DailyExtremum holds the aggregated high and low over all valid bars of one
// calendar day. Date carries no time component (midnight in the extraction
// location).
type DailyExtremum struct {
	Date time.Time
	High float64
	Low  float64
}

// LevelPoint anchors one price level to a calendar day. Label and Color are
// opaque display strings; the annotation builder only carries them through.
type LevelPoint struct {
	Anchor time.Time
	Value  float64
	Label  LevelLabel
	Color  LevelColor
}

// RawLevelPoint is the externally supplied form of a level point, with the
// timestamp still a string. Parsed by annotate.ParsePoints.
type RawLevelPoint struct {
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	Value     float64 `json:"value" yaml:"value"`
}

// ReferenceSegment is a time-bounded horizontal price-level annotation.
// End is exclusive and always after Start.
type ReferenceSegment struct {
	Id    string
	Start time.Time
	End   time.Time
	Value float64
	Label LevelLabel
	Color LevelColor
}

// Duration returns the span of the segment on the time axis.
func (s ReferenceSegment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
