package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/atlas-quant/daylevels/internal/annotate"
	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/internal/version"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// LevelStyle carries the display strings attached to generated level points.
// Both are opaque to the pipeline and handed through to the renderer.
type LevelStyle struct {
	PDHColor string `json:"pdhColor" yaml:"pdh_color" jsonschema:"title=PDH Color,description=Display color for previous-day-high levels"`
	PDLColor string `json:"pdlColor" yaml:"pdl_color" jsonschema:"title=PDL Color,description=Display color for previous-day-low levels"`
}

// VisibleRange bounds the calendar window segments are generated for.
type VisibleRange struct {
	From string `json:"from" yaml:"from" jsonschema:"title=From,description=First visible date,format=date" validate:"required"`
	To   string `json:"to" yaml:"to" jsonschema:"title=To,description=Last visible date,format=date" validate:"required"`
}

// PipelineConfig is the YAML configuration for a level-feed run.
type PipelineConfig struct {
	Version string `json:"version" yaml:"version" jsonschema:"title=Version,description=Config schema version,required" validate:"required"`

	// Timezone names the location all timestamps are normalized into.
	// Required for inputs that mix offset-bearing and offset-less dates.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty" jsonschema:"title=Timezone,description=IANA timezone for day truncation (e.g. America/Bogota)"`

	Input  string `json:"input" yaml:"input" jsonschema:"title=Input,description=Path to the bar CSV or Parquet file,required" validate:"required"`
	Output string `json:"output,omitempty" yaml:"output,omitempty" jsonschema:"title=Output,description=Directory run artifacts are written into"`

	Range *VisibleRange `json:"range,omitempty" yaml:"range,omitempty" jsonschema:"title=Visible Range,description=Calendar window to keep level points in"`
	Style LevelStyle    `json:"style,omitempty" yaml:"style,omitempty" jsonschema:"title=Style,description=Display styling carried through to the renderer"`
}

// ParseConfig parses and validates a YAML pipeline config.
func ParseConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse YAML config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(data)
}

// Validate checks struct constraints, the version gate, the timezone name
// and the visible-range dates.
func (c *PipelineConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := version.CheckConfigCompatibility(version.Version, c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "config version not supported", err)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := c.VisibleRange(); err != nil {
		return err
	}

	return nil
}

// Location resolves the configured timezone. Returns nil for an empty
// timezone, meaning no normalization.
func (c *PipelineConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", c.Timezone)
	}

	return loc, nil
}

// VisibleRange resolves the configured window into builder form.
func (c *PipelineConfig) VisibleRange() (optional.Option[annotate.DateRange], error) {
	if c.Range == nil {
		return optional.None[annotate.DateRange](), nil
	}

	loc, err := c.Location()
	if err != nil {
		return optional.None[annotate.DateRange](), err
	}

	if loc == nil {
		loc = time.UTC
	}

	from, err := time.ParseInLocation("2006-01-02", c.Range.From, loc)
	if err != nil {
		return optional.None[annotate.DateRange](), errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid range.from %q", c.Range.From)
	}

	to, err := time.ParseInLocation("2006-01-02", c.Range.To, loc)
	if err != nil {
		return optional.None[annotate.DateRange](), errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid range.to %q", c.Range.To)
	}

	if to.Before(from) {
		return optional.None[annotate.DateRange](), errors.Newf(errors.ErrCodeInvalidRange, "range.to %s before range.from %s", c.Range.To, c.Range.From)
	}

	return optional.Some(annotate.DateRange{From: from, To: to}), nil
}

// PDHColor returns the configured PDH color, or the label default.
func (c *PipelineConfig) PDHColor() types.LevelColor {
	if c.Style.PDHColor != "" {
		return types.LevelColor(c.Style.PDHColor)
	}

	return types.LevelLabelPDH.DefaultColor()
}

// PDLColor returns the configured PDL color, or the label default.
func (c *PipelineConfig) PDLColor() types.LevelColor {
	if c.Style.PDLColor != "" {
		return types.LevelColor(c.Style.PDLColor)
	}

	return types.LevelLabelPDL.DefaultColor()
}
