package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// ResultWriter defines the interface for writing level-feed run artifacts.
type ResultWriter interface {
	// WriteLevels writes the per-day extrema table.
	WriteLevels(levels []types.DailyExtremum) error

	// WriteSegments writes the reference segments handed to the renderer.
	WriteSegments(segments []types.ReferenceSegment) error

	// WriteSummary writes the run summary.
	WriteSummary(summary RunSummary) error

	// Close finalizes the writing process.
	Close() error
}

// RunSummary describes one pipeline run, persisted as YAML next to the
// generated tables.
type RunSummary struct {
	RunId       string    `yaml:"run_id"`
	Input       string    `yaml:"input"`
	Timezone    string    `yaml:"timezone,omitempty"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Days        int       `yaml:"days"`
	Segments    int       `yaml:"segments"`
}

// CSVWriter implements ResultWriter by writing into a per-run directory.
type CSVWriter struct {
	baseDir string
	runId   string
	runDir  string

	levelsFile   *os.File
	segmentsFile *os.File

	levelsCsv   *csv.Writer
	segmentsCsv *csv.Writer
}

// NewCSVWriter creates a CSVWriter writing into a fresh run directory under
// baseDir, named by timestamp plus run id so concurrent runs cannot collide.
func NewCSVWriter(baseDir string) (*CSVWriter, error) {
	runId := uuid.New().String()
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	runDir := filepath.Join(baseDir, fmt.Sprintf("%s_%s", timestamp, runId[:8]))

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create run directory %s", runDir)
	}

	w := &CSVWriter{
		baseDir: baseDir,
		runId:   runId,
		runDir:  runDir,
	}

	if err := w.initFiles(); err != nil {
		return nil, err
	}

	return w, nil
}

// RunId returns the id assigned to this run.
func (w *CSVWriter) RunId() string {
	return w.runId
}

// RunDir returns the directory artifacts are written into.
func (w *CSVWriter) RunDir() string {
	return w.runDir
}

func (w *CSVWriter) initFiles() error {
	levelsFile, err := os.Create(filepath.Join(w.runDir, "levels.csv"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create levels file", err)
	}

	w.levelsFile = levelsFile
	w.levelsCsv = csv.NewWriter(levelsFile)

	if err := w.levelsCsv.Write([]string{"date", "pdh", "pdl"}); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write levels header", err)
	}

	segmentsFile, err := os.Create(filepath.Join(w.runDir, "segments.csv"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create segments file", err)
	}

	w.segmentsFile = segmentsFile
	w.segmentsCsv = csv.NewWriter(segmentsFile)

	if err := w.segmentsCsv.Write([]string{"id", "start", "end", "value", "label", "color"}); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write segments header", err)
	}

	return nil
}

// WriteLevels implements ResultWriter. Rows are emitted sorted by date.
func (w *CSVWriter) WriteLevels(levels []types.DailyExtremum) error {
	sorted := make([]types.DailyExtremum, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for _, level := range sorted {
		record := []string{
			level.Date.Format("2006-01-02"),
			strconv.FormatFloat(level.High, 'f', -1, 64),
			strconv.FormatFloat(level.Low, 'f', -1, 64),
		}

		if err := w.levelsCsv.Write(record); err != nil {
			return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write level row", err)
		}
	}

	w.levelsCsv.Flush()

	if err := w.levelsCsv.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to flush levels", err)
	}

	return nil
}

// WriteSegments implements ResultWriter, preserving input order.
func (w *CSVWriter) WriteSegments(segments []types.ReferenceSegment) error {
	for _, seg := range segments {
		record := []string{
			seg.Id,
			seg.Start.Format(time.RFC3339),
			seg.End.Format(time.RFC3339),
			strconv.FormatFloat(seg.Value, 'f', -1, 64),
			string(seg.Label),
			string(seg.Color),
		}

		if err := w.segmentsCsv.Write(record); err != nil {
			return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write segment row", err)
		}
	}

	w.segmentsCsv.Flush()

	if err := w.segmentsCsv.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to flush segments", err)
	}

	return nil
}

// WriteSummary implements ResultWriter.
func (w *CSVWriter) WriteSummary(summary RunSummary) error {
	if summary.RunId == "" {
		summary.RunId = w.runId
	}

	data, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to marshal summary", err)
	}

	path := filepath.Join(w.runDir, "summary.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

// Close implements ResultWriter.
func (w *CSVWriter) Close() error {
	w.levelsCsv.Flush()
	w.segmentsCsv.Flush()

	if err := w.levelsFile.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to close levels file", err)
	}

	if err := w.segmentsFile.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to close segments file", err)
	}

	return nil
}
