package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// InMemoryDataSource serves bar queries from a preloaded slice. It either
// wraps another DataSource, caching everything it yields, or is built
// directly from bars for tests and pipeline composition.
type InMemoryDataSource struct {
	underlying DataSource

	bars      []types.MarketData
	preloaded bool

	mu sync.RWMutex
}

// NewInMemoryDataSource creates an InMemoryDataSource wrapping the given
// DataSource. Initialize attaches the underlying source and preloads it.
func NewInMemoryDataSource(underlying DataSource) *InMemoryDataSource {
	return &InMemoryDataSource{
		underlying: underlying,
		bars:       nil,
		preloaded:  false,
	}
}

// NewInMemoryDataSourceFromBars creates a preloaded InMemoryDataSource
// holding a sorted copy of bars, with no underlying source.
func NewInMemoryDataSourceFromBars(bars []types.MarketData) *InMemoryDataSource {
	sorted := make([]types.MarketData, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return &InMemoryDataSource{
		underlying: nil,
		bars:       sorted,
		preloaded:  true,
	}
}

// Initialize implements DataSource. It initializes the underlying source and
// preloads its full series.
func (d *InMemoryDataSource) Initialize(path string) error {
	if d.underlying == nil {
		return errors.New(errors.ErrCodeDataSourceUnavailable, "no underlying data source to initialize")
	}

	if err := d.underlying.Initialize(path); err != nil {
		return err
	}

	return d.Preload(optional.None[time.Time](), optional.None[time.Time]())
}

// Preload reads the requested range from the underlying source into memory,
// replacing any previously loaded bars.
func (d *InMemoryDataSource) Preload(start optional.Option[time.Time], end optional.Option[time.Time]) error {
	if d.underlying == nil {
		return errors.New(errors.ErrCodeDataSourceUnavailable, "no underlying data source to preload from")
	}

	var bars []types.MarketData

	for bar, err := range d.underlying.ReadAll(start, end) {
		if err != nil {
			return errors.Wrap(errors.ErrCodeReadFailed, "failed to preload bars", err)
		}

		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	d.mu.Lock()
	defer d.mu.Unlock()

	d.bars = bars
	d.preloaded = true

	return nil
}

// IsPreloaded reports whether the source holds a loaded series.
func (d *InMemoryDataSource) IsPreloaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.preloaded
}

// ReadAll implements DataSource.
func (d *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		d.mu.RLock()
		bars := d.bars
		d.mu.RUnlock()

		for _, bar := range bars {
			if start.IsSome() && bar.Time.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && bar.Time.After(end.Unwrap()) {
				break
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// GetRange implements DataSource. Bounds are inclusive.
func (d *InMemoryDataSource) GetRange(start time.Time, end time.Time) ([]types.MarketData, error) {
	if end.Before(start) {
		return nil, errors.Newf(errors.ErrCodeInvalidRange, "range end %s before start %s", end, start)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	// The series is sorted, so binary-search the first bar in range.
	first := sort.Search(len(d.bars), func(i int) bool {
		return !d.bars[i].Time.Before(start)
	})

	var result []types.MarketData

	for _, bar := range d.bars[first:] {
		if bar.Time.After(end) {
			break
		}

		result = append(result, bar)
	}

	return result, nil
}

// Count implements DataSource.
func (d *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, err := range d.ReadAll(start, end) {
		if err != nil {
			return 0, err
		}

		count++
	}

	return count, nil
}

// Close implements DataSource. The underlying source, when present, is
// closed too.
func (d *InMemoryDataSource) Close() error {
	d.mu.Lock()
	d.bars = nil
	d.preloaded = false
	d.mu.Unlock()

	if d.underlying != nil {
		return d.underlying.Close()
	}

	return nil
}
