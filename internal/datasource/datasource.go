package datasource

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/atlas-quant/daylevels/internal/types"
)

// DataSource supplies decoded bar series to the extraction pipeline.
type DataSource interface {
	// Initialize loads or attaches the data behind the given path.
	Initialize(path string) error
	// ReadAll reads all the data from the data source in chronological order
	// and yields it to the caller.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// GetRange reads all bars with start <= time <= end.
	GetRange(start time.Time, end time.Time) ([]types.MarketData, error)
	// Count returns the number of bars in the data source.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources.
	Close() error
}
