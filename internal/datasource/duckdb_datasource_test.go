package datasource

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/atlas-quant/daylevels/pkg/errors"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	tempDir string
	ds      *DuckDBDataSource
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()

	ds, err := NewDuckDBDataSource("", nil, nil)
	suite.Require().NoError(err)
	suite.ds = ds
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	if suite.ds != nil {
		suite.NoError(suite.ds.Close())
	}
}

func (suite *DuckDBDataSourceTestSuite) writeCSV(name, content string) string {
	path := filepath.Join(suite.tempDir, name)
	err := os.WriteFile(path, []byte(content), 0644)
	suite.Require().NoError(err)

	return path
}

const duckCSV = `date,open,high,low,close,volume
2024-01-05 09:00:00,1.00,10,5,1.05,120
2024-01-05 10:00:00,1.10,12,4,1.15,100
2024-01-08 09:00:00,1.15,13,6,1.25,90
`

func (suite *DuckDBDataSourceTestSuite) TestInitializeRejectsUnknownExtension() {
	err := suite.ds.Initialize(filepath.Join(suite.tempDir, "bars.json"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *DuckDBDataSourceTestSuite) TestCountAndGetRange() {
	path := suite.writeCSV("bars.csv", duckCSV)
	suite.Require().NoError(suite.ds.Initialize(path))

	count, err := suite.ds.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(3, count)

	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC)

	bars, err := suite.ds.GetRange(start, end)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)
	suite.Equal(10.0, bars[0].High)
	suite.Equal(12.0, bars[1].High)
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllChronological() {
	path := suite.writeCSV("bars.csv", duckCSV)
	suite.Require().NoError(suite.ds.Initialize(path))

	var previous time.Time

	read := 0
	for bar, err := range suite.ds.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		suite.True(bar.Time.After(previous))
		previous = bar.Time
		read++
	}

	suite.Equal(3, read)
}

func (suite *DuckDBDataSourceTestSuite) TestNullCellsBecomeNaN() {
	path := suite.writeCSV("sparse.csv", `date,open,high,low,close,volume
2024-01-05 09:00:00,1.00,,5,1.05,
2024-01-05 10:00:00,1.10,12,4,1.15,100
`)
	suite.Require().NoError(suite.ds.Initialize(path))

	bars, err := suite.ds.GetRange(
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
	)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)
	suite.True(math.IsNaN(bars[0].High))
	suite.True(math.IsNaN(bars[0].Volume))
}

func (suite *DuckDBDataSourceTestSuite) TestDailyExtremaAggregatesSQLSide() {
	path := suite.writeCSV("bars.csv", duckCSV)
	suite.Require().NoError(suite.ds.Initialize(path))

	extrema, err := suite.ds.DailyExtrema(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(extrema, 2)

	suite.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), extrema[0].Date)
	suite.Equal(12.0, extrema[0].High)
	suite.Equal(4.0, extrema[0].Low)
	suite.Equal(13.0, extrema[1].High)
}

func (suite *DuckDBDataSourceTestSuite) TestDailyExtremaSkipsNullRows() {
	path := suite.writeCSV("sparse.csv", `date,open,high,low,close,volume
2024-01-04 09:00:00,1.00,,5,1.05,100
2024-01-05 09:00:00,1.00,10,5,1.05,100
`)
	suite.Require().NoError(suite.ds.Initialize(path))

	extrema, err := suite.ds.DailyExtrema(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)

	// The 4th has no usable rows, so only the 5th appears.
	suite.Require().Len(extrema, 1)
	suite.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), extrema[0].Date)
}

func (suite *DuckDBDataSourceTestSuite) TestDailyExtremaTruncatesOffsetTimestampsInLocation() {
	bogota, err := time.LoadLocation("America/Bogota")
	suite.Require().NoError(err)

	ds, err := NewDuckDBDataSource("", bogota, nil)
	suite.Require().NoError(err)

	defer ds.Close()

	// 02:00 UTC on the 6th is 21:00 on the 5th in Bogota, so both rows
	// belong to the 5th there.
	path := suite.writeCSV("offset.csv", `date,open,high,low,close,volume
2024-01-05T14:00:00+00:00,1.00,10,5,1.05,120
2024-01-06T02:00:00+00:00,1.10,12,4,1.15,100
`)
	suite.Require().NoError(ds.Initialize(path))

	extrema, err := ds.DailyExtrema(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(extrema, 1)
	suite.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, bogota), extrema[0].Date)
	suite.Equal(12.0, extrema[0].High)
	suite.Equal(4.0, extrema[0].Low)
}

func (suite *DuckDBDataSourceTestSuite) TestDailyExtremaKeepsNaiveWallClockDay() {
	bogota, err := time.LoadLocation("America/Bogota")
	suite.Require().NoError(err)

	ds, err := NewDuckDBDataSource("", bogota, nil)
	suite.Require().NoError(err)

	defer ds.Close()

	// Offset-less timestamps are already local wall time; configuring a
	// timezone must not move them to another day.
	path := suite.writeCSV("naive.csv", duckCSV)
	suite.Require().NoError(ds.Initialize(path))

	extrema, err := ds.DailyExtrema(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(extrema, 2)
	suite.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, bogota), extrema[0].Date)
	suite.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, bogota), extrema[1].Date)
}

func (suite *DuckDBDataSourceTestSuite) TestImplementsDataSource() {
	var _ DataSource = suite.ds
}
