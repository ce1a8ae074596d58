package extrema

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

type ExtractorTestSuite struct {
	suite.Suite
}

func TestExtractorSuite(t *testing.T) {
	suite.Run(t, new(ExtractorTestSuite))
}

func bar(ts string, high, low float64) types.MarketData {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}

	return types.MarketData{
		Time:  t,
		Open:  (high + low) / 2,
		High:  high,
		Low:   low,
		Close: (high + low) / 2,
	}
}

func (suite *ExtractorTestSuite) TestAggregatesAcrossBarsOfOneDay() {
	// Friday 2024-01-05: the extremum must be the max/min over all bars of
	// the day, not the first row's values.
	bars := []types.MarketData{
		bar("2024-01-05 09:00", 10, 5),
		bar("2024-01-05 10:00", 12, 4),
	}

	result, err := Extract(bars, nil)
	suite.Require().NoError(err)
	suite.Len(result, 1)

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	suite.Equal(types.DailyExtremum{Date: day, High: 12, Low: 4}, result[day])
}

func (suite *ExtractorTestSuite) TestOneEntryPerDistinctDay() {
	bars := []types.MarketData{
		bar("2024-01-03 09:00", 10, 9),
		bar("2024-01-03 12:00", 11, 8),
		bar("2024-01-04 09:00", 20, 19),
		bar("2024-01-05 09:00", 30, 29),
	}

	result, err := Extract(bars, nil)
	suite.Require().NoError(err)
	suite.Len(result, 3)

	day3 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	suite.Equal(11.0, result[day3].High)
	suite.Equal(8.0, result[day3].Low)
}

func (suite *ExtractorTestSuite) TestOrderIndependence() {
	bars := []types.MarketData{
		bar("2024-01-03 09:00", 10, 9),
		bar("2024-01-03 12:00", 11, 8),
		bar("2024-01-04 09:00", 20, 19),
		bar("2024-01-05 09:00", 30, 29),
		bar("2024-01-05 15:00", 28, 25),
	}

	expected, err := Extract(bars, nil)
	suite.Require().NoError(err)

	shuffled := make([]types.MarketData, len(bars))
	copy(shuffled, bars)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		result, err := Extract(shuffled, nil)
		suite.Require().NoError(err)
		suite.Equal(expected, result)
	}
}

func (suite *ExtractorTestSuite) TestIdempotence() {
	bars := []types.MarketData{
		bar("2024-01-03 09:00", 10, 9),
		bar("2024-01-04 09:00", 20, 19),
	}

	first, err := Extract(bars, nil)
	suite.Require().NoError(err)

	second, err := Extract(bars, nil)
	suite.Require().NoError(err)
	suite.Equal(first, second)
}

func (suite *ExtractorTestSuite) TestExcludesNaNBarsButKeepsDay() {
	sparse := bar("2024-01-03 09:00", 0, 0)
	sparse.High = math.NaN()
	sparse.Low = math.NaN()

	bars := []types.MarketData{
		sparse,
		bar("2024-01-03 12:00", 11, 8),
	}

	result, err := Extract(bars, nil)
	suite.Require().NoError(err)

	day := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	suite.Equal(11.0, result[day].High)
	suite.Equal(8.0, result[day].Low)
}

func (suite *ExtractorTestSuite) TestDayWithOnlyExcludedBarsIsOmitted() {
	sparse := bar("2024-01-03 09:00", 0, 0)
	sparse.High = math.NaN()

	bars := []types.MarketData{
		sparse,
		bar("2024-01-04 09:00", 20, 19),
	}

	result, err := Extract(bars, nil)
	suite.Require().NoError(err)
	suite.Len(result, 1)

	_, ok := result[time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)]
	suite.False(ok)
}

func (suite *ExtractorTestSuite) TestEmptyInput() {
	_, err := Extract(nil, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyInput))

	_, err = DistinctDates([]types.MarketData{}, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyInput))
}

func (suite *ExtractorTestSuite) TestMissingFieldEverywhere() {
	b1 := bar("2024-01-03 09:00", 0, 5)
	b1.High = math.NaN()
	b2 := bar("2024-01-04 09:00", 0, 6)
	b2.High = math.NaN()

	_, err := Extract([]types.MarketData{b1, b2}, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingField))
	suite.Contains(err.Error(), "high")

	noTime := []types.MarketData{
		{High: 10, Low: 5, Open: 7, Close: 8},
		{High: 11, Low: 6, Open: 7, Close: 8},
	}

	_, err = Extract(noTime, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingField))
	suite.Contains(err.Error(), "timestamp")
}

func (suite *ExtractorTestSuite) TestTimezoneTruncation() {
	bogota, err := time.LoadLocation("America/Bogota")
	suite.Require().NoError(err)

	// 02:00 UTC on the 5th is 21:00 on the 4th in Bogota.
	bars := []types.MarketData{
		bar("2024-01-05 02:00", 10, 5),
		bar("2024-01-05 12:00", 12, 4),
	}

	result, err := Extract(bars, bogota)
	suite.Require().NoError(err)
	suite.Len(result, 2)

	day4 := time.Date(2024, 1, 4, 0, 0, 0, 0, bogota)
	day5 := time.Date(2024, 1, 5, 0, 0, 0, 0, bogota)
	suite.Equal(10.0, result[day4].High)
	suite.Equal(12.0, result[day5].High)
}

func (suite *ExtractorTestSuite) TestDistinctDatesSortedUnique() {
	bars := []types.MarketData{
		bar("2024-01-05 09:00", 30, 29),
		bar("2024-01-03 09:00", 10, 9),
		bar("2024-01-05 15:00", 28, 25),
		bar("2024-01-04 09:00", 20, 19),
	}

	dates, err := DistinctDates(bars, nil)
	suite.Require().NoError(err)
	suite.Equal([]time.Time{
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}, dates)
}

func (suite *ExtractorTestSuite) TestDistinctDatesIncludesSparseDays() {
	sparse := bar("2024-01-03 09:00", 0, 0)
	sparse.High = math.NaN()
	sparse.Low = math.NaN()

	bars := []types.MarketData{
		sparse,
		bar("2024-01-04 09:00", 20, 19),
	}

	dates, err := DistinctDates(bars, nil)
	suite.Require().NoError(err)
	suite.Len(dates, 2)
}
