package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// candlesFromCloses builds a flat candle series where open, high, low and
// close all equal the given close values.
func candlesFromCloses(values []float64) []types.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(values))

	for i, v := range values {
		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   v,
			High:   v,
			Low:    v,
			Close:  v,
			Volume: 100,
		}
	}

	return candles
}

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (s *IndicatorTestSuite) TestSMAValues() {
	candles := candlesFromCloses([]float64{1, 2, 3, 4, 5, 6})
	out, err := NewSMA().Compute(candles, map[string]float64{"period": 3})
	s.Require().NoError(err)

	series := out[DefaultField]
	s.True(math.IsNaN(series[0]))
	s.True(math.IsNaN(series[1]))
	s.InDelta(2.0, series[2], 1e-9)
	s.InDelta(3.0, series[3], 1e-9)
	s.InDelta(5.0, series[5], 1e-9)
}

func (s *IndicatorTestSuite) TestSMALookbackMatchesFirstValid() {
	provider := NewSMA()
	params := map[string]float64{"period": 5}
	candles := candlesFromCloses([]float64{1, 2, 3, 4, 5, 6, 7})

	out, err := provider.Compute(candles, params)
	s.Require().NoError(err)

	lookback := provider.Lookback(params)
	_, ok := At(out, "", lookback-1)
	s.False(ok)

	_, ok = At(out, "", lookback)
	s.True(ok)
}

func (s *IndicatorTestSuite) TestEMASeedAndSmoothing() {
	candles := candlesFromCloses([]float64{2, 4, 6, 8, 12})
	out, err := NewEMA().Compute(candles, map[string]float64{"period": 4})
	s.Require().NoError(err)

	series := out[DefaultField]
	s.True(math.IsNaN(series[2]))
	// Seed is the SMA of the first four values.
	s.InDelta(5.0, series[3], 1e-9)
	// k = 2/5, next = 12*0.4 + 5*0.6.
	s.InDelta(7.8, series[4], 1e-9)
}

func (s *IndicatorTestSuite) TestRSIAllGains() {
	candles := candlesFromCloses([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	out, err := NewRSI().Compute(candles, map[string]float64{"period": 14})
	s.Require().NoError(err)

	series := out[DefaultField]
	s.True(math.IsNaN(series[13]))
	s.InDelta(100.0, series[14], 1e-9)
	s.InDelta(100.0, series[15], 1e-9)
}

func (s *IndicatorTestSuite) TestRSIAllLossesIsZero() {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}

	out, err := NewRSI().Compute(candlesFromCloses(closes), map[string]float64{"period": 14})
	s.Require().NoError(err)

	v, ok := At(out, "", 19)
	s.True(ok)
	s.InDelta(0.0, v, 1e-9)
}

func (s *IndicatorTestSuite) TestMACDFields() {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}

	provider := NewMACD()
	params := map[string]float64{"fast_period": 12, "slow_period": 26, "signal_period": 9}
	out, err := provider.Compute(candlesFromCloses(closes), params)
	s.Require().NoError(err)

	lookback := provider.Lookback(params)

	for _, field := range []string{"macd", "signal", "histogram"} {
		_, ok := At(out, field, lookback)
		s.True(ok, field)
	}

	// In a steady uptrend the fast EMA sits above the slow EMA.
	macd, _ := At(out, "macd", 59)
	s.Positive(macd)

	macdValue, _ := At(out, "macd", 59)
	defaultValue, _ := At(out, "", 59)
	s.Equal(macdValue, defaultValue)
}

func (s *IndicatorTestSuite) TestBollingerBands() {
	candles := candlesFromCloses([]float64{10, 10, 10, 10, 10})
	out, err := NewBollingerBands().Compute(candles, map[string]float64{"period": 5, "std_dev": 2})
	s.Require().NoError(err)

	// Zero variance collapses all bands onto the mean.
	upper, _ := At(out, "upper", 4)
	middle, _ := At(out, "middle", 4)
	lower, _ := At(out, "lower", 4)
	s.InDelta(10.0, upper, 1e-9)
	s.InDelta(10.0, middle, 1e-9)
	s.InDelta(10.0, lower, 1e-9)
}

func (s *IndicatorTestSuite) TestBollingerBandWidth() {
	candles := candlesFromCloses([]float64{8, 12, 8, 12, 8})
	out, err := NewBollingerBands().Compute(candles, map[string]float64{"period": 5, "std_dev": 2})
	s.Require().NoError(err)

	upper, _ := At(out, "upper", 4)
	middle, _ := At(out, "middle", 4)
	lower, _ := At(out, "lower", 4)

	s.InDelta(9.6, middle, 1e-9)
	s.InDelta(upper-middle, middle-lower, 1e-9)
	s.Greater(upper, middle)
}

func (s *IndicatorTestSuite) TestATRConstantRange() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, 20)

	for i := range candles {
		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   100,
			High:   102,
			Low:    98,
			Close:  100,
			Volume: 100,
		}
	}

	out, err := NewATR().Compute(candles, map[string]float64{"period": 14})
	s.Require().NoError(err)

	s.True(math.IsNaN(out[DefaultField][13]))

	v, ok := At(out, "", 14)
	s.True(ok)
	s.InDelta(4.0, v, 1e-9)
}

func (s *IndicatorTestSuite) TestStochasticAtExtremes() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, 10)

	for i := range candles {
		price := 100 + float64(i)
		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 1,
			Volume: 100,
		}
	}

	out, err := NewStochastic().Compute(candles, map[string]float64{"period": 5, "d_period": 3})
	s.Require().NoError(err)

	// Closing on the window high pins %K at 100.
	k, ok := At(out, "k", 9)
	s.True(ok)
	s.InDelta(100.0, k, 1e-9)

	d, ok := At(out, "d", 9)
	s.True(ok)
	s.InDelta(100.0, d, 1e-9)
}

func (s *IndicatorTestSuite) TestPriceSources() {
	candles := []types.Candle{
		{Time: time.Unix(0, 0), Symbol: "BTCUSDT", Open: 1, High: 4, Low: 0.5, Close: 3, Volume: 250},
	}

	cases := map[string]float64{
		"open":   1,
		"high":   4,
		"low":    0.5,
		"close":  3,
		"volume": 250,
	}

	for field, want := range cases {
		out, err := NewPriceSource(field).Compute(candles, nil)
		s.Require().NoError(err)

		v, ok := At(out, "", 0)
		s.True(ok, field)
		s.InDelta(want, v, 1e-9, field)
	}
}

func (s *IndicatorTestSuite) TestAtMissingFieldAndRange() {
	out := Output{DefaultField: []float64{math.NaN(), 1.5}}

	_, ok := At(out, "upper", 1)
	s.False(ok)

	_, ok = At(out, "", 0)
	s.False(ok)

	_, ok = At(out, "", 5)
	s.False(ok)

	v, ok := At(out, "", 1)
	s.True(ok)
	s.InDelta(1.5, v, 1e-9)
}
