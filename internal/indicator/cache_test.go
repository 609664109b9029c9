package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

type CacheTestSuite struct {
	suite.Suite
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (s *CacheTestSuite) TestGetOrComputeMemoizes() {
	cache := NewCache(0)
	calls := 0

	compute := func() (Output, error) {
		calls++

		return Output{DefaultField: []float64{1, 2, 3}}, nil
	}

	first, err := cache.GetOrCompute("rsi|period=14", compute)
	s.Require().NoError(err)

	second, err := cache.GetOrCompute("rsi|period=14", compute)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(1, calls)
	s.Equal(1, cache.Len())
}

func (s *CacheTestSuite) TestExpiry() {
	cache := NewCache(time.Minute)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	calls := 0
	compute := func() (Output, error) {
		calls++

		return Output{DefaultField: []float64{1}}, nil
	}

	_, err := cache.GetOrCompute("sma", compute)
	s.Require().NoError(err)

	now = now.Add(30 * time.Second)
	_, err = cache.GetOrCompute("sma", compute)
	s.Require().NoError(err)
	s.Equal(1, calls)

	now = now.Add(2 * time.Minute)
	_, err = cache.GetOrCompute("sma", compute)
	s.Require().NoError(err)
	s.Equal(2, calls)
}

func (s *CacheTestSuite) TestReset() {
	cache := NewCache(0)

	_, err := cache.GetOrCompute("x", func() (Output, error) {
		return Output{}, nil
	})
	s.Require().NoError(err)

	cache.Reset()
	s.Equal(0, cache.Len())
}

func (s *CacheTestSuite) TestCacheKeyStableAcrossParamOrder() {
	candles := []types.Candle{
		{Time: time.Unix(1000, 0), Symbol: "BTCUSDT", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}

	a := CacheKey("macd", map[string]float64{"fast_period": 12, "slow_period": 26}, candles)
	b := CacheKey("macd", map[string]float64{"slow_period": 26, "fast_period": 12}, candles)
	s.Equal(a, b)

	c := CacheKey("macd", map[string]float64{"fast_period": 10, "slow_period": 26}, candles)
	s.NotEqual(a, c)
}
