package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CandleTestSuite struct {
	suite.Suite
}

func TestCandleSuite(t *testing.T) {
	suite.Run(t, new(CandleTestSuite))
}

func (suite *CandleTestSuite) TestValidCandle() {
	candle := Candle{
		Time:   time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
		Symbol: "BTCUSDT",
		Open:   100,
		High:   105,
		Low:    99,
		Close:  103,
		Volume: 1250,
	}

	suite.True(candle.IsValid())
}

func (suite *CandleTestSuite) TestHighBelowLow() {
	candle := Candle{
		Symbol: "BTCUSDT",
		Open:   100,
		High:   98,
		Low:    99,
		Close:  98.5,
		Volume: 10,
	}

	suite.False(candle.IsValid())
}

func (suite *CandleTestSuite) TestNonPositivePrices() {
	candle := Candle{
		Symbol: "BTCUSDT",
		Open:   0,
		High:   1,
		Low:    0.5,
		Close:  0.7,
		Volume: 10,
	}
	suite.False(candle.IsValid())

	candle.Open = 1
	candle.Close = -0.7
	suite.False(candle.IsValid())
}

func (suite *CandleTestSuite) TestNegativeVolume() {
	candle := Candle{
		Symbol: "BTCUSDT",
		Open:   100,
		High:   101,
		Low:    99,
		Close:  100,
		Volume: -1,
	}

	suite.False(candle.IsValid())
}

func (suite *CandleTestSuite) TestTimeframeMinutes() {
	suite.Equal(1, Timeframe1m.Minutes())
	suite.Equal(60, Timeframe1h.Minutes())
	suite.Equal(1440, Timeframe1d.Minutes())
	suite.Equal(0, Timeframe("3w").Minutes())
}
