package indicator

import (
	"math"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// ATR is the average true range with Wilder's smoothing.
type ATR struct{}

// NewATR creates a new ATR provider.
func NewATR() Provider {
	return &ATR{}
}

// Type implements Provider.
func (a *ATR) Type() string {
	return "atr"
}

// Lookback implements Provider.
func (a *ATR) Lookback(params map[string]float64) int {
	return intParam(params, "period", 14)
}

// Compute implements Provider.
func (a *ATR) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	period := intParam(params, "period", 14)
	values := nanSeries(len(candles))

	if len(candles) < period+1 {
		return Output{DefaultField: values}, nil
	}

	trueRange := make([]float64, len(candles))
	trueRange[0] = candles[0].High - candles[0].Low

	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRange[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange[i]
	}

	values[period] = sum / float64(period)

	for i := period + 1; i < len(candles); i++ {
		values[i] = (values[i-1]*float64(period-1) + trueRange[i]) / float64(period)
	}

	return Output{DefaultField: values}, nil
}
