package indicator

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// EMA is the exponential moving average of closes, seeded with an SMA.
type EMA struct{}

// NewEMA creates a new EMA provider.
func NewEMA() Provider {
	return &EMA{}
}

// Type implements Provider.
func (e *EMA) Type() string {
	return "ema"
}

// Lookback implements Provider.
func (e *EMA) Lookback(params map[string]float64) int {
	return intParam(params, "period", 20) - 1
}

// Compute implements Provider.
func (e *EMA) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	period := intParam(params, "period", 20)
	values := emaSeries(closes(candles), period)

	return Output{DefaultField: values}, nil
}

// emaSeries computes an EMA over an arbitrary source series. The first valid
// value is the SMA of the first period values after any leading NaN warm-up.
func emaSeries(source []float64, period int) []float64 {
	values := nanSeries(len(source))

	firstValid := 0
	for firstValid < len(source) && isNaN(source[firstValid]) {
		firstValid++
	}

	if len(source)-firstValid < period {
		return values
	}

	seed := 0.0
	for i := firstValid; i < firstValid+period; i++ {
		seed += source[i]
	}

	seedIndex := firstValid + period - 1
	values[seedIndex] = seed / float64(period)

	k := 2.0 / float64(period+1)
	for i := seedIndex + 1; i < len(source); i++ {
		values[i] = source[i]*k + values[i-1]*(1-k)
	}

	return values
}
