package indicator

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// SMA is the simple moving average of closes.
type SMA struct{}

// NewSMA creates a new SMA provider.
func NewSMA() Provider {
	return &SMA{}
}

// Type implements Provider.
func (s *SMA) Type() string {
	return "sma"
}

// Lookback implements Provider.
func (s *SMA) Lookback(params map[string]float64) int {
	return intParam(params, "period", 20) - 1
}

// Compute implements Provider.
func (s *SMA) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	period := intParam(params, "period", 20)
	values := smaSeries(closes(candles), period)

	return Output{DefaultField: values}, nil
}

// smaSeries computes an SMA over an arbitrary source series, treating leading
// NaN values as warm-up.
func smaSeries(source []float64, period int) []float64 {
	values := nanSeries(len(source))

	firstValid := 0
	for firstValid < len(source) && isNaN(source[firstValid]) {
		firstValid++
	}

	sum := 0.0

	for i := firstValid; i < len(source); i++ {
		sum += source[i]

		if i-firstValid >= period {
			sum -= source[i-period]
		}

		if i-firstValid >= period-1 {
			values[i] = sum / float64(period)
		}
	}

	return values
}

func isNaN(v float64) bool {
	return v != v
}
