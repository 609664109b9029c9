package indicator

import (
	"math"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// BollingerBands exposes the fields "upper", "middle" and "lower". The default
// output field is the middle band.
type BollingerBands struct{}

// NewBollingerBands creates a new Bollinger Bands provider.
func NewBollingerBands() Provider {
	return &BollingerBands{}
}

// Type implements Provider.
func (b *BollingerBands) Type() string {
	return "bollinger"
}

// Lookback implements Provider.
func (b *BollingerBands) Lookback(params map[string]float64) int {
	return intParam(params, "period", 20) - 1
}

// Compute implements Provider.
func (b *BollingerBands) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	period := intParam(params, "period", 20)
	mult := floatParam(params, "std_dev", 2)

	source := closes(candles)
	middle := smaSeries(source, period)
	upper := nanSeries(len(source))
	lower := nanSeries(len(source))

	for i := period - 1; i < len(source); i++ {
		mean := middle[i]

		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := source[j] - mean
			variance += d * d
		}

		// Population standard deviation over the window.
		std := math.Sqrt(variance / float64(period))
		upper[i] = mean + mult*std
		lower[i] = mean - mult*std
	}

	return Output{
		DefaultField: middle,
		"upper":      upper,
		"middle":     middle,
		"lower":      lower,
	}, nil
}
