package indicator

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Stochastic is the stochastic oscillator. It exposes the fields "k" and "d".
// The default output field is %K.
type Stochastic struct{}

// NewStochastic creates a new stochastic oscillator provider.
func NewStochastic() Provider {
	return &Stochastic{}
}

// Type implements Provider.
func (s *Stochastic) Type() string {
	return "stochastic"
}

// Lookback implements Provider.
func (s *Stochastic) Lookback(params map[string]float64) int {
	period := intParam(params, "period", 14)
	d := intParam(params, "d_period", 3)

	return period - 1 + d - 1
}

// Compute implements Provider.
func (s *Stochastic) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	period := intParam(params, "period", 14)
	dPeriod := intParam(params, "d_period", 3)

	k := nanSeries(len(candles))

	for i := period - 1; i < len(candles); i++ {
		highest := candles[i].High
		lowest := candles[i].Low

		for j := i - period + 1; j <= i; j++ {
			if candles[j].High > highest {
				highest = candles[j].High
			}

			if candles[j].Low < lowest {
				lowest = candles[j].Low
			}
		}

		if highest == lowest {
			k[i] = 50
		} else {
			k[i] = (candles[i].Close - lowest) / (highest - lowest) * 100
		}
	}

	d := smaSeries(k, dPeriod)

	return Output{
		DefaultField: k,
		"k":          k,
		"d":          d,
	}, nil
}
