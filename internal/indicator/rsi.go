package indicator

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// RSI is the Relative Strength Index with Wilder's smoothing.
type RSI struct{}

// NewRSI creates a new RSI provider.
func NewRSI() Provider {
	return &RSI{}
}

// Type implements Provider.
func (r *RSI) Type() string {
	return "rsi"
}

// Lookback implements Provider.
func (r *RSI) Lookback(params map[string]float64) int {
	return intParam(params, "period", 14)
}

// Compute implements Provider.
func (r *RSI) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	period := intParam(params, "period", 14)
	source := closes(candles)
	values := nanSeries(len(source))

	if len(source) < period+1 {
		return Output{DefaultField: values}, nil
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average over the initial period of changes.
	for i := 1; i <= period; i++ {
		change := source[i] - source[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	values[period] = rsiFromAverages(avgGain, avgLoss)

	// Subsequent averages use Wilder's smoothing method.
	for i := period + 1; i < len(source); i++ {
		change := source[i] - source[i-1]

		gain := 0.0
		loss := 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		values[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return Output{DefaultField: values}, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
