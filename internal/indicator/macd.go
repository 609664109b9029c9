package indicator

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// MACD is the moving average convergence divergence. It exposes three fields:
// "macd", "signal" and "histogram". The default output field is the macd line.
type MACD struct{}

// NewMACD creates a new MACD provider.
func NewMACD() Provider {
	return &MACD{}
}

// Type implements Provider.
func (m *MACD) Type() string {
	return "macd"
}

// Lookback implements Provider.
func (m *MACD) Lookback(params map[string]float64) int {
	slow := intParam(params, "slow_period", 26)
	signal := intParam(params, "signal_period", 9)

	return slow - 1 + signal - 1
}

// Compute implements Provider.
func (m *MACD) Compute(candles []types.Candle, params map[string]float64) (Output, error) {
	fast := intParam(params, "fast_period", 12)
	slow := intParam(params, "slow_period", 26)
	signalPeriod := intParam(params, "signal_period", 9)

	source := closes(candles)
	fastEMA := emaSeries(source, fast)
	slowEMA := emaSeries(source, slow)

	macdLine := nanSeries(len(source))
	for i := range source {
		if !isNaN(fastEMA[i]) && !isNaN(slowEMA[i]) {
			macdLine[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signalLine := emaSeries(macdLine, signalPeriod)

	histogram := nanSeries(len(source))
	for i := range source {
		if !isNaN(macdLine[i]) && !isNaN(signalLine[i]) {
			histogram[i] = macdLine[i] - signalLine[i]
		}
	}

	return Output{
		DefaultField: macdLine,
		"macd":       macdLine,
		"signal":     signalLine,
		"histogram":  histogram,
	}, nil
}
