// Package indicator provides per-bar indicator series behind a narrow,
// registry-based provider contract. Providers are pure, stateless and
// deterministic: the same candles and parameters always produce the same
// series. Warm-up bars are NaN.
package indicator

import (
	"math"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// DefaultField is the output field name for single-output indicators.
const DefaultField = "value"

// Output maps output field names to per-bar series. Every series has one
// value per input bar; warm-up bars hold NaN.
type Output map[string][]float64

// Provider computes one indicator type.
type Provider interface {
	// Type returns the registered indicator type name.
	Type() string
	// Compute returns the indicator series for the given candles.
	Compute(candles []types.Candle, params map[string]float64) (Output, error)
	// Lookback returns the number of bars consumed before the series yields
	// its first valid value.
	Lookback(params map[string]float64) int
}

// At returns the value of an output field at bar index i. The second return
// is false when the field is missing, the index is out of range, or the value
// is NaN (warm-up). Callers treat false as "condition not satisfiable".
func At(out Output, field string, i int) (float64, bool) {
	if field == "" {
		field = DefaultField
	}

	series, ok := out[field]
	if !ok {
		return 0, false
	}

	if i < 0 || i >= len(series) {
		return 0, false
	}

	v := series[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}

// nanSeries allocates a series of length n filled with NaN.
func nanSeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = math.NaN()
	}

	return series
}

// intParam reads an integer parameter with a default.
func intParam(params map[string]float64, key string, def int) int {
	if params == nil {
		return def
	}

	v, ok := params[key]
	if !ok || v <= 0 {
		return def
	}

	return int(v)
}

// floatParam reads a float parameter with a default.
func floatParam(params map[string]float64, key string, def float64) float64 {
	if params == nil {
		return def
	}

	v, ok := params[key]
	if !ok {
		return def
	}

	return v
}

// closes extracts the close series from candles.
func closes(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}

	return out
}
