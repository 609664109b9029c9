package indicator

import (
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// PriceSource exposes a raw candle field as an indicator series so conditions
// can reference prices and volume directly.
type PriceSource struct {
	field string
}

// NewPriceSource creates a provider for one of the candle fields: "open",
// "high", "low", "close" or "volume".
func NewPriceSource(field string) Provider {
	return &PriceSource{field: field}
}

// Type implements Provider.
func (p *PriceSource) Type() string {
	return p.field
}

// Lookback implements Provider.
func (p *PriceSource) Lookback(_ map[string]float64) int {
	return 0
}

// Compute implements Provider.
func (p *PriceSource) Compute(candles []types.Candle, _ map[string]float64) (Output, error) {
	values := make([]float64, len(candles))

	for i, c := range candles {
		switch p.field {
		case "open":
			values[i] = c.Open
		case "high":
			values[i] = c.High
		case "low":
			values[i] = c.Low
		case "volume":
			values[i] = c.Volume
		default:
			values[i] = c.Close
		}
	}

	return Output{DefaultField: values}, nil
}
