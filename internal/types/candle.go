package types

import "time"

// Timeframe identifies the bar interval of a candle series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Candle is one OHLCV sample for a fixed timeframe.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time"`
	Symbol string    `yaml:"symbol" json:"symbol"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume"`
}

// IsValid reports whether the candle is internally consistent. Invalid bars
// are dropped before they reach the simulator.
func (c Candle) IsValid() bool {
	if c.High < c.Low {
		return false
	}

	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}

	if c.Volume < 0 {
		return false
	}

	return true
}

// Minutes returns the duration of one bar of this timeframe in minutes.
func (t Timeframe) Minutes() int {
	switch t {
	case Timeframe1m:
		return 1
	case Timeframe5m:
		return 5
	case Timeframe15m:
		return 15
	case Timeframe30m:
		return 30
	case Timeframe1h:
		return 60
	case Timeframe4h:
		return 240
	case Timeframe1d:
		return 1440
	default:
		return 0
	}
}
