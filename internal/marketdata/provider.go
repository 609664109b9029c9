// Package marketdata fetches historical candles from exchange and market data
// APIs and normalizes them into the internal candle type.
package marketdata

import (
	"context"
	"time"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Provider fetches historical candles for one symbol and timeframe. Candles
// are returned in ascending time order.
type Provider interface {
	// Name identifies the data source in logs and errors.
	Name() string
	// FetchCandles returns candles covering [start, end). Implementations
	// paginate as required by the upstream API.
	FetchCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error)
}

// FetchDays is a convenience wrapper fetching the trailing n days up to now.
func FetchDays(ctx context.Context, p Provider, symbol string, timeframe types.Timeframe, days int) ([]types.Candle, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	return p.FetchCandles(ctx, symbol, timeframe, start, end)
}
