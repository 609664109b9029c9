package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// FetchDaysWithProgress fetches the trailing days one UTC day at a time while
// rendering a terminal progress bar. Meant for CLI use; servers call FetchDays.
func FetchDaysWithProgress(ctx context.Context, p Provider, symbol string, timeframe types.Timeframe, days int) ([]types.Candle, error) {
	bar := progressbar.NewOptions(days,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", symbol)),
		progressbar.OptionShowCount())

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	var candles []types.Candle

	for day := 0; day < days; day++ {
		from := start.AddDate(0, 0, day)

		to := from.AddDate(0, 0, 1)
		if to.After(end) {
			to = end
		}

		page, err := p.FetchCandles(ctx, symbol, timeframe, from, to)
		if err != nil {
			return nil, err
		}

		candles = append(candles, page...)
		_ = bar.Add(1)
	}

	return candles, nil
}
