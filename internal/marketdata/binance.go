package marketdata

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// binancePageLimit is the maximum klines per request on the futures API.
const binancePageLimit = 1000

// BinanceProvider fetches USDT-margined futures klines. Historical klines
// need no API key.
type BinanceProvider struct {
	client *futures.Client
	log    *logger.Logger
}

// NewBinanceProvider creates a provider against the public futures API.
func NewBinanceProvider(log *logger.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: futures.NewClient("", ""),
		log:    log,
	}
}

// Name implements Provider.
func (p *BinanceProvider) Name() string {
	return "binance"
}

// FetchCandles implements Provider. Requests are paginated; each page resumes
// one interval after the last returned open time.
func (p *BinanceProvider) FetchCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	interval := string(timeframe)
	intervalDuration := time.Duration(timeframe.Minutes()) * time.Minute

	if intervalDuration <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", timeframe)
	}

	var candles []types.Candle

	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	for currentStart < endMillis {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to fetch %s klines from binance", symbol)
		}

		if len(klines) == 0 {
			break
		}

		candles = append(candles, convertKlines(symbol, klines)...)

		if len(klines) < binancePageLimit {
			break
		}

		// Resume one interval after the last open time to avoid duplicates.
		last := klines[len(klines)-1]
		currentStart = last.OpenTime + intervalDuration.Milliseconds()
	}

	p.log.Debug("fetched binance klines",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("candles", len(candles)))

	return candles, nil
}

// convertKlines maps futures klines onto candles, keyed by open time.
func convertKlines(symbol string, klines []*futures.Kline) []types.Candle {
	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		candles = append(candles, types.Candle{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Symbol: symbol,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return candles
}
