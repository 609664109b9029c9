package marketdata

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// MinUsableBars is the fewest cleaned bars a backtest or optimization will
// accept. Below this the statistics are noise.
const MinUsableBars = 50

// CleanReport summarizes what Clean removed.
type CleanReport struct {
	Input      int
	Dropped    int
	Duplicates int
}

// Clean prepares raw provider candles for simulation: invalid bars are
// dropped, the series is sorted ascending by time, and duplicate timestamps
// keep the last occurrence. Providers occasionally return the in-progress bar
// twice across page boundaries; last write wins.
func Clean(candles []types.Candle, log *logger.Logger) ([]types.Candle, CleanReport) {
	report := CleanReport{Input: len(candles)}

	valid := make([]types.Candle, 0, len(candles))

	for _, c := range candles {
		if !c.IsValid() {
			report.Dropped++

			continue
		}

		valid = append(valid, c)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Time.Before(valid[j].Time)
	})

	deduped := make([]types.Candle, 0, len(valid))

	for _, c := range valid {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(c.Time) {
			deduped[n-1] = c
			report.Duplicates++

			continue
		}

		deduped = append(deduped, c)
	}

	if report.Dropped > 0 || report.Duplicates > 0 {
		log.Warn("cleaned candle series",
			zap.Int("input", report.Input),
			zap.Int("dropped", report.Dropped),
			zap.Int("duplicates", report.Duplicates))
	}

	return deduped, report
}

// Prepare cleans a raw series and rejects it outright when fewer than
// MinUsableBars survive, so partial results never reach the simulator.
func Prepare(candles []types.Candle, log *logger.Logger) ([]types.Candle, error) {
	cleaned, _ := Clean(candles, log)

	if len(cleaned) < MinUsableBars {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"%d usable bars after cleaning, need at least %d", len(cleaned), MinUsableBars)
	}

	return cleaned, nil
}
