package simulator

import (
	"math"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// tradingDaysPerYear annualizes per-trade return ratios.
const tradingDaysPerYear = 252

// ComputeStatistics derives performance statistics from a finished run. It is
// a pure function of the trades, equity curve and candle window.
func ComputeStatistics(trades []types.Trade, equity []types.EquityPoint, candles []types.Candle, initialCapital float64) types.Statistics {
	stats := types.Statistics{
		FinalEquity: initialCapital,
	}

	if len(equity) > 0 {
		stats.FinalEquity = equity[len(equity)-1].Equity
	}

	if len(trades) > 0 {
		// EOB trades are bookkeeping closes, but they still realize PnL and
		// fees, so they count like any other trade.
		stats.FinalEquity = equityAfterTrades(trades, initialCapital)
	}

	for _, point := range equity {
		if point.Drawdown > stats.MaxDrawdown {
			stats.MaxDrawdown = point.Drawdown
		}
	}

	if initialCapital > 0 {
		stats.TotalReturn = (stats.FinalEquity - initialCapital) / initialCapital * 100
	}

	if len(candles) > 1 {
		first := candles[0].Close
		last := candles[len(candles)-1].Close

		if first > 0 {
			stats.BuyAndHoldPnlPercent = (last - first) / first * 100
		}

		years := candles[len(candles)-1].Time.Sub(candles[0].Time).Hours() / (24 * 365)
		if years > 0 && initialCapital > 0 && stats.FinalEquity > 0 {
			stats.AnnualizedReturn = (math.Pow(stats.FinalEquity/initialCapital, 1/years) - 1) * 100
		}
	}

	if stats.MaxDrawdown > 0 {
		stats.Calmar = stats.AnnualizedReturn / stats.MaxDrawdown
	}

	if len(trades) == 0 {
		return stats
	}

	fillTradeStats(&stats, trades)

	return stats
}

func equityAfterTrades(trades []types.Trade, initialCapital float64) float64 {
	equity := initialCapital
	for _, t := range trades {
		equity += t.Pnl
	}

	return equity
}

func fillTradeStats(stats *types.Statistics, trades []types.Trade) {
	grossProfit := 0.0
	grossLoss := 0.0
	winPercentSum := 0.0
	lossPercentSum := 0.0
	returns := make([]float64, 0, len(trades))

	minHold := math.MaxFloat64
	maxHold := 0.0
	holdSum := 0.0

	for _, t := range trades {
		stats.TotalTrades++
		stats.TotalFees += t.Fees
		returns = append(returns, t.PnlPercent/100)

		if t.IsWin() {
			stats.WinningTrades++
			grossProfit += t.Pnl
			winPercentSum += t.PnlPercent
		} else {
			stats.LosingTrades++
			grossLoss += -t.Pnl
			lossPercentSum += -t.PnlPercent
		}

		hold := t.HoldingTime().Seconds()
		holdSum += hold
		minHold = math.Min(minHold, hold)
		maxHold = math.Max(maxHold, hold)
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100

	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		stats.ProfitFactor = math.Inf(1)
	}

	if stats.WinningTrades > 0 {
		stats.AvgWinPercent = winPercentSum / float64(stats.WinningTrades)
	}

	if stats.LosingTrades > 0 {
		stats.AvgLossPercent = lossPercentSum / float64(stats.LosingTrades)
	}

	winRate := stats.WinRate / 100
	stats.Expectancy = stats.AvgWinPercent*winRate - stats.AvgLossPercent*(1-winRate)

	stats.Sharpe = sharpeRatio(returns)
	stats.Sortino = sortinoRatio(returns)

	stats.HoldingTime = types.HoldingTimeStats{
		Min: int(minHold),
		Max: int(maxHold),
		Avg: int(holdSum / float64(stats.TotalTrades)),
	}
}

// sharpeRatio annualizes the mean over standard deviation of per-trade
// returns. Fewer than two trades, or zero variance, yields zero.
func sharpeRatio(returns []float64) float64 {
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// sortinoRatio penalizes downside deviation only.
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean, _ := meanStd(returns)

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}

	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		if mean > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return mean / downside * math.Sqrt(tradingDaysPerYear)
}

func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}

	variance /= float64(len(values) - 1)

	return mean, math.Sqrt(variance)
}
