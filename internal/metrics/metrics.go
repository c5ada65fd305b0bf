// Package metrics computes summary statistics over a completed run's
// equity curve and fill log.
package metrics

import (
	"math"

	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/types"
)

// DefaultPeriodsPerYear annualizes daily bars on a trading calendar.
const DefaultPeriodsPerYear = 252

// Summary is the full set of statistics reported after a run.
type Summary struct {
	InitialEquity    float64                  `yaml:"initial_equity" json:"initial_equity"`
	FinalEquity      float64                  `yaml:"final_equity" json:"final_equity"`
	TotalReturn      float64                  `yaml:"total_return" json:"total_return"`
	AnnualizedReturn optional.Option[float64] `yaml:"annualized_return" json:"annualized_return,omitempty"`
	MaxDrawdown      float64                  `yaml:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPct   float64                  `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	SharpeRatio      optional.Option[float64] `yaml:"sharpe_ratio" json:"sharpe_ratio,omitempty"`
	TotalFees        float64                  `yaml:"total_fees" json:"total_fees"`
	RealizedPnL      float64                  `yaml:"realized_pnl" json:"realized_pnl"`
	Trades           TradeStats               `yaml:"trades" json:"trades"`
}

// TradeStats aggregates the closing fills of a run. A "trade" here is a
// fill that reduced an open position and therefore realized PnL.
type TradeStats struct {
	TotalFills    int                      `yaml:"total_fills" json:"total_fills"`
	ClosingFills  int                      `yaml:"closing_fills" json:"closing_fills"`
	WinningFills  int                      `yaml:"winning_fills" json:"winning_fills"`
	LosingFills   int                      `yaml:"losing_fills" json:"losing_fills"`
	WinRate       optional.Option[float64] `yaml:"win_rate" json:"win_rate,omitempty"`
	AverageWin    optional.Option[float64] `yaml:"average_win" json:"average_win,omitempty"`
	AverageLoss   optional.Option[float64] `yaml:"average_loss" json:"average_loss,omitempty"`
	ProfitFactor  optional.Option[float64] `yaml:"profit_factor" json:"profit_factor,omitempty"`
}

// Compute derives the summary from an equity curve and the applied
// fills. The curve must have at least one point; periodsPerYear scales
// per-bar returns to annual figures and defaults when non-positive.
func Compute(curve []types.EquityPoint, fills []types.AppliedFill, initialCash, totalFees, realizedPnL float64, periodsPerYear int) Summary {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}

	summary := Summary{
		InitialEquity: initialCash,
		FinalEquity:   initialCash,
		TotalFees:     totalFees,
		RealizedPnL:   realizedPnL,
		Trades:        tradeStats(fills),
	}

	if len(curve) == 0 {
		return summary
	}

	summary.FinalEquity = curve[len(curve)-1].Equity

	if initialCash != 0 {
		summary.TotalReturn = summary.FinalEquity/initialCash - 1
		summary.AnnualizedReturn = annualizedReturn(summary.TotalReturn, len(curve), periodsPerYear)
	}

	summary.MaxDrawdown, summary.MaxDrawdownPct = MaxDrawdown(curve)
	summary.SharpeRatio = SharpeRatio(curve, periodsPerYear)

	return summary
}

// MaxDrawdown returns the largest peak-to-trough equity decline, in
// absolute terms and as a fraction of the peak. A single forward pass
// tracks the running peak.
func MaxDrawdown(curve []types.EquityPoint) (absolute, pct float64) {
	if len(curve) == 0 {
		return 0, 0
	}

	peak := curve[0].Equity

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		drawdown := peak - point.Equity
		if drawdown > absolute {
			absolute = drawdown
			if peak != 0 {
				pct = drawdown / peak
			}
		}
	}

	return absolute, pct
}

// SharpeRatio computes the annualized Sharpe ratio of the curve's
// per-period simple returns at a zero risk-free rate. It is undefined
// when fewer than two periods exist or when returns never vary.
func SharpeRatio(curve []types.EquityPoint, periodsPerYear int) optional.Option[float64] {
	if len(curve) < 2 {
		return optional.None[float64]()
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			return optional.None[float64]()
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return optional.None[float64]()
	}

	return optional.Some(mean / stdev * math.Sqrt(float64(periodsPerYear)))
}

func annualizedReturn(totalReturn float64, periods, periodsPerYear int) optional.Option[float64] {
	if periods < 2 || totalReturn <= -1 {
		return optional.None[float64]()
	}

	years := float64(periods) / float64(periodsPerYear)

	return optional.Some(math.Pow(1+totalReturn, 1/years) - 1)
}

func tradeStats(fills []types.AppliedFill) TradeStats {
	stats := TradeStats{TotalFills: len(fills)}

	var grossWin, grossLoss float64

	for _, fill := range fills {
		if fill.ClosedQuantity == 0 {
			continue
		}

		stats.ClosingFills++

		switch {
		case fill.RealizedPnL > 0:
			stats.WinningFills++
			grossWin += fill.RealizedPnL
		case fill.RealizedPnL < 0:
			stats.LosingFills++
			grossLoss += -fill.RealizedPnL
		}
	}

	if stats.ClosingFills > 0 {
		stats.WinRate = optional.Some(float64(stats.WinningFills) / float64(stats.ClosingFills))
	}

	if stats.WinningFills > 0 {
		stats.AverageWin = optional.Some(grossWin / float64(stats.WinningFills))
	}

	if stats.LosingFills > 0 {
		stats.AverageLoss = optional.Some(grossLoss / float64(stats.LosingFills))
	}

	if grossLoss > 0 {
		stats.ProfitFactor = optional.Some(grossWin / grossLoss)
	}

	return stats
}
