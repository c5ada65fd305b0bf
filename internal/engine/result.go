package engine

import (
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/qtrader-lab/qtrader/internal/metrics"
	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Result is everything a run produced. It owns the run's state store
// until Close is called.
type Result struct {
	Status      Status
	Config      Config
	Summary     metrics.Summary
	Fills       []types.AppliedFill
	EquityCurve []types.EquityPoint
	Rejections  []types.Rejection

	state *RunState
}

// Write exports the run into dir: fills, equity, and rejections as one
// file per table, plus the summary as stats.yaml.
func (r *Result) Write(dir string, format ExportFormat) error {
	if err := r.state.Export(dir, format); err != nil {
		return err
	}

	return r.WriteStats(filepath.Join(dir, "stats.yaml"))
}

// WriteStats renders the summary to a YAML file.
func (r *Result) WriteStats(path string) error {
	data, err := yaml.Marshal(statsDoc(r.Summary))
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to marshal stats", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

// Close releases the run's state store.
func (r *Result) Close() error {
	return r.state.Close()
}

// statsYAML mirrors metrics.Summary with pointer fields so undefined
// statistics serialize as null rather than empty lists.
type statsYAML struct {
	InitialEquity    float64        `yaml:"initial_equity"`
	FinalEquity      float64        `yaml:"final_equity"`
	TotalReturn      float64        `yaml:"total_return"`
	AnnualizedReturn *float64       `yaml:"annualized_return"`
	MaxDrawdown      float64        `yaml:"max_drawdown"`
	MaxDrawdownPct   float64        `yaml:"max_drawdown_pct"`
	SharpeRatio      *float64       `yaml:"sharpe_ratio"`
	TotalFees        float64        `yaml:"total_fees"`
	RealizedPnL      float64        `yaml:"realized_pnl"`
	Trades           tradeStatsYAML `yaml:"trades"`
}

type tradeStatsYAML struct {
	TotalFills   int      `yaml:"total_fills"`
	ClosingFills int      `yaml:"closing_fills"`
	WinningFills int      `yaml:"winning_fills"`
	LosingFills  int      `yaml:"losing_fills"`
	WinRate      *float64 `yaml:"win_rate"`
	AverageWin   *float64 `yaml:"average_win"`
	AverageLoss  *float64 `yaml:"average_loss"`
	ProfitFactor *float64 `yaml:"profit_factor"`
}

func statsDoc(s metrics.Summary) statsYAML {
	return statsYAML{
		InitialEquity:    s.InitialEquity,
		FinalEquity:      s.FinalEquity,
		TotalReturn:      s.TotalReturn,
		AnnualizedReturn: floatPtr(s.AnnualizedReturn),
		MaxDrawdown:      s.MaxDrawdown,
		MaxDrawdownPct:   s.MaxDrawdownPct,
		SharpeRatio:      floatPtr(s.SharpeRatio),
		TotalFees:        s.TotalFees,
		RealizedPnL:      s.RealizedPnL,
		Trades: tradeStatsYAML{
			TotalFills:   s.Trades.TotalFills,
			ClosingFills: s.Trades.ClosingFills,
			WinningFills: s.Trades.WinningFills,
			LosingFills:  s.Trades.LosingFills,
			WinRate:      floatPtr(s.Trades.WinRate),
			AverageWin:   floatPtr(s.Trades.AverageWin),
			AverageLoss:  floatPtr(s.Trades.AverageLoss),
			ProfitFactor: floatPtr(s.Trades.ProfitFactor),
		},
	}
}

func floatPtr(opt optional.Option[float64]) *float64 {
	if v, err := opt.Take(); err == nil {
		return &v
	}

	return nil
}
