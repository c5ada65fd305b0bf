// Package engine drives a single backtest run: it walks the bar series
// in time order, hands each prefix to the strategy, routes signals
// through the broker simulator, and settles fills against the ledger.
package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/qtrader-lab/qtrader/internal/broker"
	"github.com/qtrader-lab/qtrader/internal/broker/fee"
	"github.com/qtrader-lab/qtrader/internal/datasource"
	"github.com/qtrader-lab/qtrader/internal/ledger"
	"github.com/qtrader-lab/qtrader/internal/logger"
	"github.com/qtrader-lab/qtrader/internal/metrics"
	"github.com/qtrader-lab/qtrader/internal/risk"
	"github.com/qtrader-lab/qtrader/internal/strategy"
	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Status tracks an engine through its lifecycle. A run can only start
// from StatusIdle; reuse requires a new engine.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ProgressFunc receives the number of processed bars and the total.
type ProgressFunc func(current, total int)

// Engine runs one backtest over one bar series.
type Engine struct {
	config     Config
	logger     *logger.Logger
	registry   strategy.Registry
	status     Status
	onProgress optional.Option[ProgressFunc]
}

// New validates the configuration and returns an idle engine with the
// built-in strategies registered.
func New(config Config, l *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config:   config,
		logger:   l,
		registry: strategy.NewRegistry(),
		status:   StatusIdle,
	}, nil
}

// Registry exposes the strategy registry so callers can add their own
// strategies before Run.
func (e *Engine) Registry() strategy.Registry {
	return e.registry
}

// Status returns the engine's lifecycle state.
func (e *Engine) Status() Status {
	return e.status
}

// SetProgressCallback installs a callback invoked once per processed bar.
func (e *Engine) SetProgressCallback(fn ProgressFunc) {
	e.onProgress = optional.Some(fn)
}

// Run executes the configured strategy over the series and returns the
// run's result. The engine transitions to StatusCompleted on success or
// StatusFailed on a strategy or ledger error; a failed run still
// returns the partial result accumulated so far alongside the error.
func (e *Engine) Run(ctx context.Context, series *types.BarSeries) (*Result, error) {
	if e.status != StatusIdle {
		return nil, errors.Newf(errors.ErrCodeEngineNotIdle, "engine is %s, a run requires an idle engine", e.status)
	}

	e.status = StatusRunning

	window, err := datasource.Slice(series, e.config.StartTime.TakeOr(time.Time{}), e.config.EndTime.TakeOr(time.Time{}))
	if err != nil {
		e.status = StatusFailed

		return nil, err
	}

	run, err := e.newRun(window)
	if err != nil {
		e.status = StatusFailed

		return nil, err
	}

	result, err := run.play(ctx)
	if err != nil {
		e.status = StatusFailed

		return result, err
	}

	e.status = StatusCompleted

	return result, nil
}

// run bundles the per-run collaborators so the bar loop stays readable.
type run struct {
	engine *Engine
	window *types.BarSeries
	strat  strategy.Strategy
	broker *broker.Broker
	risk   *risk.Manager
	ledger *ledger.Ledger
	state  *RunState

	fills      []types.AppliedFill
	curve      []types.EquityPoint
	rejections []types.Rejection
	pending    optional.Option[types.Signal]
}

func (e *Engine) newRun(window *types.BarSeries) (*run, error) {
	strat, err := e.registry.Create(e.config.Strategy.Name)
	if err != nil {
		return nil, err
	}

	if err := strat.Initialize(e.config.Strategy.Params); err != nil {
		return nil, err
	}

	feeModel, err := fee.FromConfig(e.config.Fee.Model, e.config.Fee.Amount, e.config.Fee.Minimum)
	if err != nil {
		return nil, err
	}

	brok, err := broker.New(e.config.SlippageBps, feeModel, e.config.AllowShort)
	if err != nil {
		return nil, err
	}

	riskManager, err := risk.NewManager(e.config.Risk)
	if err != nil {
		return nil, err
	}

	state, err := NewRunState(e.logger)
	if err != nil {
		return nil, err
	}

	return &run{
		engine: e,
		window: window,
		strat:  strat,
		broker: brok,
		risk:   riskManager,
		ledger: ledger.New(e.config.InitialCash),
		state:  state,
	}, nil
}

func (r *run) play(ctx context.Context) (*Result, error) {
	e := r.engine
	total := r.window.Len()

	e.logger.Info("Starting run",
		zap.String("strategy", e.config.Strategy.Name),
		zap.Int("bars", total),
		zap.Float64("initial_cash", e.config.InitialCash),
	)

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return r.result(StatusFailed), ctx.Err()
		default:
		}

		bar := r.window.At(i)

		// A signal deferred from the previous bar executes first, at
		// this bar's open.
		if pending, err := r.pending.Take(); err == nil {
			r.pending = optional.None[types.Signal]()

			if err := r.execute(pending, bar, bar.Open); err != nil {
				return r.result(StatusFailed), err
			}
		}

		// Protective exits run before the strategy sees the bar.
		if r.risk.Enabled() {
			if exit, err := r.risk.Evaluate(bar, r.ledger.View(bar.Close)).Take(); err == nil {
				if err := r.execute(exit, bar, bar.Close); err != nil {
					return r.result(StatusFailed), err
				}
			}
		}

		signal, err := r.strat.OnBar(r.window.Prefix(i), r.ledger.View(bar.Close))
		if err != nil {
			e.logger.Error("Strategy error",
				zap.Int("bar", i),
				zap.Time("time", bar.Time),
				zap.Error(err),
			)

			return r.result(StatusFailed), errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy failed at bar %d", i)
		}

		switch e.config.ExecutionTiming {
		case broker.TimingNextOpen:
			if signal.Type != types.SignalTypeHold {
				if i == total-1 {
					e.logger.Debug("Dropping signal on final bar", zap.Time("time", bar.Time))
				} else {
					r.pending = optional.Some(signal)
				}
			}
		default:
			if err := r.execute(signal, bar, bar.Close); err != nil {
				return r.result(StatusFailed), err
			}
		}

		// Exactly one equity point per bar, marked at the close.
		point := types.EquityPoint{Time: bar.Time, Equity: r.ledger.Equity(bar.Close)}
		r.curve = append(r.curve, point)

		if err := r.state.RecordEquity(point); err != nil {
			return r.result(StatusFailed), err
		}

		if fn, err := e.onProgress.Take(); err == nil {
			fn(i+1, total)
		}
	}

	result := r.result(StatusCompleted)

	stats, err := r.state.FillStats()
	if err != nil {
		return result, err
	}

	e.logger.Info("Run completed",
		zap.Float64("final_equity", result.Summary.FinalEquity),
		zap.Int("fills", stats.TotalFills),
		zap.Int("winning_fills", stats.WinningFills),
		zap.Int("losing_fills", stats.LosingFills),
		zap.Float64("total_fees", stats.TotalFees),
		zap.Int("rejections", len(r.rejections)),
	)

	return result, nil
}

// execute routes one signal through the broker and settles any fill.
// Rejections are recorded and swallowed; ledger and store failures
// abort the run.
func (r *run) execute(signal types.Signal, executionBar types.Bar, refPrice float64) error {
	maybeFill, err := r.broker.Execute(signal, executionBar, refPrice, r.ledger.View(refPrice))
	if err != nil {
		if !errors.IsRejection(err) {
			return err
		}

		rejection := types.Rejection{
			Time:    executionBar.Time,
			Code:    errors.GetCode(err),
			Message: err.Error(),
			Signal:  signal,
		}

		r.rejections = append(r.rejections, rejection)

		r.engine.logger.Debug("Signal rejected",
			zap.Time("time", executionBar.Time),
			zap.String("reason", err.Error()),
		)

		return r.state.RecordRejection(rejection)
	}

	fill, err := maybeFill.Take()
	if err != nil {
		return nil // hold or no-op target
	}

	applied, err := r.ledger.Apply(fill)
	if err != nil {
		return err
	}

	r.fills = append(r.fills, applied)

	return r.state.RecordFill(applied)
}

func (r *run) result(status Status) *Result {
	summary := metrics.Compute(
		r.curve,
		r.fills,
		r.engine.config.InitialCash,
		r.ledger.TotalFees(),
		r.ledger.RealizedPnL(),
		r.engine.config.PeriodsPerYear,
	)

	return &Result{
		Status:      status,
		Config:      r.engine.config,
		Summary:     summary,
		Fills:       r.fills,
		EquityCurve: r.curve,
		Rejections:  r.rejections,
		state:       r.state,
	}
}
