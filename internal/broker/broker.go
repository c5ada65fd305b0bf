// Package broker simulates order execution against historical bars.
package broker

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/broker/fee"
	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// ExecutionTiming selects which price a signal executes at. Signals are
// generated from information available at the close of a bar; executing at
// that same close is the default since the strategy already observed it,
// while next_open defers execution to the following bar's open.
type ExecutionTiming string

const (
	TimingCurrentClose ExecutionTiming = "current_close"
	TimingNextOpen     ExecutionTiming = "next_open"
)

// fillNamespace seeds deterministic (version 5) fill IDs so that two runs
// over identical inputs produce identical fill logs.
var fillNamespace = uuid.MustParse("8a6e0804-2bd0-4672-b79d-d97027f9071a")

// Broker converts intended signals into executed fills, applying slippage
// and the configured fee schedule. It never sees more than the execution
// bar, so it cannot introduce look-ahead on its own.
type Broker struct {
	slippageBps float64
	feeModel    fee.Model
	allowShort  bool
	sequence    int
}

// New creates a broker simulator. A fresh broker must be used per run.
func New(slippageBps float64, feeModel fee.Model, allowShort bool) (*Broker, error) {
	if slippageBps < 0 || math.IsNaN(slippageBps) || math.IsInf(slippageBps, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidSlippage, "slippage_bps must be a non-negative finite number, got %f", slippageBps)
	}

	if feeModel == nil {
		return nil, errors.New(errors.ErrCodeInvalidFeeModel, "fee model is required")
	}

	return &Broker{
		slippageBps: slippageBps,
		feeModel:    feeModel,
		allowShort:  allowShort,
		sequence:    0,
	}, nil
}

// Execute converts a signal into at most one fill at the given reference
// price. executionBar is the bar at which execution occurs and stamps the
// fill; refPrice is that bar's close (current_close timing) or open
// (next_open timing). Rejections are returned as errors carrying a
// rejection code; the caller records them and continues.
func (b *Broker) Execute(signal types.Signal, executionBar types.Bar, refPrice float64, view types.PortfolioView) (optional.Option[types.Fill], error) {
	delta, err := b.resolveDelta(signal, view)
	if err != nil {
		return optional.None[types.Fill](), err
	}

	if delta == 0 {
		return optional.None[types.Fill](), nil
	}

	if refPrice <= 0 || math.IsNaN(refPrice) || math.IsInf(refPrice, 0) {
		return optional.None[types.Fill](), errors.Newf(errors.ErrCodeInvalidSignal, "reference price %f is not executable", refPrice)
	}

	newPosition := view.Quantity + delta
	if newPosition < 0 && !b.allowShort {
		return optional.None[types.Fill](), errors.Newf(errors.ErrCodeShortingDisallowed,
			"signal would open a short position of %f but shorting is disabled", newPosition)
	}

	// Slippage always moves the price against the trader.
	executionPrice := refPrice * (1 + b.slippageBps/10000*sign(delta))
	feeCharged := b.feeModel.Calculate(math.Abs(delta), executionPrice)

	if delta > 0 {
		cost := delta*executionPrice + feeCharged
		if cost > view.Cash {
			return optional.None[types.Fill](), errors.Newf(errors.ErrCodeInsufficientFunds,
				"buy requires %.2f but only %.2f cash is available", cost, view.Cash)
		}
	}

	b.sequence++

	fill := types.Fill{
		ID:       b.fillID(executionBar, delta),
		Time:     executionBar.Time,
		Quantity: delta,
		Price:    executionPrice,
		Fee:      feeCharged,
		Slippage: math.Abs(executionPrice-refPrice) * math.Abs(delta),
		Reason:   signal.Reason,
	}

	return optional.Some(fill), nil
}

func (b *Broker) resolveDelta(signal types.Signal, view types.PortfolioView) (float64, error) {
	switch signal.Type {
	case types.SignalTypeHold:
		return 0, nil
	case types.SignalTypeClosePosition:
		return -view.Quantity, nil
	case types.SignalTypeTargetPosition:
		target := signal.TargetQuantity
		if math.IsNaN(target) || math.IsInf(target, 0) {
			return 0, errors.Newf(errors.ErrCodeInvalidSignal, "target quantity %f is not finite", target)
		}

		return target - view.Quantity, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidSignal, "unknown signal type %q", signal.Type)
	}
}

// fillID derives a deterministic ID from the execution bar and the
// per-run fill sequence.
func (b *Broker) fillID(executionBar types.Bar, delta float64) string {
	seed := fmt.Sprintf("%d|%d|%f", executionBar.Time.UnixNano(), b.sequence, delta)

	return uuid.NewSHA1(fillNamespace, []byte(seed)).String()
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
