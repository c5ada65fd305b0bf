// Package risk evaluates protective exits against open positions. The
// manager runs before the strategy on every bar so that stop-loss and
// take-profit levels fire even when the strategy itself would hold.
package risk

import (
	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Exit reasons attached to the signals the manager emits.
const (
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
)

// Config holds the exit thresholds as fractions of the average entry
// price. A nil-valued option disables the corresponding exit.
type Config struct {
	StopLossPct   optional.Option[float64] `yaml:"stop_loss_pct" json:"stop_loss_pct,omitempty"`
	TakeProfitPct optional.Option[float64] `yaml:"take_profit_pct" json:"take_profit_pct,omitempty"`
}

// Validate rejects thresholds that cannot describe a price level.
func (c Config) Validate() error {
	if pct, err := c.StopLossPct.Take(); err == nil && pct <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "stop_loss_pct must be positive, got %v", pct)
	}

	if pct, err := c.TakeProfitPct.Take(); err == nil && pct <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "take_profit_pct must be positive, got %v", pct)
	}

	return nil
}

// Manager checks open positions against the configured exit levels.
type Manager struct {
	config Config
}

// NewManager builds a manager from a validated config.
func NewManager(config Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Manager{config: config}, nil
}

// Enabled reports whether any exit is configured. Engines skip the
// per-bar check entirely when it returns false.
func (m *Manager) Enabled() bool {
	return m.config.StopLossPct.IsSome() || m.config.TakeProfitPct.IsSome()
}

// Evaluate checks the bar's intrabar range against the position's
// average entry price and returns a close signal when an exit level was
// touched. Stop-loss takes precedence when both levels fall inside the
// same bar. Flat positions never trigger.
func (m *Manager) Evaluate(bar types.Bar, view types.PortfolioView) optional.Option[types.Signal] {
	if view.Quantity == 0 || view.AverageCost <= 0 {
		return optional.None[types.Signal]()
	}

	long := view.Quantity > 0

	if pct, err := m.config.StopLossPct.Take(); err == nil {
		if stopHit(bar, view.AverageCost, pct, long) {
			return optional.Some(types.ClosePosition(bar.Time, ReasonStopLoss))
		}
	}

	if pct, err := m.config.TakeProfitPct.Take(); err == nil {
		if targetHit(bar, view.AverageCost, pct, long) {
			return optional.Some(types.ClosePosition(bar.Time, ReasonTakeProfit))
		}
	}

	return optional.None[types.Signal]()
}

func stopHit(bar types.Bar, entry, pct float64, long bool) bool {
	if long {
		return bar.Low <= entry*(1-pct)
	}

	return bar.High >= entry*(1+pct)
}

func targetHit(bar types.Bar, entry, pct float64, long bool) bool {
	if long {
		return bar.High >= entry*(1+pct)
	}

	return bar.Low <= entry*(1-pct)
}
