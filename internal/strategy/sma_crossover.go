package strategy

import (
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qtrader-lab/qtrader/internal/indicator"
	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// NameSMACrossover is the registered name of the SMA crossover strategy.
const NameSMACrossover = "sma_crossover"

// SMACrossoverParams configures the SMA crossover strategy.
type SMACrossoverParams struct {
	// FastWindow is the short moving average window.
	FastWindow int `yaml:"fast_window" json:"fast_window" validate:"gt=0"`
	// SlowWindow is the long moving average window; must exceed FastWindow.
	SlowWindow int `yaml:"slow_window" json:"slow_window" validate:"gt=0,gtfield=FastWindow"`
	// OrderQuantity is the position size taken on a cross up.
	OrderQuantity float64 `yaml:"order_quantity" json:"order_quantity" validate:"gt=0"`
}

// DefaultSMACrossoverParams returns the default windows, matching the
// conventional 20/50 daily crossover.
func DefaultSMACrossoverParams() SMACrossoverParams {
	return SMACrossoverParams{
		FastWindow:    20,
		SlowWindow:    50,
		OrderQuantity: 1,
	}
}

// SMACrossover goes long when the fast SMA crosses above the slow SMA and
// flattens on the cross down. The crossover compares the sign of
// (fast - slow) at the current step against the previous step; steps where
// either average is undefined always yield Hold, and the first defined
// step compares against a flat baseline.
type SMACrossover struct {
	params SMACrossoverParams

	// prevSign is the sign of (fast - slow) at the previous step with
	// defined averages. Zero until then, which makes the first defined
	// positive sign count as a cross up.
	prevSign int
}

// NewSMACrossover creates the strategy with default parameters.
func NewSMACrossover() *SMACrossover {
	return &SMACrossover{
		params:   DefaultSMACrossoverParams(),
		prevSign: 0,
	}
}

// Name implements Strategy.
func (s *SMACrossover) Name() string {
	return NameSMACrossover
}

// Initialize implements Strategy.
func (s *SMACrossover) Initialize(config string) error {
	params := DefaultSMACrossoverParams()

	if config != "" {
		if err := yaml.Unmarshal([]byte(config), &params); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyInitFailed, "failed to parse sma_crossover params", err)
		}
	}

	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyInitFailed, "invalid sma_crossover params", err)
	}

	s.params = params
	s.prevSign = 0

	return nil
}

// OnBar implements Strategy.
func (s *SMACrossover) OnBar(prefix *types.SeriesPrefix, view types.PortfolioView) (types.Signal, error) {
	bar := prefix.Last()

	fast := indicator.SMA(prefix, s.params.FastWindow)
	slow := indicator.SMA(prefix, s.params.SlowWindow)

	if fast.IsNone() || slow.IsNone() {
		return types.Hold(bar.Time), nil
	}

	currentSign := signOf(fast.Unwrap() - slow.Unwrap())
	previousSign := s.prevSign
	s.prevSign = currentSign

	if currentSign == previousSign {
		return types.Hold(bar.Time), nil
	}

	switch {
	case currentSign > 0:
		return types.TargetPosition(bar.Time, s.params.OrderQuantity, "sma_cross_up"), nil
	case currentSign < 0:
		return types.TargetPosition(bar.Time, 0, "sma_cross_down"), nil
	default:
		return types.Hold(bar.Time), nil
	}
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
