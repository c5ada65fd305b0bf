package strategy

import (
	"math"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// NameBuyAndHold is the registered name of the buy-and-hold strategy.
const NameBuyAndHold = "buy_and_hold"

// BuyAndHoldParams configures the buy-and-hold strategy.
type BuyAndHoldParams struct {
	// OrderQuantity is the position taken at the first bar. Zero sizes the
	// position to the whole cash balance, floored to whole units.
	OrderQuantity float64 `yaml:"order_quantity" json:"order_quantity" validate:"gte=0"`
}

// BuyAndHold enters a long position on the first bar and never trades
// again. It is the baseline every other strategy is compared against.
type BuyAndHold struct {
	params  BuyAndHoldParams
	entered bool
}

// NewBuyAndHold creates the strategy with default parameters.
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{
		params:  BuyAndHoldParams{OrderQuantity: 0},
		entered: false,
	}
}

// Name implements Strategy.
func (s *BuyAndHold) Name() string {
	return NameBuyAndHold
}

// Initialize implements Strategy.
func (s *BuyAndHold) Initialize(config string) error {
	params := BuyAndHoldParams{OrderQuantity: 0}

	if config != "" {
		if err := yaml.Unmarshal([]byte(config), &params); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyInitFailed, "failed to parse buy_and_hold params", err)
		}
	}

	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyInitFailed, "invalid buy_and_hold params", err)
	}

	s.params = params
	s.entered = false

	return nil
}

// OnBar implements Strategy.
func (s *BuyAndHold) OnBar(prefix *types.SeriesPrefix, view types.PortfolioView) (types.Signal, error) {
	bar := prefix.Last()

	if s.entered {
		return types.Hold(bar.Time), nil
	}

	s.entered = true

	quantity := s.params.OrderQuantity
	if quantity == 0 {
		if bar.Close <= 0 {
			return types.Hold(bar.Time), nil
		}

		quantity = math.Floor(view.Cash / bar.Close)
		if quantity <= 0 {
			return types.Hold(bar.Time), nil
		}
	}

	return types.TargetPosition(bar.Time, quantity, "buy_and_hold_entry"), nil
}
