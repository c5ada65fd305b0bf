package indicator

import (
	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/types"
)

// EMA returns the exponential moving average of the prefix closes with
// smoothing alpha = 2/(window+1), seeded with the SMA of the first window
// bars, or None when fewer than window bars are visible.
func EMA(prefix *types.SeriesPrefix, window int) optional.Option[float64] {
	n := prefix.Len()
	if window <= 0 || n < window {
		return optional.None[float64]()
	}

	seed := 0.0
	for i := 0; i < window; i++ {
		seed += prefix.At(i).Close
	}

	ema := seed / float64(window)
	alpha := 2.0 / (float64(window) + 1.0)

	for i := window; i < n; i++ {
		ema = alpha*prefix.At(i).Close + (1-alpha)*ema
	}

	return optional.Some(ema)
}

// EMAIndicator implements exponential moving average calculation.
type EMAIndicator struct{}

// NewEMA creates a new EMA indicator.
func NewEMA() Indicator {
	return &EMAIndicator{}
}

// Name returns the name of the indicator.
func (e *EMAIndicator) Name() Type {
	return TypeEMA
}

// Compute implements Indicator.
func (e *EMAIndicator) Compute(prefix *types.SeriesPrefix, window int) optional.Option[float64] {
	return EMA(prefix, window)
}
