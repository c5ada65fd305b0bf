package indicator

import (
	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/types"
)

// SMA returns the simple moving average of the last window closes of the
// prefix, or None when fewer than window bars are visible or the window is
// not positive.
func SMA(prefix *types.SeriesPrefix, window int) optional.Option[float64] {
	n := prefix.Len()
	if window <= 0 || n < window {
		return optional.None[float64]()
	}

	sum := 0.0
	for i := n - window; i < n; i++ {
		sum += prefix.At(i).Close
	}

	return optional.Some(sum / float64(window))
}

// SMAIndicator implements simple moving average calculation.
type SMAIndicator struct{}

// NewSMA creates a new SMA indicator.
func NewSMA() Indicator {
	return &SMAIndicator{}
}

// Name returns the name of the indicator.
func (s *SMAIndicator) Name() Type {
	return TypeSMA
}

// Compute implements Indicator.
func (s *SMAIndicator) Compute(prefix *types.SeriesPrefix, window int) optional.Option[float64] {
	return SMA(prefix, window)
}
