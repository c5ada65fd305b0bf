package indicator

import (
	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/types"
)

// RSI returns the Wilder relative strength index over the last window
// close-to-close changes, or None until window+1 closes are visible.
// The initial averages seed from the first window changes and smooth
// from there. An all-gain stretch returns 100, an all-loss stretch 0.
func RSI(prefix *types.SeriesPrefix, window int) optional.Option[float64] {
	n := prefix.Len()
	if window <= 0 || n < window+1 {
		return optional.None[float64]()
	}

	var avgGain, avgLoss float64

	for i := 1; i <= window; i++ {
		change := prefix.At(i).Close - prefix.At(i-1).Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}

	avgGain /= float64(window)
	avgLoss /= float64(window)

	for i := window + 1; i < n; i++ {
		change := prefix.At(i).Close - prefix.At(i-1).Close

		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
	}

	if avgLoss == 0 {
		return optional.Some(100.0)
	}

	rs := avgGain / avgLoss

	return optional.Some(100 - 100/(1+rs))
}

// RSIIndicator implements the relative strength index.
type RSIIndicator struct{}

// NewRSI creates a new RSI indicator.
func NewRSI() Indicator {
	return &RSIIndicator{}
}

// Name returns the name of the indicator.
func (r *RSIIndicator) Name() Type {
	return TypeRSI
}

// Compute implements Indicator.
func (r *RSIIndicator) Compute(prefix *types.SeriesPrefix, window int) optional.Option[float64] {
	return RSI(prefix, window)
}
