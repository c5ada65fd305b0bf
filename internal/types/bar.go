package types

import (
	"math"
	"time"

	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Bar is a single OHLCV record for a fixed time interval.
// Bars are created once during ingestion and never mutated.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks a single bar's internal consistency.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return errors.New(errors.ErrCodeInvalidBar, "bar has zero timestamp")
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has non-finite field", b.Time)
		}

		if v < 0 {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has negative field", b.Time)
		}
	}

	if b.High < math.Max(b.Open, math.Max(b.Close, b.Low)) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s: high %f below open/close/low", b.Time, b.High)
	}

	if b.Low > math.Min(b.Open, math.Min(b.Close, b.High)) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s: low %f above open/close/high", b.Time, b.Low)
	}

	return nil
}

// BarSeries is an ordered, time-indexed sequence of bars, immutable once
// constructed. It is the substrate every other component reads. Strategies
// and brokers never see the series itself, only prefix views, so look-ahead
// is prevented by the type rather than by convention.
type BarSeries struct {
	bars []Bar
}

// NewBarSeries validates and constructs a series. Construction fails with a
// data error if timestamps are non-increasing or duplicated, or if any bar
// violates the OHLC ordering invariant.
func NewBarSeries(bars []Bar) (*BarSeries, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeEmptySeries, "bar series is empty")
	}

	for i, bar := range bars {
		if err := bar.Validate(); err != nil {
			return nil, err
		}

		if i == 0 {
			continue
		}

		prev := bars[i-1].Time
		if bar.Time.Equal(prev) {
			return nil, errors.Newf(errors.ErrCodeDuplicateTimestamp, "duplicate timestamp %s at index %d", bar.Time, i)
		}

		if bar.Time.Before(prev) {
			return nil, errors.Newf(errors.ErrCodeNonMonotonicTimestamps, "timestamp %s at index %d precedes %s", bar.Time, i, prev)
		}
	}

	owned := make([]Bar, len(bars))
	copy(owned, bars)

	return &BarSeries{bars: owned}, nil
}

// Len returns the number of bars in the series.
func (s *BarSeries) Len() int {
	return len(s.bars)
}

// At returns the bar at index i.
func (s *BarSeries) At(i int) Bar {
	return s.bars[i]
}

// Prefix returns the read-only view of bars up to and including index i.
// This is the only view ever exposed to a strategy or broker.
func (s *BarSeries) Prefix(i int) *SeriesPrefix {
	return &SeriesPrefix{bars: s.bars[:i+1]}
}

// SeriesPrefix is a read-only window over the start of a bar series. A
// prefix handed to a strategy at step i contains no bar after i.
type SeriesPrefix struct {
	bars []Bar
}

// Len returns the number of visible bars.
func (p *SeriesPrefix) Len() int {
	return len(p.bars)
}

// At returns the visible bar at index i.
func (p *SeriesPrefix) At(i int) Bar {
	return p.bars[i]
}

// Last returns the most recent visible bar, i.e. the current step's bar.
func (p *SeriesPrefix) Last() Bar {
	return p.bars[len(p.bars)-1]
}
