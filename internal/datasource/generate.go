package datasource

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// GenerateConfig drives the synthetic bar generator. Drift and
// volatility are per-period log-return parameters of a geometric
// Brownian motion.
type GenerateConfig struct {
	Bars       int           `yaml:"bars" validate:"required,gt=0"`
	StartPrice float64       `yaml:"start_price" validate:"required,gt=0"`
	Drift      float64       `yaml:"drift"`
	Volatility float64       `yaml:"volatility" validate:"gte=0"`
	Start      time.Time     `yaml:"start"`
	Interval   time.Duration `yaml:"interval"`
	Seed       int64         `yaml:"seed"`
}

// Generate produces a synthetic daily bar series from a seeded random
// walk. The same config always yields the same series. Highs and lows
// are widened around the open/close range so every bar satisfies the
// OHLC ordering invariant.
func Generate(config GenerateConfig) (*types.BarSeries, error) {
	if config.Bars <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "bars must be positive, got %d", config.Bars)
	}

	if config.StartPrice <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "start_price must be positive, got %v", config.StartPrice)
	}

	if config.Volatility < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "volatility must be non-negative, got %v", config.Volatility)
	}

	start := config.Start
	if start.IsZero() {
		start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	interval := config.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	rng := rand.New(rand.NewSource(config.Seed))
	bars := make([]types.Bar, config.Bars)
	price := config.StartPrice

	for i := range bars {
		open := price

		logReturn := config.Drift + config.Volatility*rng.NormFloat64()
		close := open * math.Exp(logReturn)

		// Intrabar extremes extend beyond the open/close range by a
		// volatility-scaled fraction.
		span := math.Abs(close-open) + open*config.Volatility*0.5
		high := math.Max(open, close) + rng.Float64()*span*0.25
		low := math.Min(open, close) - rng.Float64()*span*0.25
		if low <= 0 {
			low = math.Min(open, close) * 0.5
		}

		volume := 1000 + rng.Float64()*9000

		bars[i] = types.Bar{
			Time:   start.Add(time.Duration(i) * interval),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		}

		price = close
	}

	return types.NewBarSeries(bars)
}

// WriteCSV writes a series to path with the canonical header so the
// output can be fed straight back into the CSV loader.
func WriteCSV(series *types.BarSeries, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write header", err)
	}

	for i := 0; i < series.Len(); i++ {
		bar := series.At(i)
		record := []string{
			bar.Time.UTC().Format(time.RFC3339),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.Volume),
		}

		if err := w.Write(record); err != nil {
			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to write bar %d", i)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to flush csv", err)
	}

	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
