package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

func seriesFromCloses(t *testing.T, closes []float64) *types.BarSeries {
	t.Helper()

	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		}
	}

	series, err := types.NewBarSeries(bars)
	require.NoError(t, err)

	return series
}

func TestSMA(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 102, 101, 105, 103})

	tests := []struct {
		name      string
		prefixEnd int
		window    int
		want      float64
		undefined bool
	}{
		{name: "insufficient history", prefixEnd: 0, window: 2, undefined: true},
		{name: "exact window", prefixEnd: 1, window: 2, want: 101},
		{name: "window 2 at bar 3", prefixEnd: 3, window: 2, want: 103},
		{name: "window 3 at bar 3", prefixEnd: 3, window: 3, want: (102.0 + 101.0 + 105.0) / 3.0},
		{name: "window larger than series", prefixEnd: 4, window: 6, undefined: true},
		{name: "window one", prefixEnd: 4, window: 1, want: 103},
		{name: "non-positive window", prefixEnd: 4, window: 0, undefined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(series.Prefix(tt.prefixEnd), tt.window)
			if tt.undefined {
				assert.True(t, got.IsNone())
				return
			}

			require.True(t, got.IsSome())
			assert.InDelta(t, tt.want, got.Unwrap(), 1e-12)
		})
	}
}

func TestSMAIsPure(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 102, 101, 105, 103})
	prefix := series.Prefix(3)

	first := SMA(prefix, 3)
	second := SMA(prefix, 3)

	require.True(t, first.IsSome())
	assert.Equal(t, first.Unwrap(), second.Unwrap())
}

func TestEMA(t *testing.T) {
	series := seriesFromCloses(t, []float64{10, 20, 30, 40})

	t.Run("insufficient history", func(t *testing.T) {
		assert.True(t, EMA(series.Prefix(1), 3).IsNone())
	})

	t.Run("seeded with sma", func(t *testing.T) {
		// window 3: seed = (10+20+30)/3 = 20
		got := EMA(series.Prefix(2), 3)
		require.True(t, got.IsSome())
		assert.InDelta(t, 20.0, got.Unwrap(), 1e-12)
	})

	t.Run("recursive step", func(t *testing.T) {
		// alpha = 2/4 = 0.5, ema = 0.5*40 + 0.5*20 = 30
		got := EMA(series.Prefix(3), 3)
		require.True(t, got.IsSome())
		assert.InDelta(t, 30.0, got.Unwrap(), 1e-12)
	})
}

func TestRSI(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		series := seriesFromCloses(t, []float64{10, 11, 12})
		assert.True(t, RSI(series.Prefix(2), 3).IsNone())
	})

	t.Run("all gains saturate at 100", func(t *testing.T) {
		series := seriesFromCloses(t, []float64{10, 11, 12, 13, 14})

		got := RSI(series.Prefix(4), 3)
		require.True(t, got.IsSome())
		assert.InDelta(t, 100.0, got.Unwrap(), 1e-12)
	})

	t.Run("all losses saturate at 0", func(t *testing.T) {
		series := seriesFromCloses(t, []float64{14, 13, 12, 11, 10})

		got := RSI(series.Prefix(4), 3)
		require.True(t, got.IsSome())
		assert.InDelta(t, 0.0, got.Unwrap(), 1e-12)
	})

	t.Run("seed window", func(t *testing.T) {
		// Changes over the seed window: +2, -1, +2. Average gain 4/3,
		// average loss 1/3, RS 4, RSI 80.
		series := seriesFromCloses(t, []float64{10, 12, 11, 13})

		got := RSI(series.Prefix(3), 3)
		require.True(t, got.IsSome())
		assert.InDelta(t, 80.0, got.Unwrap(), 1e-12)
	})

	t.Run("wilder smoothing step", func(t *testing.T) {
		// Continue the seed case with one more change of -1:
		// avgGain = (4/3*2 + 0)/3 = 8/9, avgLoss = (1/3*2 + 1)/3 = 5/9,
		// RS = 8/5, RSI = 100 - 100/(1+8/5) = 61.538...
		series := seriesFromCloses(t, []float64{10, 12, 11, 13, 12})

		got := RSI(series.Prefix(4), 3)
		require.True(t, got.IsSome())
		assert.InDelta(t, 100-100/(1+8.0/5.0), got.Unwrap(), 1e-12)
	})
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	t.Run("built-ins registered", func(t *testing.T) {
		assert.ElementsMatch(t, []Type{TypeSMA, TypeEMA, TypeRSI}, registry.List())

		sma, err := registry.Get(TypeSMA)
		require.NoError(t, err)
		assert.Equal(t, TypeSMA, sma.Name())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		err := registry.Register(NewSMA())
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeIndicatorDuplicated))
	})

	t.Run("unknown indicator", func(t *testing.T) {
		_, err := registry.Get(Type("macd"))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
	})
}
