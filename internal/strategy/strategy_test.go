package strategy

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

func flatView(cash float64) types.PortfolioView {
	return types.PortfolioView{Cash: cash, Equity: cash}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	t.Run("built-ins registered", func(t *testing.T) {
		assert.Equal(t, []string{NameBuyAndHold, NameSMACrossover}, registry.List())
	})

	t.Run("create returns fresh instances", func(t *testing.T) {
		first, err := registry.Create(NameSMACrossover)
		require.NoError(t, err)

		second, err := registry.Create(NameSMACrossover)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := registry.Create("momentum")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownStrategy))
	})

	t.Run("duplicate registration", func(t *testing.T) {
		err := registry.Register(NameBuyAndHold, func() Strategy { return NewBuyAndHold() })
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeStrategyAlreadyExists))
	})
}

func TestSMACrossoverInitialize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := NewSMACrossover()
		require.NoError(t, s.Initialize(""))
		assert.Equal(t, DefaultSMACrossoverParams(), s.params)
	})

	t.Run("custom params", func(t *testing.T) {
		s := NewSMACrossover()
		require.NoError(t, s.Initialize("fast_window: 2\nslow_window: 3\norder_quantity: 1\n"))
		assert.Equal(t, 2, s.params.FastWindow)
		assert.Equal(t, 3, s.params.SlowWindow)
	})

	t.Run("fast must be below slow", func(t *testing.T) {
		s := NewSMACrossover()
		err := s.Initialize("fast_window: 5\nslow_window: 5\norder_quantity: 1\n")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeStrategyInitFailed))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		s := NewSMACrossover()
		err := s.Initialize("fast_window: [")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeStrategyInitFailed))
	})
}

func TestSMACrossoverSignals(t *testing.T) {
	// Closes from the hand-computed scenario: warm-up holds, then the fast
	// average sits above the slow one from the first defined step onward.
	series := seriesFromCloses(t, []float64{100, 102, 101, 105, 103})

	s := NewSMACrossover()
	require.NoError(t, s.Initialize("fast_window: 2\nslow_window: 3\norder_quantity: 1\n"))

	wantTypes := []types.SignalType{
		types.SignalTypeHold,           // insufficient history
		types.SignalTypeHold,           // slow SMA still undefined
		types.SignalTypeTargetPosition, // fast 101.5 > slow 101: cross up
		types.SignalTypeHold,           // sign unchanged
		types.SignalTypeHold,           // sign unchanged
	}

	view := flatView(10000)

	for i, want := range wantTypes {
		signal, err := s.OnBar(series.Prefix(i), view)
		require.NoError(t, err)
		assert.Equal(t, want, signal.Type, "bar %d", i)

		if want == types.SignalTypeTargetPosition {
			assert.Equal(t, 1.0, signal.TargetQuantity)
			assert.Equal(t, "sma_cross_up", signal.Reason)
		}
	}
}

func TestSMACrossoverCrossDown(t *testing.T) {
	// Rising then falling closes force a cross up followed by a cross down.
	series := seriesFromCloses(t, []float64{100, 110, 120, 100, 80, 60})

	s := NewSMACrossover()
	require.NoError(t, s.Initialize("fast_window: 2\nslow_window: 3\norder_quantity: 1\n"))

	var signals []types.Signal

	for i := 0; i < series.Len(); i++ {
		signal, err := s.OnBar(series.Prefix(i), flatView(10000))
		require.NoError(t, err)
		signals = append(signals, signal)
	}

	// bar 2: fast 115 > slow 110 -> cross up
	assert.Equal(t, types.SignalTypeTargetPosition, signals[2].Type)
	assert.Equal(t, 1.0, signals[2].TargetQuantity)

	// bar 3: fast 110 = slow 110 -> sign flips to zero, no order
	assert.Equal(t, types.SignalTypeHold, signals[3].Type)

	// bar 4: fast 90 < slow 100 -> cross down, target flat
	assert.Equal(t, types.SignalTypeTargetPosition, signals[4].Type)
	assert.Equal(t, 0.0, signals[4].TargetQuantity)
	assert.Equal(t, "sma_cross_down", signals[4].Reason)

	// bar 5: sign unchanged
	assert.Equal(t, types.SignalTypeHold, signals[5].Type)
}

func TestBuyAndHold(t *testing.T) {
	series := seriesFromCloses(t, []float64{100, 101, 102})

	t.Run("fixed quantity", func(t *testing.T) {
		s := NewBuyAndHold()
		require.NoError(t, s.Initialize("order_quantity: 5\n"))

		signal, err := s.OnBar(series.Prefix(0), flatView(10000))
		require.NoError(t, err)
		assert.Equal(t, types.SignalTypeTargetPosition, signal.Type)
		assert.Equal(t, 5.0, signal.TargetQuantity)

		// Never trades again.
		signal, err = s.OnBar(series.Prefix(1), types.PortfolioView{Cash: 9500, Quantity: 5})
		require.NoError(t, err)
		assert.Equal(t, types.SignalTypeHold, signal.Type)
	})

	t.Run("sizes to cash when unset", func(t *testing.T) {
		s := NewBuyAndHold()
		require.NoError(t, s.Initialize(""))

		signal, err := s.OnBar(series.Prefix(0), flatView(10050))
		require.NoError(t, err)
		assert.Equal(t, types.SignalTypeTargetPosition, signal.Type)
		// floor(10050 / 100) = 100 units
		assert.Equal(t, 100.0, signal.TargetQuantity)
	})
}
