package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrader-lab/qtrader/pkg/errors"
)

func barAt(t time.Time, close float64) Bar {
	return Bar{Time: t, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func TestBarValidate(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		bar      Bar
		wantCode errors.ErrorCode
	}{
		{
			name: "valid bar",
			bar:  Bar{Time: base, Open: 100, High: 105, Low: 95, Close: 102, Volume: 1000},
		},
		{
			name:     "zero timestamp",
			bar:      Bar{Open: 100, High: 105, Low: 95, Close: 102},
			wantCode: errors.ErrCodeInvalidBar,
		},
		{
			name:     "high below close",
			bar:      Bar{Time: base, Open: 100, High: 101, Low: 95, Close: 102, Volume: 1000},
			wantCode: errors.ErrCodeInvalidBar,
		},
		{
			name:     "low above open",
			bar:      Bar{Time: base, Open: 100, High: 105, Low: 101, Close: 102, Volume: 1000},
			wantCode: errors.ErrCodeInvalidBar,
		},
		{
			name:     "negative volume",
			bar:      Bar{Time: base, Open: 100, High: 105, Low: 95, Close: 102, Volume: -1},
			wantCode: errors.ErrCodeInvalidBar,
		},
		{
			name:     "nan close",
			bar:      Bar{Time: base, Open: 100, High: 105, Low: 95, Close: math.NaN(), Volume: 1000},
			wantCode: errors.ErrCodeInvalidBar,
		},
		{
			name:     "infinite high",
			bar:      Bar{Time: base, Open: 100, High: math.Inf(1), Low: 95, Close: 102, Volume: 1000},
			wantCode: errors.ErrCodeInvalidBar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if tt.wantCode == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))
		})
	}
}

func TestNewBarSeries(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("empty input", func(t *testing.T) {
		_, err := NewBarSeries(nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeEmptySeries))
	})

	t.Run("duplicate timestamps", func(t *testing.T) {
		_, err := NewBarSeries([]Bar{barAt(base, 100), barAt(base, 101)})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeDuplicateTimestamp))
	})

	t.Run("out of order timestamps", func(t *testing.T) {
		_, err := NewBarSeries([]Bar{barAt(base.AddDate(0, 0, 1), 100), barAt(base, 101)})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeNonMonotonicTimestamps))
	})

	t.Run("valid series owns a copy", func(t *testing.T) {
		input := []Bar{barAt(base, 100), barAt(base.AddDate(0, 0, 1), 101)}
		series, err := NewBarSeries(input)
		require.NoError(t, err)

		// mutating the caller's slice must not affect the series
		input[0].Close = 999
		assert.Equal(t, 100.0, series.At(0).Close)
		assert.Equal(t, 2, series.Len())
	})
}

func TestSeriesPrefix(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, 5)

	for i := range bars {
		bars[i] = barAt(base.AddDate(0, 0, i), 100+float64(i))
	}

	series, err := NewBarSeries(bars)
	require.NoError(t, err)

	for i := 0; i < series.Len(); i++ {
		prefix := series.Prefix(i)
		assert.Equal(t, i+1, prefix.Len())
		assert.Equal(t, series.At(i), prefix.Last())

		// no bar in the prefix is later than the current step
		for j := 0; j < prefix.Len(); j++ {
			assert.False(t, prefix.At(j).Time.After(series.At(i).Time))
		}
	}
}
