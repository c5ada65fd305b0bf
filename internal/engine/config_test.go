package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrader-lab/qtrader/internal/broker"
	"github.com/qtrader-lab/qtrader/internal/broker/fee"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

func TestParseConfig(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		config, err := ParseConfig([]byte(`
initial_cash: 25000
slippage_bps: 5
fee:
  model: percentage
  amount: 0.001
allow_short: true
execution_timing: next_open
periods_per_year: 365
strategy:
  name: sma_crossover
  params: |
    fast_window: 10
    slow_window: 30
risk:
  stop_loss_pct: 0.05
start_time: 2023-01-01T00:00:00Z
end_time: 2023-12-31T00:00:00Z
`))
		require.NoError(t, err)

		assert.Equal(t, 25000.0, config.InitialCash)
		assert.Equal(t, 5.0, config.SlippageBps)
		assert.Equal(t, fee.TypePercentage, config.Fee.Model)
		assert.True(t, config.AllowShort)
		assert.Equal(t, broker.TimingNextOpen, config.ExecutionTiming)
		assert.Equal(t, 365, config.PeriodsPerYear)
		assert.Equal(t, "sma_crossover", config.Strategy.Name)

		stopLoss, err := config.Risk.StopLossPct.Take()
		require.NoError(t, err)
		assert.Equal(t, 0.05, stopLoss)
		assert.True(t, config.Risk.TakeProfitPct.IsNone())

		start, err := config.StartTime.Take()
		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		config, err := ParseConfig([]byte("strategy:\n  name: buy_and_hold\n"))
		require.NoError(t, err)

		assert.Equal(t, 10000.0, config.InitialCash)
		assert.Equal(t, broker.TimingCurrentClose, config.ExecutionTiming)
		assert.Equal(t, fee.TypeZero, config.Fee.Model)
		assert.True(t, config.StartTime.IsNone())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("initial_cash: ["))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
	})
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Strategy.Name = "buy_and_hold"

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode errors.ErrorCode
	}{
		{
			name:     "negative initial cash",
			mutate:   func(c *Config) { c.InitialCash = -1 },
			wantCode: errors.ErrCodeInvalidInitialCash,
		},
		{
			name:     "zero initial cash",
			mutate:   func(c *Config) { c.InitialCash = 0 },
			wantCode: errors.ErrCodeInvalidInitialCash,
		},
		{
			name:     "negative slippage",
			mutate:   func(c *Config) { c.SlippageBps = -2 },
			wantCode: errors.ErrCodeInvalidSlippage,
		},
		{
			name:     "unknown fee model",
			mutate:   func(c *Config) { c.Fee.Model = "tiered" },
			wantCode: errors.ErrCodeInvalidFeeModel,
		},
		{
			name:     "negative fee amount",
			mutate:   func(c *Config) { c.Fee = FeeConfig{Model: fee.TypeFixed, Amount: -1} },
			wantCode: errors.ErrCodeInvalidFeeModel,
		},
		{
			name:     "unknown execution timing",
			mutate:   func(c *Config) { c.ExecutionTiming = "vwap" },
			wantCode: errors.ErrCodeInvalidTiming,
		},
		{
			name:     "missing strategy name",
			mutate:   func(c *Config) { c.Strategy.Name = "" },
			wantCode: errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := valid
			tc.mutate(&config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tc.wantCode), "got %v", err)
		})
	}

	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})
}

func TestGenerateSchemaJSON(t *testing.T) {
	config := DefaultConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(schemaJSON), &schema))

	assert.Equal(t, "backtest-config", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "initial_cash")
	assert.Contains(t, properties, "execution_timing")
	assert.Contains(t, properties, "strategy")
}
