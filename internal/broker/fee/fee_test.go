package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrader-lab/qtrader/pkg/errors"
)

func TestZero(t *testing.T) {
	model := NewZero()
	assert.Equal(t, 0.0, model.Calculate(1000, 99.5))
	assert.Equal(t, TypeZero, model.Name())
}

func TestFixed(t *testing.T) {
	model := NewFixed(1.0)
	assert.Equal(t, 1.0, model.Calculate(10, 100))
	assert.Equal(t, 1.0, model.Calculate(10000, 1))
	assert.Equal(t, TypeFixed, model.Name())
}

func TestPerUnit(t *testing.T) {
	model := NewPerUnit(0.005, 1.0)

	// Below the minimum: floored.
	assert.Equal(t, 1.0, model.Calculate(100, 50))
	// Above the minimum: per-unit.
	assert.Equal(t, 2.5, model.Calculate(500, 50))
	assert.Equal(t, TypePerUnit, model.Name())
}

func TestPercentage(t *testing.T) {
	model := NewPercentage(0.001)
	assert.InDelta(t, 1.0, model.Calculate(10, 100), 1e-12)
	assert.Equal(t, TypePercentage, model.Name())
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		model   Type
		amount  float64
		minimum float64
		want    Type
		wantErr bool
	}{
		{name: "zero", model: TypeZero, want: TypeZero},
		{name: "empty defaults to zero", model: Type(""), want: TypeZero},
		{name: "fixed", model: TypeFixed, amount: 1.0, want: TypeFixed},
		{name: "per unit", model: TypePerUnit, amount: 0.005, minimum: 1.0, want: TypePerUnit},
		{name: "percentage", model: TypePercentage, amount: 0.0005, want: TypePercentage},
		{name: "unknown model", model: Type("tiered"), wantErr: true},
		{name: "negative amount", model: TypeFixed, amount: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := FromConfig(tt.model, tt.amount, tt.minimum)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFeeModel))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, model.Name())
		})
	}
}
