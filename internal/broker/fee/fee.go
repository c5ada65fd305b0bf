// Package fee provides the broker's fee schedule variants.
package fee

import (
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Model calculates the fee charged for a fill. Implementations must be
// deterministic given the trade quantity and execution price, and must
// never return a negative fee.
type Model interface {
	// Calculate returns the fee in cash units for a fill of the given
	// absolute quantity at the given execution price.
	Calculate(quantity float64, price float64) float64
	// Name returns the model's configured name.
	Name() Type
}

// Type names a fee model variant.
type Type string

const (
	TypeZero       Type = "zero"
	TypeFixed      Type = "fixed"
	TypePerUnit    Type = "per_unit"
	TypePercentage Type = "percentage"
)

// AllTypes lists the recognized fee model names, for config schema output.
var AllTypes = []any{
	TypeZero,
	TypeFixed,
	TypePerUnit,
	TypePercentage,
}

// FromConfig builds a fee model from its configured name and parameters.
// Amount is the flat fee (fixed), the per-unit fee (per_unit), or the
// notional fraction (percentage); minimum applies to per_unit only.
func FromConfig(model Type, amount float64, minimum float64) (Model, error) {
	if amount < 0 || minimum < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidFeeModel, "fee parameters must be non-negative (amount=%f, minimum=%f)", amount, minimum)
	}

	switch model {
	case TypeZero, "":
		return NewZero(), nil
	case TypeFixed:
		return NewFixed(amount), nil
	case TypePerUnit:
		return NewPerUnit(amount, minimum), nil
	case TypePercentage:
		return NewPercentage(amount), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidFeeModel, "unknown fee model %q", model)
	}
}
