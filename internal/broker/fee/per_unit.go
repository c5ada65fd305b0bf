package fee

// PerUnit charges a fee per traded unit with a per-fill minimum,
// the schedule used by per-share brokers.
type PerUnit struct {
	perUnit float64
	minimum float64
}

// NewPerUnit creates a per-unit fee model: max(minimum, quantity × perUnit).
func NewPerUnit(perUnit float64, minimum float64) Model {
	return &PerUnit{perUnit: perUnit, minimum: minimum}
}

// Calculate returns the per-unit fee, floored at the minimum.
func (p *PerUnit) Calculate(quantity float64, price float64) float64 {
	fee := p.perUnit * quantity
	if fee < p.minimum {
		return p.minimum
	}

	return fee
}

// Name returns the model name.
func (p *PerUnit) Name() Type {
	return TypePerUnit
}
