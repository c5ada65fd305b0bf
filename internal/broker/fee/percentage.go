package fee

// Percentage charges a fraction of the trade notional.
type Percentage struct {
	rate float64
}

// NewPercentage creates a percentage fee model charging rate × notional,
// where rate is a fraction (0.001 == 10 bps).
func NewPercentage(rate float64) Model {
	return &Percentage{rate: rate}
}

// Calculate returns rate × quantity × price.
func (p *Percentage) Calculate(quantity float64, price float64) float64 {
	return p.rate * quantity * price
}

// Name returns the model name.
func (p *Percentage) Name() Type {
	return TypePercentage
}
