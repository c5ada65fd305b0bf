package fee

// Zero implements Model with no fee.
type Zero struct{}

// NewZero creates a new zero fee model.
func NewZero() Model {
	return &Zero{}
}

// Calculate returns 0 for any fill.
func (z *Zero) Calculate(quantity float64, price float64) float64 {
	return 0.0
}

// Name returns the model name.
func (z *Zero) Name() Type {
	return TypeZero
}
