package fee

// Fixed charges a flat fee per fill regardless of size.
type Fixed struct {
	fee float64
}

// NewFixed creates a fixed fee model charging the given amount per fill.
func NewFixed(fee float64) Model {
	return &Fixed{fee: fee}
}

// Calculate returns the flat fee.
func (f *Fixed) Calculate(quantity float64, price float64) float64 {
	return f.fee
}

// Name returns the model name.
func (f *Fixed) Name() Type {
	return TypeFixed
}
