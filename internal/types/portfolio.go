package types

import "time"

// PortfolioView is a read-only snapshot of the ledger's state, handed to
// strategies for position-aware logic. It is a value copy: mutating it has
// no effect on the run.
type PortfolioView struct {
	// Cash is the current cash balance.
	Cash float64 `yaml:"cash" json:"cash"`
	// Quantity is the signed position size.
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// AverageCost is the weighted average cost basis of the open position,
	// zero when flat.
	AverageCost float64 `yaml:"average_cost" json:"average_cost"`
	// RealizedPnL is the accumulated realized profit and loss.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
	// TotalFees is the accumulated fees paid.
	TotalFees float64 `yaml:"total_fees" json:"total_fees"`
	// Equity is the mark-to-market value cash + quantity * mark price.
	Equity float64 `yaml:"equity" json:"equity"`
}

// EquityPoint is one mark-to-market observation of total portfolio value.
// The engine appends exactly one per bar; the ordered sequence is the
// equity curve.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Equity float64   `yaml:"equity" json:"equity" csv:"equity"`
}
