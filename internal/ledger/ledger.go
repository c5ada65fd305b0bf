// Package ledger tracks cash, position, cost basis, and P&L for one run.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Ledger is the single mutable resource of a run. It is owned exclusively
// by the engine; every other component sees only read-only views. Each fill
// is applied exactly once, in timestamp order.
//
// Internally all amounts are decimals so the accounting identity
// Δcash = -(quantity × price) - fee holds exactly.
type Ledger struct {
	cash     decimal.Decimal
	quantity decimal.Decimal
	avgCost  decimal.Decimal
	realized decimal.Decimal
	fees     decimal.Decimal

	initialCash float64
}

// New creates a ledger with the given starting cash.
func New(initialCash float64) *Ledger {
	return &Ledger{
		cash:        decimal.NewFromFloat(initialCash),
		quantity:    decimal.Zero,
		avgCost:     decimal.Zero,
		realized:    decimal.Zero,
		fees:        decimal.Zero,
		initialCash: initialCash,
	}
}

// Apply updates the ledger with one fill and returns the applied record.
// Cost basis is recomputed as a weighted average on position-increasing
// fills; realized P&L is booked on position-decreasing fills as
// (execution price - average cost) × quantity closed, net of the fee.
// A fill that flips the position long↔short is decomposed into a closing
// leg followed by an opening leg; the fee is attributed to the whole fill.
func (l *Ledger) Apply(fill types.Fill) (types.AppliedFill, error) {
	qty := decimal.NewFromFloat(fill.Quantity)
	price := decimal.NewFromFloat(fill.Price)
	fee := decimal.NewFromFloat(fill.Fee)

	if qty.IsZero() {
		return types.AppliedFill{}, errors.Newf(errors.ErrCodeLedgerViolation, "fill %s has zero quantity", fill.ID)
	}

	if fee.IsNegative() {
		return types.AppliedFill{}, errors.Newf(errors.ErrCodeLedgerViolation, "fill %s has negative fee", fill.ID)
	}

	// Δcash = -(quantity × price) - fee, exactly.
	newCash := l.cash.Sub(qty.Mul(price)).Sub(fee)
	if newCash.IsNegative() {
		return types.AppliedFill{}, errors.Newf(errors.ErrCodeLedgerViolation,
			"fill %s would drive cash negative (%s)", fill.ID, newCash)
	}

	oldQty := l.quantity
	newQty := oldQty.Add(qty)

	realizedDelta := decimal.Zero
	closed := decimal.Zero

	switch {
	case oldQty.IsZero() || oldQty.Sign() == qty.Sign():
		// Opening or adding: weighted average cost basis.
		totalCost := l.avgCost.Mul(oldQty.Abs()).Add(price.Mul(qty.Abs()))
		l.avgCost = totalCost.Div(newQty.Abs())

	case qty.Abs().LessThanOrEqual(oldQty.Abs()):
		// Reducing (possibly to flat): realize P&L on the closed quantity.
		closed = qty.Abs()
		direction := decimal.NewFromInt(int64(oldQty.Sign()))
		realizedDelta = price.Sub(l.avgCost).Mul(closed).Mul(direction).Sub(fee)

		if newQty.IsZero() {
			l.avgCost = decimal.Zero
		}

	default:
		// Flip: close the whole old position, then open the remainder at
		// the fill price.
		closed = oldQty.Abs()
		direction := decimal.NewFromInt(int64(oldQty.Sign()))
		realizedDelta = price.Sub(l.avgCost).Mul(closed).Mul(direction).Sub(fee)
		l.avgCost = price
	}

	l.cash = newCash
	l.quantity = newQty
	l.realized = l.realized.Add(realizedDelta)
	l.fees = l.fees.Add(fee)

	cashAfter, _ := l.cash.Float64()
	positionAfter, _ := l.quantity.Float64()
	realizedF, _ := realizedDelta.Float64()
	closedF, _ := closed.Float64()

	return types.AppliedFill{
		Fill:           fill,
		RealizedPnL:    realizedF,
		ClosedQuantity: closedF,
		CashAfter:      cashAfter,
		PositionAfter:  positionAfter,
	}, nil
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	v, _ := l.cash.Float64()

	return v
}

// Quantity returns the signed position size.
func (l *Ledger) Quantity() float64 {
	v, _ := l.quantity.Float64()

	return v
}

// AverageCost returns the weighted average cost basis of the open position.
func (l *Ledger) AverageCost() float64 {
	v, _ := l.avgCost.Float64()

	return v
}

// RealizedPnL returns the accumulated realized profit and loss.
func (l *Ledger) RealizedPnL() float64 {
	v, _ := l.realized.Float64()

	return v
}

// TotalFees returns the accumulated fees paid.
func (l *Ledger) TotalFees() float64 {
	v, _ := l.fees.Float64()

	return v
}

// InitialCash returns the starting cash balance.
func (l *Ledger) InitialCash() float64 {
	return l.initialCash
}

// Equity returns the mark-to-market portfolio value at the given price.
func (l *Ledger) Equity(markPrice float64) float64 {
	equity := l.cash.Add(l.quantity.Mul(decimal.NewFromFloat(markPrice)))
	v, _ := equity.Float64()

	return v
}

// View returns a read-only snapshot marked at the given price.
func (l *Ledger) View(markPrice float64) types.PortfolioView {
	return types.PortfolioView{
		Cash:        l.Cash(),
		Quantity:    l.Quantity(),
		AverageCost: l.AverageCost(),
		RealizedPnL: l.RealizedPnL(),
		TotalFees:   l.TotalFees(),
		Equity:      l.Equity(markPrice),
	}
}
