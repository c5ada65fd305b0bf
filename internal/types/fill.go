package types

import (
	"time"

	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Fill is an executed trade produced by the broker simulator. Fills are
// immutable and appended exactly once to the fill log.
type Fill struct {
	// ID uniquely identifies the fill within a run.
	ID string `yaml:"id" json:"id" csv:"id"`
	// Time equals the timestamp of the bar at which execution occurred.
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Quantity is the signed position delta: positive buys, negative sells.
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// Price is the execution price after slippage.
	Price float64 `yaml:"price" json:"price" csv:"price"`
	// Fee is the non-negative fee charged for the fill.
	Fee float64 `yaml:"fee" json:"fee" csv:"fee"`
	// Slippage is the absolute price adjustment paid versus the reference
	// price, summed over the filled quantity.
	Slippage float64 `yaml:"slippage" json:"slippage" csv:"slippage"`
	// Reason carries the signal reason that produced the fill.
	Reason string `yaml:"reason" json:"reason" csv:"reason"`
}

// AppliedFill is a fill enriched by the ledger after application: the
// realized P&L of its closing portion and the post-application portfolio
// snapshot. The engine's fill log stores applied fills.
type AppliedFill struct {
	Fill `yaml:",inline" json:",inline"`
	// RealizedPnL is the profit realized by the position-decreasing portion
	// of the fill, net of the fill's fee. Zero for purely opening fills.
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	// ClosedQuantity is the absolute quantity closed by this fill.
	ClosedQuantity float64 `yaml:"closed_quantity" json:"closed_quantity" csv:"closed_quantity"`
	// CashAfter is the cash balance after the fill was applied.
	CashAfter float64 `yaml:"cash_after" json:"cash_after" csv:"cash_after"`
	// PositionAfter is the signed position after the fill was applied.
	PositionAfter float64 `yaml:"position_after" json:"position_after" csv:"position_after"`
}

// Rejection records a signal the broker refused to execute. Rejections are
// normal-path events: they are logged and the run continues.
type Rejection struct {
	// Time is the timestamp of the bar at which the rejection occurred.
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Code identifies the rejection cause.
	Code errors.ErrorCode `yaml:"code" json:"code" csv:"code"`
	// Message is the human-readable rejection reason.
	Message string `yaml:"message" json:"message" csv:"message"`
	// Signal is the rejected signal.
	Signal Signal `yaml:"signal" json:"signal" csv:"signal"`
}
