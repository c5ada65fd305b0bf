package types

import "time"

type SignalType string

const (
	// SignalTypeHold tells the broker to do nothing this step.
	SignalTypeHold SignalType = "hold"
	// SignalTypeTargetPosition tells the broker to trade to a signed target
	// position; a target of zero means flat.
	SignalTypeTargetPosition SignalType = "target_position"
	// SignalTypeClosePosition tells the broker to flatten whatever position
	// is currently held.
	SignalTypeClosePosition SignalType = "close_position"
)

// Signal is the value a strategy emits at one time step. It is ephemeral:
// it exists only between the strategy call and the broker call of a single
// engine step.
type Signal struct {
	// Time is the timestamp of the bar the signal was generated on.
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Type is the type of the signal.
	Type SignalType `yaml:"type" json:"type" csv:"type"`
	// TargetQuantity is the signed target position, valid only for
	// SignalTypeTargetPosition.
	TargetQuantity float64 `yaml:"target_quantity" json:"target_quantity" csv:"target_quantity"`
	// Reason records why the signal was emitted, e.g. "sma_cross_up".
	Reason string `yaml:"reason" json:"reason" csv:"reason"`
}

// Hold returns a hold signal for the given bar time.
func Hold(t time.Time) Signal {
	return Signal{Time: t, Type: SignalTypeHold, TargetQuantity: 0, Reason: ""}
}

// TargetPosition returns a signal requesting the given signed position.
func TargetPosition(t time.Time, quantity float64, reason string) Signal {
	return Signal{Time: t, Type: SignalTypeTargetPosition, TargetQuantity: quantity, Reason: reason}
}

// ClosePosition returns a signal requesting a flat position.
func ClosePosition(t time.Time, reason string) Signal {
	return Signal{Time: t, Type: SignalTypeClosePosition, TargetQuantity: 0, Reason: reason}
}
