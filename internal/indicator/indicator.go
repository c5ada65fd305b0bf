// Package indicator provides pure transformations over bar series prefixes.
//
// Every indicator is a pure function of its input prefix: identical prefixes
// produce identical output, so callers may invoke them repeatedly or cache
// results freely. When the window exceeds the available history the result
// is None rather than an arbitrary numeric default, so strategies treat
// warm-up consistently.
package indicator

import (
	"sync"

	"github.com/moznion/go-optional"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Type names a registered indicator.
type Type string

const (
	TypeSMA Type = "sma"
	TypeEMA Type = "ema"
	TypeRSI Type = "rsi"
)

// Indicator computes a derived value from a series prefix over a window.
type Indicator interface {
	// Name returns the registered name of the indicator.
	Name() Type
	// Compute returns the indicator value for the prefix, or None when the
	// window exceeds the available history.
	Compute(prefix *types.SeriesPrefix, window int) optional.Option[float64]
}

// Registry manages all available indicators.
type Registry interface {
	Register(indicator Indicator) error
	Get(name Type) (Indicator, error)
	List() []Type
}

type registryV1 struct {
	indicators map[Type]Indicator
	mu         sync.RWMutex
}

// NewRegistry creates a registry pre-populated with the built-in indicators.
func NewRegistry() Registry {
	r := &registryV1{
		indicators: make(map[Type]Indicator),
		mu:         sync.RWMutex{},
	}

	// Built-ins can never collide.
	_ = r.Register(NewSMA())
	_ = r.Register(NewEMA())
	_ = r.Register(NewRSI())

	return r
}

// Register adds an indicator to the registry.
func (r *registryV1) Register(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorDuplicated, "indicator %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// Get retrieves an indicator by name.
func (r *registryV1) Get(name Type) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
	}

	return indicator, nil
}

// List returns the names of all registered indicators.
func (r *registryV1) List() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Type, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	return names
}
