// Package strategy defines the trading strategy interface and its built-in
// variants.
package strategy

import (
	"sort"
	"sync"

	"github.com/qtrader-lab/qtrader/internal/types"
	"github.com/qtrader-lab/qtrader/pkg/errors"
)

// Strategy produces at most one signal per bar. Implementations may hold
// private state across calls (e.g. the previous indicator value) but must
// not retain references into the prefix beyond the call. New variants
// implement this interface without modifying the engine.
type Strategy interface {
	// Name returns the registered name of the strategy.
	Name() string
	// Initialize configures the strategy from a YAML parameter document.
	// An empty document selects the defaults.
	Initialize(config string) error
	// OnBar is invoked once per bar with the series prefix visible up to
	// and including the current step and a read-only portfolio view.
	OnBar(prefix *types.SeriesPrefix, view types.PortfolioView) (types.Signal, error)
}

// Factory constructs a fresh, uninitialized strategy instance. Parameter
// sweeps need independent instances, so the registry stores factories
// rather than strategies.
type Factory func() Strategy

// Registry manages the available strategy variants by name.
type Registry interface {
	Register(name string, factory Factory) error
	Create(name string) (Strategy, error)
	List() []string
}

type registryV1 struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a registry pre-populated with the built-in variants.
func NewRegistry() Registry {
	r := &registryV1{
		factories: make(map[string]Factory),
		mu:        sync.RWMutex{},
	}

	// Built-ins can never collide.
	_ = r.Register(NameSMACrossover, func() Strategy { return NewSMACrossover() })
	_ = r.Register(NameBuyAndHold, func() Strategy { return NewBuyAndHold() })

	return r
}

// Register adds a strategy factory to the registry.
func (r *registryV1) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %q already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create builds a fresh instance of the named strategy.
func (r *registryV1) Create(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "strategy %q not found", name)
	}

	return factory(), nil
}

// List returns the sorted names of all registered strategies.
func (r *registryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
