package indicator

import (
	"sync"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// Registry manages all available indicator providers. Indicator types are
// numerous and may grow, so the lookup is open: new providers register at
// startup without touching the condition or signal logic.
type Registry interface {
	Register(provider Provider) error
	Get(indicatorType string) (Provider, error)
	List() []string
	Remove(indicatorType string) error
}

type registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() Registry {
	return &registry{
		providers: make(map[string]Provider),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with the built-in indicator set.
func NewDefaultRegistry() Registry {
	r := NewRegistry()

	for _, p := range []Provider{
		NewSMA(),
		NewEMA(),
		NewRSI(),
		NewMACD(),
		NewBollingerBands(),
		NewATR(),
		NewStochastic(),
		NewPriceSource("close"),
		NewPriceSource("open"),
		NewPriceSource("high"),
		NewPriceSource("low"),
		NewPriceSource("volume"),
	} {
		// Registration of the built-in set cannot collide.
		_ = r.Register(p)
	}

	return r
}

// Register adds a provider to the registry.
func (r *registry) Register(provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Type()
	if _, exists := r.providers[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %q already registered", name)
	}

	r.providers[name] = provider

	return nil
}

// Get retrieves a provider by indicator type.
func (r *registry) Get(indicatorType string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[indicatorType]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q not registered", indicatorType)
	}

	return provider, nil
}

// List returns all registered indicator type names.
func (r *registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	return names
}

// Remove deletes a provider from the registry.
func (r *registry) Remove(indicatorType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[indicatorType]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q not registered", indicatorType)
	}

	delete(r.providers, indicatorType)

	return nil
}
