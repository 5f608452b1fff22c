// Package locator resolves long-lived services by name on every use, so that
// holders of a Handle never keep a stopped service alive or use it after it
// was torn down.
package locator

import (
	"errors"
	"fmt"
	"sync"
)

// ErrServiceUnavailable is returned when a service is not registered, has
// been stopped, or is not of the requested type.
var ErrServiceUnavailable = errors.New("service unavailable")

// quitter is implemented by cometbft services, a closed channel means the
// service was stopped.
type quitter interface {
	Quit() <-chan struct{}
}

type Registry struct {
	mu       sync.RWMutex
	services map[string]interface{}
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[string]interface{})}
}

// Register makes service resolvable under name, replacing any previous one.
func (r *Registry) Register(name string, service interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = service
}

// Unregister removes the service registered under name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, name)
}

// Lookup returns the live service registered under name.
func (r *Registry) Lookup(name string) (interface{}, error) {
	r.mu.RLock()
	service, ok := r.services[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, name)
	}
	if q, ok := service.(quitter); ok {
		select {
		case <-q.Quit():
			return nil, fmt.Errorf("%w: %s stopped", ErrServiceUnavailable, name)
		default:
		}
	}
	return service, nil
}

// Handle is a typed reference to a registered service. It holds no service
// itself, every Get resolves again.
type Handle[T any] struct {
	registry *Registry
	name     string
}

func NewHandle[T any](registry *Registry, name string) Handle[T] {
	return Handle[T]{registry: registry, name: name}
}

func (h Handle[T]) Name() string {
	return h.name
}

// Get resolves the service, failing with ErrServiceUnavailable if it is
// gone.
func (h Handle[T]) Get() (T, error) {
	var zero T
	if h.registry == nil {
		return zero, fmt.Errorf("%w: %s", ErrServiceUnavailable, h.name)
	}
	service, err := h.registry.Lookup(h.name)
	if err != nil {
		return zero, err
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has type %T", ErrServiceUnavailable, h.name, service)
	}
	return typed, nil
}
