package dispatch

import (
	"fmt"
	"sort"
	"sync"
)

// ServiceRegistry holds the values a Dispatcher shares with its modules. A
// module reads it from ModuleRuntime.Services while registering and handlers
// read it from Request.Services. Entries cannot be replaced once set.
type ServiceRegistry struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewServiceRegistry returns a registry with no entries.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{entries: make(map[string]any)}
}

// Register stores service under name. A name can be taken once.
func (r *ServiceRegistry) Register(name string, service any) error {
	switch {
	case name == "":
		return fmt.Errorf("register service: empty name")
	case service == nil:
		return fmt.Errorf("register service %s: nil value", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.entries[name]; taken {
		return fmt.Errorf("register service %s: %w", name, ErrServiceAlreadyRegistered)
	}
	r.entries[name] = service

	return nil
}

// Resolve looks up the value stored under name.
func (r *ServiceRegistry) Resolve(name string) (any, error) {
	r.mu.RLock()
	service, found := r.entries[name]
	r.mu.RUnlock()

	if !found {
		return nil, fmt.Errorf("resolve service %q: %w", name, ErrServiceNotFound)
	}

	return service, nil
}

// Names lists the registered names in lexical order.
func (r *ServiceRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)

	return names
}

// ResolveAs resolves name and asserts the value to T, as the help module does
// for ServiceCommandCatalog.
func ResolveAs[T any](registry *ServiceRegistry, name string) (T, error) {
	var typed T
	if registry == nil {
		return typed, fmt.Errorf("resolve service %q: nil registry", name)
	}

	service, err := registry.Resolve(name)
	if err != nil {
		return typed, err
	}
	typed, ok := service.(T)
	if !ok {
		return typed, fmt.Errorf("resolve service %q: unexpected type %T", name, service)
	}

	return typed, nil
}
