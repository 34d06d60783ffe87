package plugin

import (
	"errors"
	"fmt"
)

// Registry is an ordered collection of validated plugins. It is populated
// once at startup and read-only afterwards, so it needs no locking.
type Registry struct {
	order   []string
	plugins map[string]*Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*Plugin)}
}

// Register validates and adds one plugin. A descriptor failing validation
// returns a ConfigurationError and leaves the registry unchanged.
func (r *Registry) Register(p *Plugin) error {
	if p == nil {
		return errors.New("plugin: nil plugin")
	}
	if p.Name == "" {
		return &ConfigurationError{Plugin: "(unnamed)", Field: "name", Reason: "required field is empty"}
	}
	if _, exists := r.plugins[p.Name]; exists {
		return fmt.Errorf("plugin: %s already registered", p.Name)
	}
	if err := p.Descriptor.Validate(p.Name); err != nil {
		return err
	}

	r.plugins[p.Name] = p
	r.order = append(r.order, p.Name)
	return nil
}

// RegisterAll registers every plugin, continuing past individual failures
// so one broken descriptor does not take out the rest. The joined error
// reports each rejected plugin.
func (r *Registry) RegisterAll(plugins ...*Plugin) error {
	var errs []error
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []*Plugin {
	out := make([]*Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Get looks a plugin up by name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	return len(r.order)
}
