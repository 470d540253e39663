// Package codegen defines the code-generator contract and the
// process-wide backend registry (spec §6): a name -> factory map a
// driver populates at startup, so adding a target language only means
// registering one more factory.
package codegen

import (
	"sort"

	"github.com/tdenniston/bish/ir"
)

// Options carries the generation-mode flags the CLI exposes.
type Options struct {
	// Library omits the synthetic call to main (the `-l` flag).
	Library bool
}

// Generator renders a fully-lowered Module to a target-language script.
type Generator interface {
	Generate(m *ir.Module, opts Options) (string, error)
}

// Factory builds a fresh Generator instance backed by buf.
type Factory func(buf *LineOrientedBuffer) Generator

// Registry is an explicit, instance-owned name -> factory map (not
// global state): a driver constructs one, registers its known backends,
// and passes it down rather than relying on package-level registration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get returns the factory registered under name, if any.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered backend names, sorted, for `-list-backends`.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
