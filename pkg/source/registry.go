package source

import "github.com/puzpuzpuz/xsync/v4"

// Registry holds the configured source adapters keyed by name. Sources
// without a registered adapter are soft-skipped by the collection activity,
// so registration is purely additive.
type Registry struct {
	adapters *xsync.Map[string, Adapter]
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: xsync.NewMap[string, Adapter]()}
}

// Register adds (or replaces) the adapter under its own name.
func (r *Registry) Register(adapter Adapter) {
	r.adapters.Store(adapter.Name(), adapter)
}

// Get returns the adapter for a source name.
func (r *Registry) Get(name string) (Adapter, bool) {
	return r.adapters.Load(name)
}

// Names returns the registered source names.
func (r *Registry) Names() []string {
	var names []string
	r.adapters.Range(func(name string, _ Adapter) bool {
		names = append(names, name)
		return true
	})
	return names
}
