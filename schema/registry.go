package schema

import (
	"slices"
	"sync"
)

// Registry holds the declared tables. Entity definitions register themselves while the host
// application initializes; the diff only reads it.
type Registry struct {
	mu     sync.RWMutex
	tables []*DeclaredTable
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a table, replacing a previously registered table of the same name.
func (r *Registry) Register(table *DeclaredTable) error {
	if err := table.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(table.Name); i >= 0 {
		r.tables[i] = table
		return nil
	}
	r.tables = append(r.tables, table)
	return nil
}

// Unregister removes the table and reports whether it was registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(name)
	if i < 0 {
		return false
	}
	r.tables = slices.Delete(r.tables, i, i+1)
	return true
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = nil
}

// Tables returns the registered tables in registration order.
func (r *Registry) Tables() []*DeclaredTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tables)
}

func (r *Registry) Table(name string) (*DeclaredTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(name); i >= 0 {
		return r.tables[i], true
	}
	return nil, false
}

func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.tables, func(t *DeclaredTable) bool { return t.Name == name })
}
