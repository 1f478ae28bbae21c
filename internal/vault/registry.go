package vault

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// CyclicDependencyError is returned when module dependencies form a cycle.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic module dependency: %s", strings.Join(e.Cycle, " -> "))
}

// sortFrame is one level of the iterative depth-first walk in Sorted.
type sortFrame struct {
	key  string
	next int
}

// Registry holds the data modules known to the vault. It is constructed at
// startup and injected, never global.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]DataModule
	order   []string
	logger  zerolog.Logger
}

// NewRegistry creates an empty module registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		modules: make(map[string]DataModule),
		logger:  logger.With().Str("component", "vault-registry").Logger(),
	}
}

// Register adds a module under its Key(). Registering an existing key
// replaces the previous module and logs a warning; the key keeps its
// original position.
func (r *Registry) Register(m DataModule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := m.Key()
	if _, exists := r.modules[key]; exists {
		r.logger.Warn().Str("module", key).Msg("module already registered, overwriting")
	} else {
		r.order = append(r.order, key)
	}
	r.modules[key] = m
}

// Get returns a module by key.
func (r *Registry) Get(key string) (DataModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[key]
	return m, ok
}

// All returns every registered module in registration order. The result
// carries no dependency guarantee; use Sorted for that.
func (r *Registry) All() []DataModule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]DataModule, 0, len(r.order))
	for _, key := range r.order {
		all = append(all, r.modules[key])
	}
	return all
}

// Keys returns the registered module keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Sorted returns every registered module exactly once, ordered so that each
// module comes after all of its registered dependencies. Dependencies on
// keys that are not registered are ignored.
func (r *Registry) Sorted() ([]DataModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(r.modules))
	sorted := make([]DataModule, 0, len(r.modules))

	for _, root := range r.order {
		if state[root] != unvisited {
			continue
		}

		state[root] = visiting
		stack := []sortFrame{{key: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := r.modules[top.key].Dependencies()

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				if _, ok := r.modules[dep]; !ok {
					continue
				}
				switch state[dep] {
				case visiting:
					return nil, &CyclicDependencyError{Cycle: cyclePath(stack, dep)}
				case unvisited:
					state[dep] = visiting
					stack = append(stack, sortFrame{key: dep})
				}
				continue
			}

			state[top.key] = visited
			sorted = append(sorted, r.modules[top.key])
			stack = stack[:len(stack)-1]
		}
	}

	return sorted, nil
}

// Validate reports a dependency cycle, if any. Call it once all modules
// are registered.
func (r *Registry) Validate() error {
	_, err := r.Sorted()
	return err
}

// cyclePath extracts the cycle ending at key from the DFS stack.
func cyclePath(stack []sortFrame, key string) []string {
	var path []string
	for _, f := range stack {
		if f.key == key || len(path) > 0 {
			path = append(path, f.key)
		}
	}
	return append(path, key)
}
