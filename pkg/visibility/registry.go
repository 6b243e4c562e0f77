package visibility

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores operators by name. Lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	operators map[string]Operator
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		operators: make(map[string]Operator),
	}
}

// DefaultRegistry returns a registry pre-populated with the built-in
// comparison operators and the expression operator.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, op := range builtinOperators() {
		reg.MustRegister(op)
	}
	reg.MustRegister(NewExpressionOperator())
	return reg
}

// Register adds an operator by its Name(). Duplicate names return an error.
func (r *Registry) Register(op Operator) error {
	if op == nil {
		return fmt.Errorf("visibility: operator is required")
	}
	name := op.Name()
	if name == "" {
		return fmt.Errorf("visibility: operator name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operators[name]; exists {
		return fmt.Errorf("visibility: operator %q already registered", name)
	}

	r.operators[name] = op
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(op Operator) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Get retrieves an operator by name.
func (r *Registry) Get(name string) (Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operators[name]
	if !ok {
		return nil, fmt.Errorf("visibility: operator %q not found", name)
	}
	return op, nil
}

// List returns a sorted list of operator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.operators))
	for name := range r.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an operator is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.operators[name]
	return ok
}
