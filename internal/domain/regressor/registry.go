package regressor

import (
	"fmt"
	"sort"

	"github.com/okian/spread/internal/domain/model"
)

// Registry looks regressors up by name. It is read-only after construction.
type Registry struct {
	byName map[string]Regressor
}

// NewRegistry registers regs under their names.
func NewRegistry(regs ...Regressor) *Registry {
	r := &Registry{byName: make(map[string]Regressor, len(regs))}
	for _, reg := range regs {
		r.byName[reg.Name()] = reg
	}
	return r
}

// Default returns a registry with every built-in regressor.
func Default(seed int64) *Registry {
	return NewRegistry(NewRidge(), NewOLS(), NewGBT(WithSeed(seed)), NewMean())
}

// Get returns the named regressor.
func (r *Registry) Get(name string) (Regressor, error) {
	reg, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownRegressor, name, model.ErrConfiguration)
	}
	return reg, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for k := range r.byName {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
