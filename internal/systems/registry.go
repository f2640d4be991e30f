package systems

import (
	"fmt"
	"sort"
)

type Registry struct {
	systems map[string]func() System
}

func NewRegistry() *Registry {
	r := &Registry{
		systems: make(map[string]func() System),
	}

	r.Register("circle_cubic", CircleCubic)
	r.Register("sqrt5", Sqrt5)
	r.Register("circle_line", CircleLine)
	r.Register("flat", Flat)

	return r
}

func (r *Registry) Register(name string, fn func() System) {
	r.systems[name] = fn
}

func (r *Registry) Get(name string) (System, error) {
	fn, ok := r.systems[name]
	if !ok {
		return System{}, fmt.Errorf("unknown system: %s", name)
	}
	return fn(), nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.systems))
	for name := range r.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
