package infrastructure

import (
	"fmt"
	"strings"
)

// Repository is read-only access to one configuration group. Keys are
// dotted: "<group>.<option>[.<nested>...]".
type Repository struct {
	group string
	items map[string]Value
}

// NewRepository loads group through loader once and serves every later read
// from memory. The loaded items are never mutated, so reads need no lock.
func NewRepository(loader Loader, group string) (*Repository, error) {
	items, err := loader.Load(group)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration group %q: %w", group, err)
	}
	if items == nil {
		items = map[string]Value{}
	}
	return &Repository{group: group, items: items}, nil
}

// Group returns the configuration group this repository is scoped to.
func (r *Repository) Group() string { return r.group }

// Get returns the value stored at key, or fallback verbatim when the key is
// missing or addresses another group.
func (r *Repository) Get(key string, fallback Value) Value {
	v, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	return v
}

// Has reports whether key holds a value.
func (r *Repository) Has(key string) bool {
	_, ok := r.lookup(key)
	return ok
}

// All returns a copy of the group's top-level settings.
func (r *Repository) All() map[string]Value {
	out := make(map[string]Value, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

func (r *Repository) lookup(key string) (Value, bool) {
	segments := strings.Split(key, ".")
	if len(segments) < 2 || segments[0] != r.group {
		return Absent(), false
	}

	top, ok := r.items[strings.ToLower(segments[1])]
	if !ok {
		return Absent(), false
	}

	rest := make([]string, 0, len(segments)-2)
	for _, s := range segments[2:] {
		rest = append(rest, strings.ToLower(s))
	}
	v := top.Lookup(rest...)
	if v.IsAbsent() {
		return Absent(), false
	}
	return v, true
}
