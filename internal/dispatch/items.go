package dispatch

import "fmt"

// MapItems is an ItemSource over decoded JSON objects. A parameter missing
// from an item falls back to Defaults, which apply to the whole batch.
type MapItems struct {
	Items    []map[string]any
	Defaults map[string]any
}

func (m MapItems) Len() int {
	return len(m.Items)
}

func (m MapItems) Parameter(name string, index int) (any, error) {
	if index < 0 || index >= len(m.Items) {
		return nil, fmt.Errorf("item index %d out of range [0,%d)", index, len(m.Items))
	}
	if v, ok := m.Items[index][name]; ok && v != nil {
		return v, nil
	}
	if v, ok := m.Defaults[name]; ok && v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q is not set for item %d", ErrMissingParameter, name, index)
}
