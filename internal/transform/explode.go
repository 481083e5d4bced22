package transform

import "fmt"

// Explode expands a list-valued field into one row per element.
//
// Each element must be an object; it is flattened, the Propagate fields are copied from the
// parent row, and IndexColumn is set to the element's position in the list.
type Explode struct {
	Field       string
	Propagate   []string
	IndexColumn string
}

// Apply returns the expanded rows in list order. A missing or null field yields no rows.
func (x Explode) Apply(row map[string]any) ([]map[string]any, error) {
	raw, ok := row[x.Field]
	if !ok || raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}

	out := make([]map[string]any, 0, len(list))
	for i, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d: expected an object, got %T", i, el)
		}
		r := Flatten(obj)
		for _, p := range x.Propagate {
			r[p] = row[p]
		}
		r[x.IndexColumn] = i
		out = append(out, r)
	}
	return out, nil
}
