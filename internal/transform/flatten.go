package transform

import "strings"

// Flatten converts a nested object into a single-level map keyed by dotted paths.
func Flatten(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flattenInto(out, path, nested)
			continue
		}
		out[path] = v
	}
}

// Rename strips prefix from every key and replaces the remaining dots with underscores.
//
// Keys that do not carry prefix are renamed without stripping.
func Rename(row map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[ColumnName(k, prefix)] = v
	}
	return out
}

// ColumnName applies the [Rename] rule to a single path.
func ColumnName(path, prefix string) string {
	if prefix != "" {
		path = strings.TrimPrefix(path, prefix)
	}
	return strings.ReplaceAll(path, ".", "_")
}
