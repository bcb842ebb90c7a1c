// Package jsonvalue implements structural operations over generic decoded
// JSON trees (map[string]interface{} / []interface{} / scalars): recursive
// merging, path-based extraction with removal, and field deletion. These are
// the primitives the cache handler and the response decomposer are built on.
package jsonvalue

// Merge merges b into a and returns the result. If both values are objects
// their keys are unioned, recursing on collisions. In every other case b
// wins. When a is an object it is mutated in place; callers that need the
// original intact must copy first.
func Merge(a, b interface{}) interface{} {
	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if !aok || !bok {
		return b
	}
	for k, v := range bm {
		if existing, ok := am[k]; ok {
			am[k] = Merge(existing, v)
		} else {
			am[k] = v
		}
	}
	return am
}

// ExtractMut removes and returns the value at path inside an object tree.
// The value comes back bare, not wrapped in its path. Returns false if any
// prefix of the path is missing or not an object.
func ExtractMut(v interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		inner, ok := m[path[0]]
		if !ok {
			return nil, false
		}
		delete(m, path[0])
		return inner, true
	}
	inner, ok := m[path[0]]
	if !ok {
		return nil, false
	}
	return ExtractMut(inner, path[1:])
}

// Extract returns a copy of the value at path, rebuilt as a skeleton object
// {path[0]: {path[1]: ... value}} so the result stays addressable by the
// same path. The input is not modified. Returns false if any prefix of the
// path is missing.
func Extract(v interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 {
		return Copy(v), true
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	inner, ok := m[path[0]]
	if !ok {
		return nil, false
	}
	extracted, ok := Extract(inner, path[1:])
	if !ok {
		return nil, false
	}
	return map[string]interface{}{path[0]: extracted}, true
}

// RemoveField returns v with the value at path deleted. Missing prefixes
// and non-object nodes leave v unchanged.
func RemoveField(v interface{}, path []string) interface{} {
	if len(path) == 0 {
		return v
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if len(path) == 1 {
		delete(m, path[0])
		return m
	}
	inner, ok := m[path[0]]
	if !ok {
		return m
	}
	m[path[0]] = RemoveField(inner, path[1:])
	return m
}

// Copy deep-copies a decoded JSON tree. Cache reads hand out copies so a
// request matching its query against cached values can consume them
// destructively without corrupting the shared store.
func Copy(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[k] = Copy(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, e := range v {
			s[i] = Copy(e)
		}
		return s
	default:
		return v
	}
}
