package resolver

import "strings"

// Lookup traverses obj along a dotted path. Traversal stops and reports false
// the moment it hits a non-map value or a missing key; it never panics.
func Lookup(obj any, path string) (any, bool) {
	if path == "" {
		return obj, obj != nil
	}

	return lookupSegments(obj, strings.Split(path, "."))
}

func lookupSegments(obj any, segments []string) (any, bool) {
	current := obj

	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}

	return current, true
}
