package engine

import "maps"

// Context is the mutable key-value environment threaded through every
// layer of one pass. The same instance is passed down through construct
// and cement execution and mutated in place; there is no per-level copy.
// A Context is not safe for concurrent use; the engine assumes at most
// one pass runs per Context instance.
type Context map[string]any

// ContextMapper lets a pebble result declare how it merges into the
// context. Results implementing it are merged key-by-key, like a plain
// map result.
type ContextMapper interface {
	ContextMap() map[string]any
}

// Merge folds a pebble result into the context. Map results (and
// ContextMapper results) are merged entry-by-entry, overwriting on key
// collision. Any other result is stored under the pebble's registered
// name.
func (c Context) Merge(pebbleName string, result any) {
	switch v := result.(type) {
	case ContextMapper:
		maps.Copy(c, v.ContextMap())
	case map[string]any:
		maps.Copy(c, v)
	case Context:
		maps.Copy(c, v)
	default:
		c[pebbleName] = result
	}
}

// Keys returns the set of keys currently in the context. Order is not
// defined.
func (c Context) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}
