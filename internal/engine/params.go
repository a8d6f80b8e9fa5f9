package engine

import "strings"

// RefPrefix is the reserved marker for context references in step
// parameters: a string value beginning with "$" reads the context key
// named by the remainder of the string.
const RefPrefix = "$"

type paramKind int

const (
	paramLiteral paramKind = iota
	paramRef
)

// Param is a step parameter value: either a literal passed through
// unchanged, or a reference resolved against the execution context at
// step time. The zero value is a literal nil.
type Param struct {
	kind    paramKind
	literal any
	key     string
}

// Lit builds a literal parameter. Use it to pass a string that begins
// with "$" without it being treated as a context reference.
func Lit(v any) Param {
	return Param{kind: paramLiteral, literal: v}
}

// Ref builds a context-reference parameter for the given key.
func Ref(key string) Param {
	return Param{kind: paramRef, key: key}
}

// IsRef reports whether the parameter is a context reference.
func (p Param) IsRef() bool { return p.kind == paramRef }

// Key returns the referenced context key, or "" for literals.
func (p Param) Key() string { return p.key }

// ParamsFrom converts a plain parameter map into Params, honoring the
// wire convention: string values beginning with "$" become context
// references, everything else is a literal.
func ParamsFrom(values map[string]any) map[string]Param {
	out := make(map[string]Param, len(values))
	for name, v := range values {
		if s, ok := v.(string); ok && strings.HasPrefix(s, RefPrefix) {
			out[name] = Ref(strings.TrimPrefix(s, RefPrefix))
			continue
		}
		out[name] = Lit(v)
	}
	return out
}

// WireValue renders the parameter in the external wire form: context
// references as "$key", literals unchanged.
func (p Param) WireValue() any {
	if p.kind == paramRef {
		return RefPrefix + p.key
	}
	return p.literal
}

// resolve produces the call argument for a parameter. References are
// looked up in the context; a missing key fails with
// MissingContextKeyError before the pebble is invoked.
func (p Param) resolve(name string, ec Context) (any, error) {
	if p.kind == paramLiteral {
		return p.literal, nil
	}
	v, ok := ec[p.key]
	if !ok {
		return nil, &MissingContextKeyError{Param: name, Key: p.key}
	}
	return v, nil
}
