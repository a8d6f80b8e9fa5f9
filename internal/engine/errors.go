package engine

import "fmt"

// NotFoundError reports a lookup for a name that was never registered.
type NotFoundError struct {
	Kind string // "pebble", "cement" or "construct"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ValidationError reports a definition that references an unknown
// downstream name, or a pass with an invalid kind or missing schedule.
// It is raised at definition time, never at execution time.
type ValidationError struct {
	Kind string
	Name string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// MissingContextKeyError reports a $-reference parameter whose key is
// absent from the execution context at step time.
type MissingContextKeyError struct {
	Param string
	Key   string
}

func (e *MissingContextKeyError) Error() string {
	return fmt.Sprintf("context key %q not found for parameter %q", e.Key, e.Param)
}

// UnsatisfiedDependencyError reports a declared dependency that is not
// yet present in the execution context.
type UnsatisfiedDependencyError struct {
	Pebble string
	Key    string
}

func (e *UnsatisfiedDependencyError) Error() string {
	return fmt.Sprintf("dependency %q not found in context for pebble %q", e.Key, e.Pebble)
}

// PebbleError wraps a failure raised by a pebble's own function. The
// engine never suppresses or retries pebble failures; it records them
// and propagates.
type PebbleError struct {
	Name string
	Err  error
}

func (e *PebbleError) Error() string {
	return fmt.Sprintf("pebble %q failed: %v", e.Name, e.Err)
}

func (e *PebbleError) Unwrap() error { return e.Err }
