package engine

import (
	"context"
	"time"
)

// Observer receives step-level notifications for one run. The pass
// runner installs a store-backed observer on the context so every pebble
// invocation in the pass gets an execution-log row. Observer failures
// must never fail the run; implementations log and move on.
type Observer interface {
	StepStarted(ctx context.Context, pebble string)
	StepFinished(ctx context.Context, pebble string, result any, elapsed time.Duration, err error)
}

// Emitter is the fire-and-forget telemetry collaborator. The engine
// publishes registration and step events through it and never consumes
// a return value.
type Emitter interface {
	Publish(eventType string, data any)
}

type observerKey struct{}

// WithObserver attaches a per-run observer to the context. Passing nil
// returns ctx unchanged.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	if obs == nil {
		return ctx
	}
	return context.WithValue(ctx, observerKey{}, obs)
}

// observerFrom returns the attached observer, or a no-op one.
func observerFrom(ctx context.Context) Observer {
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok {
		return obs
	}
	return noopObserver{}
}

type noopObserver struct{}

func (noopObserver) StepStarted(context.Context, string) {}
func (noopObserver) StepFinished(context.Context, string, any, time.Duration, error) {
}
