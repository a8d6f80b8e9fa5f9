package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mattjoyce/mortar/internal/log"
)

// ConstructStep references a cement by name with a numeric execution
// order. The reference is weak: redefining the cement later changes what
// the construct executes.
type ConstructStep struct {
	Cement string
	Order  int
}

// Construct is a named ordered sequence of cement invocations sharing
// one execution context. Tags are free-form, for discovery only.
type Construct struct {
	Name        string
	Description string
	Steps       []ConstructStep
	Tags        []string
}

// ConstructMirror is the slice of the external store the construct
// registry writes through.
type ConstructMirror interface {
	UpsertConstruct(ctx context.Context, name, description string, steps []ConstructStep, tags []string) error
}

// ConstructRegistry holds construct definitions and executes them
// against the cement registry.
type ConstructRegistry struct {
	mu         sync.RWMutex
	constructs map[string]Construct

	cements *CementRegistry
	mirror  ConstructMirror
	hub     Emitter
	logger  *slog.Logger
}

// NewConstructRegistry creates an empty construct registry backed by
// the given cement registry. mirror and hub may be nil.
func NewConstructRegistry(cements *CementRegistry, mirror ConstructMirror, hub Emitter) *ConstructRegistry {
	return &ConstructRegistry{
		constructs: make(map[string]Construct),
		cements:    cements,
		mirror:     mirror,
		hub:        hub,
		logger:     log.WithComponent("construct"),
	}
}

// Define validates and registers a construct, overwriting any prior
// entry with the same name. Every referenced cement must resolve now;
// an unknown cement fails the definition with a ValidationError naming
// the construct. Steps are sorted by order once, stable on ties.
func (r *ConstructRegistry) Define(ctx context.Context, c Construct) error {
	for _, step := range c.Steps {
		if _, err := r.cements.Lookup(step.Cement); err != nil {
			return &ValidationError{Kind: "construct", Name: c.Name, Err: err}
		}
	}

	steps := make([]ConstructStep, len(c.Steps))
	copy(steps, c.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	c.Steps = steps
	if c.Tags == nil {
		c.Tags = []string{}
	}

	r.mu.Lock()
	r.constructs[c.Name] = c
	r.mu.Unlock()

	r.logger.Info("registered construct", "construct", c.Name, "cements", len(c.Steps), "tags", c.Tags)
	if r.hub != nil {
		r.hub.Publish("construct.registered", map[string]any{"construct": c.Name, "cements": len(c.Steps)})
	}
	if r.mirror != nil {
		if err := r.mirror.UpsertConstruct(ctx, c.Name, c.Description, c.Steps, c.Tags); err != nil {
			r.logger.Error("failed to mirror construct to store", "construct", c.Name, "error", err)
		}
	}
	return nil
}

// Lookup retrieves a construct definition by name.
func (r *ConstructRegistry) Lookup(name string) (Construct, error) {
	r.mu.RLock()
	c, ok := r.constructs[name]
	r.mu.RUnlock()
	if !ok {
		return Construct{}, &NotFoundError{Kind: "construct", Name: name}
	}
	return c, nil
}

// List returns the registered construct names, sorted.
func (r *ConstructRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.constructs))
	for name := range r.constructs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute runs a construct's cements in sorted order, threading the
// same context through each: the context returned by one cement is the
// input to the next. The first cement failure aborts the construct and
// propagates unchanged.
func (r *ConstructRegistry) Execute(ctx context.Context, name string, ec Context) (Context, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if ec == nil {
		ec = Context{}
	}

	r.logger.Info("executing construct", "construct", name)

	for _, step := range c.Steps {
		r.logger.Debug("executing cement", "construct", name, "cement", step.Cement, "order", step.Order)
		ec, err = r.cements.Execute(ctx, step.Cement, ec)
		if err != nil {
			return nil, err
		}
	}

	r.logger.Info("construct executed", "construct", name)
	return ec, nil
}
