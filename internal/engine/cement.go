package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mattjoyce/mortar/internal/log"
)

// CementStep is one pebble invocation inside a cement: the target
// pebble, its parameter map, a numeric execution order, and the context
// keys that must already exist before the step runs.
type CementStep struct {
	Pebble    string
	Params    map[string]Param
	Order     int
	DependsOn []string
}

// Cement is a named ordered sequence of pebble invocations sharing one
// execution context.
type Cement struct {
	Name        string
	Description string
	Steps       []CementStep
}

// CementMirror is the slice of the external store the cement registry
// writes through.
type CementMirror interface {
	UpsertCement(ctx context.Context, name, description string, steps []CementStep) error
}

// CementRegistry holds cement definitions and executes them against the
// pebble registry.
type CementRegistry struct {
	mu      sync.RWMutex
	cements map[string]Cement

	pebbles *PebbleRegistry
	mirror  CementMirror
	hub     Emitter
	logger  *slog.Logger
}

// NewCementRegistry creates an empty cement registry backed by the
// given pebble registry. mirror and hub may be nil.
func NewCementRegistry(pebbles *PebbleRegistry, mirror CementMirror, hub Emitter) *CementRegistry {
	return &CementRegistry{
		cements: make(map[string]Cement),
		pebbles: pebbles,
		mirror:  mirror,
		hub:     hub,
		logger:  log.WithComponent("cement"),
	}
}

// Define validates and registers a cement, overwriting any prior entry
// with the same name. Every step's pebble name must resolve now; an
// unknown pebble fails the whole definition with a ValidationError
// naming the cement. Steps are sorted by order once here, stable on
// ties, so execution order is deterministic.
func (r *CementRegistry) Define(ctx context.Context, c Cement) error {
	for _, step := range c.Steps {
		if _, err := r.pebbles.Lookup(step.Pebble); err != nil {
			return &ValidationError{Kind: "cement", Name: c.Name, Err: err}
		}
	}

	steps := make([]CementStep, len(c.Steps))
	copy(steps, c.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	c.Steps = steps

	r.mu.Lock()
	r.cements[c.Name] = c
	r.mu.Unlock()

	r.logger.Info("registered cement", "cement", c.Name, "steps", len(c.Steps))
	if r.hub != nil {
		r.hub.Publish("cement.registered", map[string]any{"cement": c.Name, "steps": len(c.Steps)})
	}
	if r.mirror != nil {
		if err := r.mirror.UpsertCement(ctx, c.Name, c.Description, c.Steps); err != nil {
			r.logger.Error("failed to mirror cement to store", "cement", c.Name, "error", err)
		}
	}
	return nil
}

// Lookup retrieves a cement definition by name.
func (r *CementRegistry) Lookup(name string) (Cement, error) {
	r.mu.RLock()
	c, ok := r.cements[name]
	r.mu.RUnlock()
	if !ok {
		return Cement{}, &NotFoundError{Kind: "cement", Name: name}
	}
	return c, nil
}

// List returns the registered cement names, sorted.
func (r *CementRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.cements))
	for name := range r.cements {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute runs a cement's steps in sorted order against ec, mutating it
// in place and returning it. For each step: resolve parameters against
// the context, verify declared dependencies are present, invoke the
// pebble, merge its result. The first failing step aborts the cement;
// earlier context entries are left as-is, there is no rollback.
func (r *CementRegistry) Execute(ctx context.Context, name string, ec Context) (Context, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if ec == nil {
		ec = Context{}
	}

	r.logger.Info("executing cement", "cement", name)

	for _, step := range c.Steps {
		args, err := resolveParams(step.Params, ec)
		if err != nil {
			return nil, err
		}

		for _, dep := range step.DependsOn {
			if _, ok := ec[dep]; !ok {
				return nil, &UnsatisfiedDependencyError{Pebble: step.Pebble, Key: dep}
			}
		}

		r.logger.Debug("executing step", "cement", name, "pebble", step.Pebble, "order", step.Order)
		result, err := r.pebbles.Invoke(ctx, step.Pebble, args)
		if err != nil {
			return nil, err
		}

		ec.Merge(step.Pebble, result)
	}

	r.logger.Info("cement executed", "cement", name)
	return ec, nil
}

// resolveParams materializes a step's parameter map against the context.
// Parameter names are resolved in sorted order so a cement with several
// unresolvable references always fails on the same one.
func resolveParams(params map[string]Param, ec Context) (map[string]any, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make(map[string]any, len(params))
	for _, name := range names {
		v, err := params[name].resolve(name, ec)
		if err != nil {
			return nil, err
		}
		args[name] = v
	}
	return args, nil
}
