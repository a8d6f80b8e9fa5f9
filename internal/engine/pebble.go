package engine

import (
	"context"
	"log/slog"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/mortar/internal/log"
)

// PebbleFunc is the signature every registered pebble must satisfy.
// Arguments arrive as the resolved parameter map of the invoking cement
// step; callers invoking a pebble directly pass whatever they like.
type PebbleFunc func(ctx context.Context, args map[string]any) (any, error)

// Pebble is a single named unit of work plus its metadata.
type Pebble struct {
	Name        string
	Description string
	Tags        []string
	Func        PebbleFunc
}

// PebbleMirror is the narrow slice of the external store the pebble
// registry writes through. Mirroring is best-effort: failures are
// logged, never returned to the registrant.
type PebbleMirror interface {
	UpsertPebble(ctx context.Context, name, description string, tags []string) error
}

// PebbleRegistry holds registered pebbles by name. Registration is
// expected at process start, but the registry is locked so runtime
// registration racing with lookups stays safe.
type PebbleRegistry struct {
	mu      sync.RWMutex
	pebbles map[string]Pebble

	mirror PebbleMirror
	hub    Emitter
	logger *slog.Logger
}

// NewPebbleRegistry creates an empty pebble registry. mirror and hub
// may be nil.
func NewPebbleRegistry(mirror PebbleMirror, hub Emitter) *PebbleRegistry {
	return &PebbleRegistry{
		pebbles: make(map[string]Pebble),
		mirror:  mirror,
		hub:     hub,
		logger:  log.WithComponent("pebble"),
	}
}

// Register adds a pebble to the registry, overwriting any prior entry
// with the same name (last write wins). A missing name is derived from
// the function's symbol. Returns the stored record.
func (r *PebbleRegistry) Register(ctx context.Context, p Pebble) Pebble {
	if p.Name == "" {
		p.Name = funcName(p.Func)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	r.mu.Lock()
	r.pebbles[p.Name] = p
	r.mu.Unlock()

	r.logger.Info("registered pebble", "pebble", p.Name, "tags", p.Tags)
	if r.hub != nil {
		r.hub.Publish("pebble.registered", map[string]any{"pebble": p.Name})
	}
	if r.mirror != nil {
		if err := r.mirror.UpsertPebble(ctx, p.Name, p.Description, p.Tags); err != nil {
			r.logger.Error("failed to mirror pebble to store", "pebble", p.Name, "error", err)
		}
	}
	return p
}

// Lookup retrieves a pebble by name.
func (r *PebbleRegistry) Lookup(name string) (Pebble, error) {
	r.mu.RLock()
	p, ok := r.pebbles[name]
	r.mu.RUnlock()
	if !ok {
		return Pebble{}, &NotFoundError{Kind: "pebble", Name: name}
	}
	return p, nil
}

// List returns the registered pebble names, sorted.
func (r *PebbleRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.pebbles))
	for name := range r.pebbles {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Invoke looks up a pebble and runs it with the supplied arguments,
// recording timing and notifying the per-run observer. Failures are
// wrapped in PebbleError and propagated; the engine never retries.
func (r *PebbleRegistry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	p, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	obs := observerFrom(ctx)
	obs.StepStarted(ctx, name)
	r.logger.Debug("executing pebble", "pebble", name)

	start := time.Now()
	result, err := p.Func(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		perr := &PebbleError{Name: name, Err: err}
		r.logger.Error("pebble failed", "pebble", name, "elapsed", elapsed, "error", err)
		obs.StepFinished(ctx, name, nil, elapsed, perr)
		return nil, perr
	}

	r.logger.Debug("pebble executed", "pebble", name, "elapsed", elapsed)
	obs.StepFinished(ctx, name, result, elapsed, nil)
	return result, nil
}

// funcName derives a registration name from a function symbol, e.g.
// "github.com/acme/etl.ExtractCustomers" becomes "ExtractCustomers".
func funcName(fn PebbleFunc) string {
	if fn == nil {
		return ""
	}
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	// Method values carry a -fm suffix.
	return strings.TrimSuffix(full, "-fm")
}
