package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/mortar/internal/log"
)

// PassKind distinguishes a one-shot pass from a nominally recurring one.
type PassKind string

const (
	PassFirst     PassKind = "first_pass"
	PassScheduled PassKind = "scheduled_pass"
)

// Valid reports whether the kind is one the engine knows.
func (k PassKind) Valid() bool {
	return k == PassFirst || k == PassScheduled
}

// Status is the lifecycle state of a pass or of one step's run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// LogEntry is one step's execution record as handed to the store.
type LogEntry struct {
	Pebble    string
	Construct string
	PassID    string
	Status    Status
	Result    any
	Error     string
}

// Recorder is the external store contract the pass runner depends on.
// The runner only writes: it mirrors pass creation and run history and
// never reads state back.
type Recorder interface {
	RecordPass(ctx context.Context, construct string, kind PassKind, schedule string) (string, error)
	AppendExecutionLog(ctx context.Context, entry LogEntry) (string, error)
	UpdateExecutionLog(ctx context.Context, logID string, status Status, result any, errText string) error
}

// Runner is the top-level entry point: it resolves a construct, records
// the pass, executes synchronously on the calling goroutine, and
// propagates any failure to the caller after recording it. There is no
// retry, backoff, timeout or cancellation at this layer beyond what the
// caller puts in ctx.
type Runner struct {
	constructs *ConstructRegistry
	rec        Recorder
	hub        Emitter
	logger     *slog.Logger
}

// NewRunner creates a pass runner. rec and hub may be nil; with a nil
// recorder the runner executes without persisting history.
func NewRunner(constructs *ConstructRegistry, rec Recorder, hub Emitter) *Runner {
	return &Runner{
		constructs: constructs,
		rec:        rec,
		hub:        hub,
		logger:     log.WithComponent("pass"),
	}
}

// RunOnce executes a construct immediately as a one-shot pass and
// returns the final context.
func (r *Runner) RunOnce(ctx context.Context, construct string, ec Context) (Context, error) {
	return r.run(ctx, construct, PassFirst, "", ec)
}

// RunRecurring executes a construct exactly like RunOnce and records
// the cron schedule as pass metadata. The engine performs no timer-based
// re-invocation: an external scheduler is expected to call this
// repeatedly according to the schedule.
func (r *Runner) RunRecurring(ctx context.Context, construct, schedule string, ec Context) (Context, error) {
	if schedule == "" {
		return nil, &ValidationError{
			Kind: "pass",
			Name: construct,
			Err:  errors.New("schedule is required for scheduled_pass"),
		}
	}
	return r.run(ctx, construct, PassScheduled, schedule, ec)
}

func (r *Runner) run(ctx context.Context, construct string, kind PassKind, schedule string, ec Context) (Context, error) {
	// Resolve eagerly so an unknown construct fails before anything is
	// recorded.
	if _, err := r.constructs.Lookup(construct); err != nil {
		return nil, err
	}
	if ec == nil {
		ec = Context{}
	}

	passLogger := r.logger.With("construct", construct, "kind", string(kind))

	var passID string
	if r.rec != nil {
		id, err := r.rec.RecordPass(ctx, construct, kind, schedule)
		if err != nil {
			passLogger.Error("failed to record pass", "error", err)
		} else {
			passID = id
		}
		ctx = WithObserver(ctx, &storeObserver{
			rec:       r.rec,
			passID:    passID,
			construct: construct,
			logger:    passLogger,
			open:      make(map[string]string),
		})
	}

	passLogger = passLogger.With("pass_id", passID)
	passLogger.Info("pass started")
	r.publish("pass.started", map[string]any{
		"pass_id": passID, "construct": construct, "kind": string(kind),
	})

	out, err := r.constructs.Execute(ctx, construct, ec)
	if err != nil {
		passLogger.Error("pass failed", "error", err)
		r.publish("pass.failed", map[string]any{
			"pass_id": passID, "construct": construct, "error": err.Error(),
		})
		return nil, err
	}

	passLogger.Info("pass completed")
	r.publish("pass.completed", map[string]any{
		"pass_id": passID, "construct": construct,
	})
	return out, nil
}

func (r *Runner) publish(eventType string, data any) {
	if r.hub != nil {
		r.hub.Publish(eventType, data)
	}
}

// storeObserver writes one execution-log row per pebble invocation:
// appended as running when the step starts, updated to completed or
// failed when it finishes. Store errors are logged and swallowed so
// history persistence can never fail a pass.
type storeObserver struct {
	rec       Recorder
	passID    string
	construct string
	logger    *slog.Logger

	mu   sync.Mutex
	open map[string]string // pebble name -> open log id
}

func (o *storeObserver) StepStarted(ctx context.Context, pebble string) {
	id, err := o.rec.AppendExecutionLog(ctx, LogEntry{
		Pebble:    pebble,
		Construct: o.construct,
		PassID:    o.passID,
		Status:    StatusRunning,
	})
	if err != nil {
		o.logger.Error("failed to append execution log", "pebble", pebble, "error", err)
		return
	}
	o.mu.Lock()
	o.open[pebble] = id
	o.mu.Unlock()
}

func (o *storeObserver) StepFinished(ctx context.Context, pebble string, result any, elapsed time.Duration, err error) {
	o.mu.Lock()
	id, ok := o.open[pebble]
	delete(o.open, pebble)
	o.mu.Unlock()
	if !ok {
		return
	}

	status := StatusCompleted
	errText := ""
	if err != nil {
		status = StatusFailed
		errText = err.Error()
		result = nil
	}
	if uerr := o.rec.UpdateExecutionLog(ctx, id, status, result, errText); uerr != nil {
		o.logger.Error("failed to update execution log", "pebble", pebble, "log_id", id, "error", uerr)
	}
}
