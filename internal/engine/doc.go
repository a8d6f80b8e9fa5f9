// Package engine implements the three-tier workflow composition core:
// pebbles (named units of work) compose into cements (ordered multi-step
// procedures), cements compose into constructs (top-level pipelines),
// and passes trigger constructs one-shot or on an externally managed
// schedule.
//
// Execution model:
//   - Strictly sequential and synchronous: a pass is a direct nested
//     call chain on the calling goroutine. Nothing runs in parallel.
//   - One mutable Context instance is threaded through every layer of a
//     pass and mutated in place by merging each pebble's result.
//   - Steps run by ascending numeric order, ties kept in declaration
//     order. The depends_on list is checked for presence in the context
//     only; it does not influence ordering.
//   - Errors propagate unchanged through cement -> construct -> pass.
//     No layer catches, retries or rolls back.
//
// Parameter values are a tagged union (Lit / Ref). The "$"-prefix wire
// convention is honored by ParamsFrom: a string parameter beginning
// with "$" reads the context key named by the remainder.
//
// Registries are process-wide maps guarded by RW locks. Registration is
// expected at startup but stays safe at runtime; entries are only ever
// added or overwritten, never removed.
//
// Collaborators are narrow write-only contracts: the Mirror interfaces
// and Recorder persist definitions and run history to the external
// store, the Emitter publishes fire-and-forget telemetry. The engine
// never reads state back from either.
package engine
