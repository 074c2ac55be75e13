// Package engine implements the grove tree-mutation engine.
//
// The engine turns a filtered breadth-first traversal of a content tree
// into a queue of independently retryable deferred actions, and composes
// multiple traversals into ordered critical steps.
//
// ARCHITECTURE:
//
// Three layers, leaves first:
//
//  1. TreeVisitor walks a tree breadth-first, firing one callback when a
//     container is entered and another for each terminal child. Callers
//     plug a container filter and either callback; four traversal intents
//     (root-only, containers-only, leaves-only, both) fall out of one
//     primitive.
//  2. Queue accepts deferred actions bound to a target path, runs them on
//     a worker pool, and tracks per-action success/failure. Every attempt
//     runs against a freshly acquired repository session; bounded
//     retry with a fixed delay downgrades transient storage errors to
//     permanent item failures.
//  3. Process executes named steps in order. A step whose build phase
//     fails outright is an unrecoverable step error: critical steps abort
//     the whole process (remaining steps are skipped and the step's
//     compensation runs best-effort), while individual item failures are
//     recorded and never halt a step.
//
// Steps are strictly sequential: step N+1 submits nothing until step N's
// queue has fully drained. The only process-wide mutable state is each
// step's failure list, which supports concurrent append from parallel
// action completions.
package engine
