// Package repo provides the content-repository collaborator consumed by the
// mutation engine.
//
// Two implementations ship:
//   - SQLite: durable storage for the CLI (nodes, properties, acl tables)
//   - Memory: fast in-process tree for tests, with injectable fault hooks
//
// # Session model
//
// All tree access goes through a Session acquired from a Repository. Each
// deferred action runs against a freshly acquired session, the analogue of a
// short transaction; sessions are never shared across concurrent actions.
// Commit and Refresh mark the explicit persistence boundary used around
// metadata-node moves. Both built-in backends are write-through, so these
// are cheap, but the engine still drives them so that backends with real
// pending-change state behave correctly.
//
// # Database configuration (SQLite)
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: properties follow their node on delete and move
//
// # ACL model
//
// Privileges are named strings checked per path. Resolution walks from the
// path up to the root; the nearest explicit entry wins, and the default is
// allow. CheckPrivileges is read-only and safe to call from any number of
// concurrent sessions.
package repo
