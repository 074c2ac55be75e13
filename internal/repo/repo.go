package repo

import (
	"context"

	"github.com/grovekit/grove/internal/content"
)

// Named privileges checked by CheckPrivileges.
const (
	PrivRead           = "read"
	PrivWrite          = "write"
	PrivRemoveChildren = "remove-children"
	PrivRemoveNode     = "remove-node"
	PrivAll            = "all"
)

// FolderPrivileges is the privilege set required on every container node
// before a subtree may be relocated.
var FolderPrivileges = []string{PrivRead, PrivWrite, PrivRemoveChildren, PrivRemoveNode}

// NodePrivileges is the privilege set required on every leaf item before it
// may be moved.
var NodePrivileges = []string{PrivAll}

// Session is a borrowed handle for tree access, the analogue of a short
// transaction. A session must not be shared across concurrent actions;
// acquire one per unit of work and Close it when the work is terminal.
type Session interface {
	// Exists reports whether a node lives at path.
	Exists(ctx context.Context, path content.Path) (bool, error)

	// GetNode resolves a path to its node reference.
	// Fails with a NOT_FOUND storage error if no node lives there.
	GetNode(ctx context.Context, path content.Path) (content.Node, error)

	// Children enumerates the direct children of path in stable
	// (name-ordered) order.
	Children(ctx context.Context, path content.Path) ([]content.Node, error)

	// CreateChild creates a new node under parent with the given name,
	// kind, and initial properties. Fails with a CONFLICT storage error
	// if a node already exists at that location.
	CreateChild(ctx context.Context, parent content.Path, name, kind string, props *content.PropertyMap) error

	// Move relocates the node at from, together with its entire subtree,
	// to the to path. Fails with CONFLICT if a node already exists at to.
	Move(ctx context.Context, from, to content.Path) error

	// RemoveItem deletes a single node. The node must have no children.
	RemoveItem(ctx context.Context, path content.Path) error

	// DeleteSubtree deletes the node at path and everything below it in
	// one operation.
	DeleteSubtree(ctx context.Context, path content.Path) error

	// Properties returns a copy of the node's property map.
	Properties(ctx context.Context, path content.Path) (*content.PropertyMap, error)

	// SetProperties writes the node's property map back in full.
	SetProperties(ctx context.Context, path content.Path, props *content.PropertyMap) error

	// CheckPrivileges reports whether every named privilege is granted at
	// path. Read-only and side-effect free.
	CheckPrivileges(ctx context.Context, path content.Path, privileges ...string) (bool, error)

	// Commit flushes pending changes to durable storage.
	Commit(ctx context.Context) error

	// Refresh re-reads storage state, discarding local pending changes
	// when discard is true.
	Refresh(ctx context.Context, discard bool) error

	// Close releases the session. Further use is undefined.
	Close() error
}

// Repository hands out sessions. Implementations must allow sessions to be
// acquired concurrently from multiple goroutines.
type Repository interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}
