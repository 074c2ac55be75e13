package process

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/repo"
)

// Retry budgets. Folder creation contends rarely (transient sibling
// conflicts); moves of reserved metadata nodes contend often and are
// tree-order-sensitive, hence the larger budget.
const (
	folderCreateAttempts = 5
	folderCreateDelay    = 100 * time.Millisecond
	moveAttempts         = 15
	moveDelay            = 250 * time.Millisecond
)

// Mode selects how the destination path is interpreted.
type Mode string

const (
	// ModeRename treats the destination as the subtree's new full path.
	ModeRename Mode = "rename"

	// ModeMove treats the destination as the new parent; the subtree
	// keeps its last path segment.
	ModeMove Mode = "move"
)

// ParseMode converts a textual mode tag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRename, ModeMove:
		return Mode(s), nil
	default:
		return "", engine.NewConfigurationError("unknown relocation mode %q: must be %q or %q", s, ModeRename, ModeMove)
	}
}

// Relocation moves an entire subtree to a new location in four critical
// steps: validate ACLs, build the destination folder skeleton, move the
// terminal items, remove the emptied source subtree.
type Relocation struct {
	Source      content.Path
	Destination content.Path
	Mode        Mode

	// target is the fully resolved destination root, computed at Init.
	target content.Path

	mu      sync.Mutex
	created []content.Path
}

// Name returns the process name.
func (r *Relocation) Name() string { return "folder-relocation" }

// Init validates the parameter combination and resolves the target path.
func (r *Relocation) Init() error {
	if r.Source.IsEmpty() {
		return engine.NewConfigurationError("source path must not be empty")
	}
	if r.Destination.IsEmpty() {
		return engine.NewConfigurationError("destination path must not be empty")
	}
	switch r.Mode {
	case ModeRename:
		r.target = r.Destination
	case ModeMove:
		r.target = r.Destination.Join(r.Source.Name())
	default:
		return engine.NewConfigurationError("unknown relocation mode %q: must be %q or %q", string(r.Mode), ModeRename, ModeMove)
	}
	if r.target == r.Source || r.Source.IsAncestorOf(r.target) {
		return engine.NewPreconditionError("destination %s lies inside source %s", r.target, r.Source)
	}
	return nil
}

// BuildProcess checks the structural preconditions and registers the four
// steps. A precondition error here aborts the launch before step 1.
func (r *Relocation) BuildProcess(ctx context.Context, p *engine.Process, s repo.Session) error {
	if err := r.validateInputs(ctx, s); err != nil {
		return err
	}

	p.DefineStep(engine.Step{
		Name:          "validate-acls",
		Critical:      true,
		FailuresAbort: true,
		Build:         r.buildValidateACLs,
	})
	p.DefineStep(engine.Step{
		Name:       "build-target-folders",
		Critical:   true,
		Build:      r.buildTargetFolders,
		Compensate: r.removeCreatedFolders,
	})
	p.DefineStep(engine.Step{
		Name:     "move-nodes",
		Critical: true,
		Build:    r.buildMoveNodes,
	})
	p.DefineStep(engine.Step{
		Name:     "remove-source",
		Critical: true,
		Build:    r.buildRemoveSource,
	})
	return nil
}

func (r *Relocation) validateInputs(ctx context.Context, s repo.Session) error {
	ok, err := s.Exists(ctx, r.Source)
	if err != nil {
		return err
	}
	if !ok {
		return engine.NewPreconditionError("source %s does not exist", r.Source)
	}

	parent := r.target.Parent()
	ok, err = s.Exists(ctx, parent)
	if err != nil {
		return err
	}
	if !ok {
		return engine.NewPreconditionError("destination parent %s does not exist", parent)
	}
	return nil
}

// isFolderKind classifies the kinds treated as traversal containers during
// relocation. Everything else moves as a terminal item.
func isFolderKind(kind string) bool {
	switch kind {
	case content.KindFolder, content.KindOrderedFolder, content.KindHierarchy:
		return true
	default:
		return false
	}
}

func folderFilter(n content.Node) bool {
	return isFolderKind(n.Kind)
}

// buildValidateACLs submits one read-only privilege check per node under
// the source. Containers need the folder privilege set, terminal items
// full control. Any denial aborts the process before any mutation.
func (r *Relocation) buildValidateACLs(ctx context.Context, s repo.Session, q *engine.Queue) error {
	check := func(privileges []string) engine.NodeCallback {
		return func(n content.Node, depth int) error {
			path := n.Path
			q.Submit(path, func(ctx context.Context, s repo.Session) error {
				ok, err := s.CheckPrivileges(ctx, path, privileges...)
				if err != nil {
					return err
				}
				if !ok {
					return engine.NewACLDeniedError(path)
				}
				return nil
			})
			return nil
		}
	}
	v := &engine.TreeVisitor{
		ContainerFilter:  folderFilter,
		OnEnterContainer: check(repo.FolderPrivileges),
		OnVisitChild:     check(repo.NodePrivileges),
	}
	return v.Traverse(ctx, s, r.Source)
}

// buildTargetFolders mirrors every container under the source to its
// rewritten destination path as an empty folder carrying the source
// node's property map.
func (r *Relocation) buildTargetFolders(ctx context.Context, s repo.Session, q *engine.Queue) error {
	v := &engine.TreeVisitor{
		ContainerFilter: folderFilter,
		OnEnterContainer: func(n content.Node, depth int) error {
			src := n.Path
			dest := src.Rewrite(r.Source, r.target)
			kind := n.Kind
			q.SubmitWithRetry(dest, func(ctx context.Context, s repo.Session) error {
				props, err := s.Properties(ctx, src)
				if err != nil {
					return err
				}
				if err := s.CreateChild(ctx, dest.Parent(), dest.Name(), kind, props); err != nil {
					return err
				}
				r.recordCreated(dest)
				return nil
			}, folderCreateAttempts, folderCreateDelay)
			return nil
		},
	}
	return v.Traverse(ctx, s, r.Source)
}

func (r *Relocation) recordCreated(p content.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, p)
}

// removeCreatedFolders is the step-2 compensation: it deletes every folder
// the step created, deepest first so children go before their parents.
func (r *Relocation) removeCreatedFolders(ctx context.Context, s repo.Session) error {
	r.mu.Lock()
	created := slices.Clone(r.created)
	r.mu.Unlock()

	sort.Slice(created, func(i, j int) bool { return created[i].Depth() > created[j].Depth() })

	var firstErr error
	for _, p := range created {
		if err := s.DeleteSubtree(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return s.Commit(ctx)
}

// buildMoveNodes moves every terminal item under the source to its
// rewritten destination path. After step 2 the destination folder skeleton
// exists, so only terminal items remain to carry over.
func (r *Relocation) buildMoveNodes(ctx context.Context, s repo.Session, q *engine.Queue) error {
	v := &engine.TreeVisitor{
		ContainerFilter: folderFilter,
		OnVisitChild: func(n content.Node, depth int) error {
			src := n.Path
			dest := src.Rewrite(r.Source, r.target)
			q.SubmitWithRetry(src, func(ctx context.Context, s repo.Session) error {
				return moveNode(ctx, s, src, dest)
			}, moveAttempts, moveDelay)
			return nil
		},
	}
	return v.Traverse(ctx, s, r.Source)
}

// moveNode relocates one terminal item. Reserved metadata nodes need the
// stub dance: some backends auto-materialize an empty stub at the
// destination of a grove:content move, which must be removed before the
// real move can land at that exact path, followed by a refresh and commit
// to flush the combined change.
func moveNode(ctx context.Context, s repo.Session, from, to content.Path) error {
	if !from.IsContentNode() {
		return s.Move(ctx, from, to)
	}

	exists, err := s.Exists(ctx, to)
	if err != nil {
		return err
	}
	if exists {
		if err := s.RemoveItem(ctx, to); err != nil {
			return err
		}
	}
	if err := s.Move(ctx, from, to); err != nil {
		return err
	}
	if err := s.Refresh(ctx, false); err != nil {
		return err
	}
	return s.Commit(ctx)
}

// buildRemoveSource deletes the emptied source subtree in one operation.
func (r *Relocation) buildRemoveSource(ctx context.Context, s repo.Session, q *engine.Queue) error {
	q.Submit(r.Source, func(ctx context.Context, s repo.Session) error {
		if err := s.DeleteSubtree(ctx, r.Source); err != nil {
			return err
		}
		return s.Commit(ctx)
	})
	return nil
}
