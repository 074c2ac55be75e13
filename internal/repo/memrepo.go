package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/grovekit/grove/internal/content"
)

// MemoryOptions configures backend quirks for the in-memory repository.
type MemoryOptions struct {
	// MaterializeContentStubs reproduces the backend quirk where moving a
	// reserved metadata node ("grove:content") auto-materializes an empty
	// stub at the destination. The first move to such a path fails with a
	// conflict and leaves the stub behind; callers must clear the stub
	// and try again. Materialization is one-shot per destination path.
	MaterializeContentStubs bool
}

// MemoryRepository is an in-process tree for tests and dry runs.
//
// Semantics match the SQLite repository; in addition it offers fault
// injection (fail the next N operations on a path) so retry behavior can
// be exercised deterministically.
type MemoryRepository struct {
	mu      sync.Mutex
	nodes   map[content.Path]*memNode
	acl     map[content.Path]map[string]bool
	stubbed map[content.Path]bool
	faults  map[faultKey]*faultState
	opts    MemoryOptions
}

type memNode struct {
	kind  string
	props *content.PropertyMap
}

type faultKey struct {
	op   string
	path content.Path
}

type faultState struct {
	remaining int
	err       error
}

// NewMemory creates an in-memory repository containing only the root node.
func NewMemory() *MemoryRepository {
	return NewMemoryWithOptions(MemoryOptions{})
}

// NewMemoryWithOptions creates an in-memory repository with quirks enabled.
func NewMemoryWithOptions(opts MemoryOptions) *MemoryRepository {
	return &MemoryRepository{
		nodes: map[content.Path]*memNode{
			"/": {kind: content.KindFolder, props: content.NewPropertyMap()},
		},
		acl:     make(map[content.Path]map[string]bool),
		stubbed: make(map[content.Path]bool),
		faults:  make(map[faultKey]*faultState),
		opts:    opts,
	}
}

// NewSession acquires a session. Memory sessions share the repository's
// lock-protected state; each is still independent for the caller.
func (r *MemoryRepository) NewSession(ctx context.Context) (Session, error) {
	return &memSession{r: r}, nil
}

// Close releases the repository. No-op for the in-memory backend.
func (r *MemoryRepository) Close() error {
	return nil
}

// Grant records an explicit privilege grant at path.
func (r *MemoryRepository) Grant(path content.Path, privileges ...string) {
	r.writeACL(path, privileges, true)
}

// Deny records an explicit privilege denial at path.
func (r *MemoryRepository) Deny(path content.Path, privileges ...string) {
	r.writeACL(path, privileges, false)
}

func (r *MemoryRepository) writeACL(path content.Path, privileges []string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.acl[path]
	if entries == nil {
		entries = make(map[string]bool)
		r.acl[path] = entries
	}
	for _, p := range privileges {
		entries[p] = allowed
	}
}

// InjectFault makes the next n invocations of op on path fail with err.
// Supported ops: "create", "move", "remove", "set-properties".
func (r *MemoryRepository) InjectFault(op string, path content.Path, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[faultKey{op: op, path: path}] = &faultState{remaining: n, err: err}
}

// MustSeed creates the node at path (parents must already exist) with the
// given kind and properties. Panics on error; test setup helper.
func (r *MemoryRepository) MustSeed(path content.Path, kind string, props *content.PropertyMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[path.Parent()]; !ok && path != "/" {
		panic(fmt.Sprintf("seed %s: parent %s missing", path, path.Parent()))
	}
	if props == nil {
		props = content.NewPropertyMap()
	}
	r.nodes[path] = &memNode{kind: kind, props: props}
}

// Snapshot returns every live path sorted, for test assertions.
func (r *MemoryRepository) Snapshot() []content.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]content.Path, 0, len(r.nodes))
	for p := range r.nodes {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

func (r *MemoryRepository) takeFault(op string, path content.Path) error {
	key := faultKey{op: op, path: path}
	if f, ok := r.faults[key]; ok && f.remaining > 0 {
		f.remaining--
		return f.err
	}
	return nil
}

// memSession implements Session against the shared in-memory tree.
type memSession struct {
	r *MemoryRepository
}

func (s *memSession) Exists(ctx context.Context, path content.Path) (bool, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	_, ok := s.r.nodes[path]
	return ok, nil
}

func (s *memSession) GetNode(ctx context.Context, path content.Path) (content.Node, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	n, ok := s.r.nodes[path]
	if !ok {
		return content.Node{}, NewNotFoundError(path)
	}
	return content.Node{Path: path, Kind: n.kind}, nil
}

func (s *memSession) Children(ctx context.Context, path content.Path) ([]content.Node, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.nodes[path]; !ok {
		return nil, NewNotFoundError(path)
	}
	var children []content.Node
	for p, n := range s.r.nodes {
		if p.Parent() == path && p != "/" {
			children = append(children, content.Node{Path: p, Kind: n.kind})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })
	return children, nil
}

func (s *memSession) CreateChild(ctx context.Context, parent content.Path, name, kind string, props *content.PropertyMap) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	path := parent.Join(name)
	if err := s.r.takeFault("create", path); err != nil {
		return err
	}
	if _, ok := s.r.nodes[parent]; !ok {
		return NewNotFoundError(parent)
	}
	if _, ok := s.r.nodes[path]; ok {
		return NewConflictError(path)
	}
	if props == nil {
		props = content.NewPropertyMap()
	}
	s.r.nodes[path] = &memNode{kind: kind, props: props.Clone()}
	return nil
}

func (s *memSession) Move(ctx context.Context, from, to content.Path) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if err := s.r.takeFault("move", from); err != nil {
		return err
	}
	if _, ok := s.r.nodes[from]; !ok {
		return NewNotFoundError(from)
	}

	// Backend quirk: the first move targeting a reserved metadata path
	// materializes an empty stub there and reports a conflict. The caller
	// is expected to clear the stub and retry.
	if s.r.opts.MaterializeContentStubs && to.IsContentNode() && !s.r.stubbed[to] {
		s.r.stubbed[to] = true
		if _, ok := s.r.nodes[to]; !ok {
			s.r.nodes[to] = &memNode{kind: content.KindUnstructured, props: content.NewPropertyMap()}
		}
		return NewConflictError(to)
	}

	if _, ok := s.r.nodes[to]; ok {
		return NewConflictError(to)
	}
	if _, ok := s.r.nodes[to.Parent()]; !ok {
		return NewNotFoundError(to.Parent())
	}

	moved := make(map[content.Path]*memNode)
	for p, n := range s.r.nodes {
		if p == from || from.IsAncestorOf(p) {
			moved[p.Rewrite(from, to)] = n
			delete(s.r.nodes, p)
		}
	}
	for p, n := range moved {
		s.r.nodes[p] = n
	}
	return nil
}

func (s *memSession) RemoveItem(ctx context.Context, path content.Path) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if err := s.r.takeFault("remove", path); err != nil {
		return err
	}
	if _, ok := s.r.nodes[path]; !ok {
		return NewNotFoundError(path)
	}
	for p := range s.r.nodes {
		if p.Parent() == path {
			return NewNotEmptyError(path)
		}
	}
	delete(s.r.nodes, path)
	return nil
}

func (s *memSession) DeleteSubtree(ctx context.Context, path content.Path) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.nodes[path]; !ok {
		return NewNotFoundError(path)
	}
	for p := range s.r.nodes {
		if p == path || path.IsAncestorOf(p) {
			delete(s.r.nodes, p)
		}
	}
	return nil
}

func (s *memSession) Properties(ctx context.Context, path content.Path) (*content.PropertyMap, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	n, ok := s.r.nodes[path]
	if !ok {
		return nil, NewNotFoundError(path)
	}
	return n.props.Clone(), nil
}

func (s *memSession) SetProperties(ctx context.Context, path content.Path, props *content.PropertyMap) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if err := s.r.takeFault("set-properties", path); err != nil {
		return err
	}
	n, ok := s.r.nodes[path]
	if !ok {
		return NewNotFoundError(path)
	}
	n.props = props.Clone()
	return nil
}

func (s *memSession) CheckPrivileges(ctx context.Context, path content.Path, privileges ...string) (bool, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, priv := range expandPrivileges(privileges) {
		if !s.resolvePrivilegeLocked(path, priv) {
			return false, nil
		}
	}
	return true, nil
}

func (s *memSession) resolvePrivilegeLocked(path content.Path, priv string) bool {
	for p := path; ; p = p.Parent() {
		if entries, ok := s.r.acl[p]; ok {
			if allowed, ok := entries[priv]; ok {
				return allowed
			}
			if allowed, ok := entries[PrivAll]; ok {
				return allowed
			}
		}
		if p == "/" || p.IsEmpty() {
			return true
		}
	}
}

func (s *memSession) Commit(ctx context.Context) error {
	return nil
}

func (s *memSession) Refresh(ctx context.Context, discard bool) error {
	return nil
}

func (s *memSession) Close() error {
	return nil
}
