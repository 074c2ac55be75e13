package engine

import (
	"context"
	"fmt"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/repo"
)

// NodeCallback is invoked with the node and its depth below the traversal
// root. An error aborts the traversal immediately; side effects from
// callbacks that already fired are not rolled back here - compensation, if
// any, is the caller's concern.
type NodeCallback func(node content.Node, depth int) error

// ContainerFilter decides whether a node is a container eligible for
// descent. Nodes failing the filter are visited as terminal children.
type ContainerFilter func(node content.Node) bool

// TreeVisitor walks a tree strictly breadth-first: all direct children of
// a node are enumerated before any grandchild.
//
// Both callbacks are optional. OnEnterContainer fires once when a
// container is first reached (the root included), before any of its
// children are enumerated. OnVisitChild fires once per terminal direct
// child of every container actually descended into.
//
// A filter returning false for the root stops descent but does not
// suppress the root's enter callback; a filter returning false for any
// other node classifies it as a terminal child.
//
// Visitors are transient: create one per traversal, do not share.
type TreeVisitor struct {
	// ContainerFilter classifies nodes. When nil, every node that has
	// children is a container.
	ContainerFilter ContainerFilter

	OnEnterContainer NodeCallback
	OnVisitChild     NodeCallback
}

type pendingContainer struct {
	node  content.Node
	depth int
}

// Traverse walks the tree rooted at root using the given session.
//
// The traversal is finite on any cycle-free tree; node ownership is
// tree-structured, so no visited-set is kept.
func (v *TreeVisitor) Traverse(ctx context.Context, s repo.Session, root content.Path) error {
	rootNode, err := s.GetNode(ctx, root)
	if err != nil {
		return fmt.Errorf("traverse %s: %w", root, err)
	}

	if err := v.enter(rootNode, 0); err != nil {
		return err
	}
	if !v.isContainer(ctx, s, rootNode) {
		return nil
	}

	queue := []pendingContainer{{node: rootNode, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("traverse %s: %w", root, err)
		}

		children, err := s.Children(ctx, cur.node.Path)
		if err != nil {
			return fmt.Errorf("traverse %s: %w", cur.node.Path, err)
		}

		for _, child := range children {
			if v.isContainer(ctx, s, child) {
				if err := v.enter(child, cur.depth+1); err != nil {
					return err
				}
				queue = append(queue, pendingContainer{node: child, depth: cur.depth + 1})
			} else {
				if err := v.visitChild(child, cur.depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (v *TreeVisitor) isContainer(ctx context.Context, s repo.Session, node content.Node) bool {
	if v.ContainerFilter != nil {
		return v.ContainerFilter(node)
	}
	children, err := s.Children(ctx, node.Path)
	return err == nil && len(children) > 0
}

func (v *TreeVisitor) enter(node content.Node, depth int) error {
	if v.OnEnterContainer == nil {
		return nil
	}
	return v.OnEnterContainer(node, depth)
}

func (v *TreeVisitor) visitChild(node content.Node, depth int) error {
	if v.OnVisitChild == nil {
		return nil
	}
	return v.OnVisitChild(node, depth)
}
