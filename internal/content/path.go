package content

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator delimits path segments.
const Separator = "/"

// ContentNodeName is the reserved name of metadata sub-nodes.
//
// Some storage backends auto-materialize an empty stub at the destination
// when a node with this name is moved. Callers moving such nodes must detect
// and clear the stub before the real move can land at that exact path
// (see process.Relocation, step 3).
const ContentNodeName = "grove:content"

// Path is an opaque hierarchical key identifying a location in the tree.
//
// Paths are absolute, "/"-delimited, and NFC normalized on construction.
// Equality and prefix relations (IsAncestorOf) are defined over the
// normalized string form; no two live node references may alias distinct
// tree locations.
type Path string

// NewPath constructs a normalized Path from a raw string.
//
// Normalization: Unicode NFC, trailing separator stripped (except for the
// root "/" itself). NewPath does not validate existence - that is the
// repository's concern.
func NewPath(raw string) Path {
	p := norm.NFC.String(strings.TrimSpace(raw))
	for len(p) > 1 && strings.HasSuffix(p, Separator) {
		p = strings.TrimSuffix(p, Separator)
	}
	return Path(p)
}

// String returns the path as a plain string.
func (p Path) String() string {
	return string(p)
}

// IsEmpty reports whether the path is empty.
func (p Path) IsEmpty() bool {
	return p == ""
}

// Name returns the last segment of the path.
// The root path "/" has the empty name.
func (p Path) Name() string {
	s := string(p)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// Parent returns the parent path.
// The parent of a top-level path (e.g. "/content") is "/".
func (p Path) Parent() Path {
	s := string(p)
	idx := strings.LastIndex(s, Separator)
	if idx <= 0 {
		return Path(Separator)
	}
	return Path(s[:idx])
}

// Join appends a child segment to the path.
func (p Path) Join(name string) Path {
	if p == Separator {
		return Path(Separator + name)
	}
	return Path(string(p) + Separator + name)
}

// IsAncestorOf reports whether other is strictly below p in the tree.
//
// This is a segment-wise prefix check: "/content/a" is an ancestor of
// "/content/a/x" but not of "/content/ab".
func (p Path) IsAncestorOf(other Path) bool {
	if p.IsEmpty() || other.IsEmpty() {
		return false
	}
	if p == Separator {
		return other != Separator
	}
	return strings.HasPrefix(string(other), string(p)+Separator)
}

// Depth returns the number of segments below the root.
// Depth("/") == 0, Depth("/content/a") == 2.
func (p Path) Depth() int {
	if p == Separator || p.IsEmpty() {
		return 0
	}
	return strings.Count(string(p), Separator)
}

// Rewrite substitutes the literal prefix from with to, first match only.
//
// The substitution is a fixed-string replacement, not a pattern. Rewriting
// a path that does not contain from is a no-op, which makes Rewrite
// idempotent once a path has been carried over to the destination.
func (p Path) Rewrite(from, to Path) Path {
	return Path(strings.Replace(string(p), string(from), string(to), 1))
}

// IsContentNode reports whether the path names a reserved metadata sub-node.
func (p Path) IsContentNode() bool {
	return p.Name() == ContentNodeName
}
