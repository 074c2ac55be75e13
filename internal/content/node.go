package content

import "strings"

// Well-known node kinds. Kinds are open-ended strings; these are the ones
// the built-in processes and the SQLite repository use by default.
const (
	KindFolder        = "grove:folder"
	KindOrderedFolder = "grove:orderedfolder"
	KindHierarchy     = "grove:hierarchy"
	KindUnstructured  = "grove:unstructured"
	KindPageContent   = "grove:pagecontent"
	KindAsset         = "grove:asset"
)

// Node is a lightweight reference to a tree location: its path plus the
// kind tag used to classify it as a traversal container or terminal item.
// It carries no properties; those are read through a repository session.
type Node struct {
	Path Path
	Kind string
}

// Name returns the node's last path segment.
func (n Node) Name() string {
	return n.Path.Name()
}

// KindFilter is a case-insensitive set of node kinds parsed from a
// comma-separated list. The empty filter matches everything.
type KindFilter map[string]struct{}

// ParseKindFilter builds a filter from comma-separated kind names.
//
// An empty list or any entry containing "*" yields the unrestricted
// filter. Entries are trimmed and lower-cased; blanks are dropped.
func ParseKindFilter(list string) KindFilter {
	if list == "" || strings.Contains(list, "*") {
		return nil
	}
	f := make(KindFilter)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			f[entry] = struct{}{}
		}
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

// Matches reports whether the kind passes the filter.
// The nil (unrestricted) filter matches every kind.
func (f KindFilter) Matches(kind string) bool {
	if f == nil {
		return true
	}
	_, ok := f[strings.ToLower(kind)]
	return ok
}
