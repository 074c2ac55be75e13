package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/repo"
)

// SetRule selects how a parsed value is applied to an existing property.
type SetRule string

const (
	// SetIfMissing sets only when the key is absent. A present but blank
	// single string counts as absent.
	SetIfMissing SetRule = "set-if-missing"

	// AlwaysSet unconditionally overwrites.
	AlwaysSet SetRule = "always-set"

	// AppendIfMissing appends unless the list already contains an equal
	// element.
	AppendIfMissing SetRule = "append-if-missing"

	// AlwaysAppend unconditionally appends, creating a one-element list
	// when the key is absent.
	AlwaysAppend SetRule = "always-append"
)

// SetRules lists all valid rules, for CLI validation and messages.
var SetRules = []SetRule{SetIfMissing, AlwaysSet, AppendIfMissing, AlwaysAppend}

// ParseSetRule converts a textual rule tag.
func ParseSetRule(s string) (SetRule, error) {
	r := SetRule(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range SetRules {
		if r == v {
			return r, nil
		}
	}
	return "", engine.NewConfigurationError("unknown set rule %q: must be one of %v", s, SetRules)
}

// Plurality distinguishes single-valued from list-valued properties.
type Plurality string

const (
	PluralitySingle Plurality = "single"
	PluralityList   Plurality = "list"
)

// ParsePlurality converts a textual plurality tag.
func ParsePlurality(s string) (Plurality, error) {
	switch Plurality(strings.ToLower(strings.TrimSpace(s))) {
	case PluralitySingle:
		return PluralitySingle, nil
	case PluralityList:
		return PluralityList, nil
	default:
		return "", engine.NewConfigurationError("unknown plurality %q: must be %q or %q", s, PluralitySingle, PluralityList)
	}
}

// Default kind filters offered by the CLI. The process itself treats empty
// filters as unrestricted.
const (
	DefaultTreeTypes = "grove:folder,grove:orderedfolder,grove:hierarchy,grove:unstructured"
	DefaultNodeTypes = "grove:unstructured,grove:pagecontent,grove:asset"
)

// PropertyMutation conditionally sets or appends one typed property value
// on every qualifying node under a base path, in a single critical step.
type PropertyMutation struct {
	BasePath content.Path

	// TreeTypes and NodeTypes are comma-separated, case-insensitive kind
	// lists. TreeTypes restricts which kinds are descended into as
	// containers, NodeTypes which kinds are eligible mutation targets.
	// Empty or containing "*" means unrestricted.
	TreeTypes string
	NodeTypes string

	// PropertyPath is relative to each matched node. It may contain path
	// separators; the final segment is the property key, leading segments
	// descend to the sub-node carrying it.
	PropertyPath string

	Type      content.ValueType
	Plurality Plurality
	Literal   string
	Rule      SetRule

	treeFilter content.KindFilter
	nodeFilter content.KindFilter
}

// Name returns the process name.
func (m *PropertyMutation) Name() string { return "property-mutation" }

// Init validates the parameter combination. Append rules require list
// plurality; the literal itself is parsed per node at execution time so a
// bad date ends up as an item failure, not a launch failure.
func (m *PropertyMutation) Init() error {
	if m.BasePath.IsEmpty() {
		return engine.NewConfigurationError("base path must not be empty")
	}
	if strings.Trim(m.PropertyPath, content.Separator) == "" {
		return engine.NewConfigurationError("property path must not be empty")
	}
	if _, err := content.ParseValueType(string(m.Type)); err != nil {
		return engine.NewConfigurationError("%v", err)
	}
	if _, err := ParsePlurality(string(m.Plurality)); err != nil {
		return err
	}
	if _, err := ParseSetRule(string(m.Rule)); err != nil {
		return err
	}
	if (m.Rule == AppendIfMissing || m.Rule == AlwaysAppend) && m.Plurality != PluralityList {
		return engine.NewConfigurationError("rule %q requires list plurality", m.Rule)
	}
	m.treeFilter = content.ParseKindFilter(m.TreeTypes)
	m.nodeFilter = content.ParseKindFilter(m.NodeTypes)
	return nil
}

// BuildProcess registers the single mutation step.
func (m *PropertyMutation) BuildProcess(ctx context.Context, p *engine.Process, s repo.Session) error {
	ok, err := s.Exists(ctx, m.BasePath)
	if err != nil {
		return err
	}
	if !ok {
		return engine.NewPreconditionError("base path %s does not exist", m.BasePath)
	}
	p.DefineCriticalStep("set-properties", m.buildSetProperties)
	return nil
}

func (m *PropertyMutation) buildSetProperties(ctx context.Context, s repo.Session, q *engine.Queue) error {
	submit := func(n content.Node, depth int) error {
		if !m.nodeFilter.Matches(n.Kind) {
			return nil
		}
		path := n.Path
		q.Submit(path, func(ctx context.Context, s repo.Session) error {
			return m.apply(ctx, s, path)
		})
		return nil
	}
	v := &engine.TreeVisitor{
		ContainerFilter:  func(n content.Node) bool { return m.treeFilter.Matches(n.Kind) },
		OnEnterContainer: submit,
		OnVisitChild:     submit,
	}
	return v.Traverse(ctx, s, m.BasePath)
}

// apply mutates one node: resolve the relative property path, parse the
// literal, apply the rule, write back only when something changed.
func (m *PropertyMutation) apply(ctx context.Context, s repo.Session, node content.Path) error {
	target, key := m.resolve(node)
	if target != node {
		ok, err := s.Exists(ctx, target)
		if err != nil {
			return err
		}
		if !ok {
			return repo.NewNotFoundError(target)
		}
	}

	val, err := m.Type.Parse(m.Literal)
	if err != nil {
		return err
	}

	props, err := s.Properties(ctx, target)
	if err != nil {
		return err
	}

	changed, err := m.applyRule(props, key, val)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.SetProperties(ctx, target, props); err != nil {
		return err
	}
	return s.Commit(ctx)
}

// resolve splits the relative property path into the sub-node carrying the
// property and the property key (its final segment).
func (m *PropertyMutation) resolve(node content.Path) (content.Path, string) {
	rel := strings.Trim(m.PropertyPath, content.Separator)
	idx := strings.LastIndex(rel, content.Separator)
	if idx < 0 {
		return node, rel
	}
	target := node
	for _, seg := range strings.Split(rel[:idx], content.Separator) {
		target = target.Join(seg)
	}
	return target, rel[idx+1:]
}

func (m *PropertyMutation) applyRule(props *content.PropertyMap, key string, val content.Value) (bool, error) {
	switch m.Rule {
	case SetIfMissing:
		if existing, ok := props.Get(key); ok && !m.isBlankSingleString(existing) {
			return false, nil
		}
		props.Set(key, m.wrap(val))
		return true, nil

	case AlwaysSet:
		props.Set(key, m.wrap(val))
		return true, nil

	case AppendIfMissing:
		list, err := listFor(props, key)
		if err != nil {
			return false, err
		}
		if list.Contains(val) {
			return false, nil
		}
		props.Set(key, list.Append(val))
		return true, nil

	case AlwaysAppend:
		list, err := listFor(props, key)
		if err != nil {
			return false, err
		}
		props.Set(key, list.Append(val))
		return true, nil

	default:
		return false, engine.NewConfigurationError("unknown set rule %q", m.Rule)
	}
}

// isBlankSingleString reports whether an existing value counts as missing
// for set-if-missing: a blank single-valued string is overwritable.
func (m *PropertyMutation) isBlankSingleString(existing content.Value) bool {
	if m.Plurality != PluralitySingle {
		return false
	}
	s, ok := existing.(content.StringValue)
	return ok && strings.TrimSpace(string(s)) == ""
}

// wrap lifts a scalar into a one-element list when the configured
// plurality is list.
func (m *PropertyMutation) wrap(v content.Value) content.Value {
	if m.Plurality == PluralityList {
		return content.ListValue{v}
	}
	return v
}

// listFor returns the existing list for key, or an empty list when the key
// is absent (append to empty creates a one-element list).
func listFor(props *content.PropertyMap, key string) (content.ListValue, error) {
	existing, ok := props.Get(key)
	if !ok {
		return content.ListValue{}, nil
	}
	list, ok := existing.(content.ListValue)
	if !ok {
		return nil, fmt.Errorf("property %q holds a %s, not a list", key, content.TypeOf(existing))
	}
	return list, nil
}
