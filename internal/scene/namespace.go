package scene

import (
	"slices"
	"strings"

	"github.com/roach88/minq/internal/ir"
)

// Namespace scopes type queries to part of the naming hierarchy.
//
// A relative designator ("parent:child") matches any identifier whose
// namespace path contains those components as a contiguous run at any depth.
// An absolute designator (":parent:child") matches only identifiers whose
// namespace path is exactly those components; ":" alone is the root
// namespace. The zero value matches everything.
//
// A trailing "*" component ("parent:*", ":parent:*") sets Direct: only
// identifiers that live directly in the namespace match, never those in a
// nested child namespace. A relative direct designator matches at any depth
// as long as the components end the namespace path.
type Namespace struct {
	Parts    []string
	Absolute bool
	Direct   bool
}

// IsWildcard reports whether s ends in a "*" namespace component.
func IsWildcard(s string) bool {
	return s == "*" || strings.HasSuffix(s, ":*")
}

// ParseNamespace parses a designator. Empty input yields the zero Namespace.
func ParseNamespace(s string) Namespace {
	if s == "" {
		return Namespace{}
	}
	direct := IsWildcard(s)
	if direct {
		s = strings.TrimSuffix(s, "*")
	}
	abs := strings.HasPrefix(s, ":")
	s = strings.Trim(s, ":")
	var parts []string
	for _, p := range strings.Split(s, ":") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Namespace{Parts: parts, Absolute: abs, Direct: direct}
}

// IsZero reports whether the namespace filters nothing.
func (ns Namespace) IsZero() bool {
	return !ns.Absolute && len(ns.Parts) == 0
}

// String renders the designator in parseable form.
func (ns Namespace) String() string {
	s := strings.Join(ns.Parts, ":")
	if ns.Direct {
		if s != "" {
			s += ":"
		}
		s += "*"
	}
	if ns.Absolute {
		return ":" + s
	}
	return s
}

// Match reports whether id lives in the namespace.
func (ns Namespace) Match(id ir.IRNode) bool {
	if ns.IsZero() {
		return true
	}
	path := id.Namespace()
	if ns.Absolute {
		return slices.Equal(path, ns.Parts)
	}
	if ns.Direct {
		return len(path) >= len(ns.Parts) && slices.Equal(path[len(path)-len(ns.Parts):], ns.Parts)
	}
	for i := 0; i+len(ns.Parts) <= len(path); i++ {
		if slices.Equal(path[i:i+len(ns.Parts)], ns.Parts) {
			return true
		}
	}
	return false
}

// Filter keeps ids that match, preserving order.
func (ns Namespace) Filter(ids []ir.IRNode) []ir.IRNode {
	if ns.IsZero() {
		return ids
	}
	out := make([]ir.IRNode, 0, len(ids))
	for _, id := range ids {
		if ns.Match(id) {
			out = append(out, id)
		}
	}
	return out
}
