package scene

import (
	"fmt"
	"slices"
)

// RootType is the base of every node type.
const RootType = "node"

// DefaultTypes is the built-in hierarchy: type name -> base type name.
var DefaultTypes = map[string]string{
	"dagNode":          RootType,
	"transform":        "dagNode",
	"joint":            "transform",
	"ikEffector":       "transform",
	"ikHandle":         "transform",
	"shape":            "dagNode",
	"mesh":             "shape",
	"nurbsCurve":       "shape",
	"camera":           "shape",
	"light":            "shape",
	"pointLight":       "light",
	"directionalLight": "light",
	"spotLight":        "light",
	"geometryFilter":   RootType,
	"skinCluster":      "geometryFilter",
	"polyCreator":      RootType,
	"polyCube":         "polyCreator",
	"polySphere":       "polyCreator",
	"displayLayer":     RootType,
	"objectSet":        RootType,
}

// Hierarchy answers "is type A a kind of type B" for a scene.
type Hierarchy struct {
	base map[string]string
}

// NewHierarchy merges extensions over DefaultTypes. Every base must be known
// and the result must be acyclic.
func NewHierarchy(ext map[string]string) (*Hierarchy, error) {
	base := make(map[string]string, len(DefaultTypes)+len(ext))
	for k, v := range DefaultTypes {
		base[k] = v
	}
	for k, v := range ext {
		if k == RootType {
			return nil, fmt.Errorf("type %q cannot be redefined", RootType)
		}
		base[k] = v
	}
	h := &Hierarchy{base: base}
	for _, t := range h.Types() {
		if t == RootType {
			continue
		}
		seen := map[string]bool{t: true}
		for cur := base[t]; cur != RootType; cur = base[cur] {
			if !h.Known(cur) {
				return nil, fmt.Errorf("type %q: unknown base type %q", t, cur)
			}
			if seen[cur] {
				return nil, fmt.Errorf("type %q: cyclic type hierarchy through %q", t, cur)
			}
			seen[cur] = true
		}
	}
	return h, nil
}

// MustHierarchy is like NewHierarchy but panics on error.
// Use only in tests or with known-good extensions.
func MustHierarchy(ext map[string]string) *Hierarchy {
	h, err := NewHierarchy(ext)
	if err != nil {
		panic(err)
	}
	return h
}

// Known reports whether name is a declared type.
func (h *Hierarchy) Known(name string) bool {
	if name == RootType {
		return true
	}
	_, ok := h.base[name]
	return ok
}

// Base returns the immediate base of t ("" for the root or unknown types).
func (h *Hierarchy) Base(t string) string {
	return h.base[t]
}

// IsA reports whether t is base or derives from it.
func (h *Hierarchy) IsA(t, base string) bool {
	for cur := t; ; cur = h.base[cur] {
		if cur == base {
			return true
		}
		if cur == RootType || cur == "" {
			return false
		}
	}
}

// Expand returns every type that derives from one of names (names included),
// sorted. Unknown names fail with ErrUnknownType.
func (h *Hierarchy) Expand(names []string) ([]string, error) {
	for _, n := range names {
		if !h.Known(n) {
			return nil, UnknownType(n)
		}
	}
	var out []string
	for _, t := range h.Types() {
		for _, n := range names {
			if h.IsA(t, n) {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

// Extensions returns the entries that differ from DefaultTypes.
func (h *Hierarchy) Extensions() map[string]string {
	out := make(map[string]string)
	for k, v := range h.base {
		if DefaultTypes[k] != v {
			out[k] = v
		}
	}
	return out
}

// Types lists every known type, sorted.
func (h *Hierarchy) Types() []string {
	out := make([]string, 0, len(h.base)+1)
	out = append(out, RootType)
	for k := range h.base {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
