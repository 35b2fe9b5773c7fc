package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/ir"
)

func TestNamespaceMatch(t *testing.T) {
	tests := []struct {
		designator string
		id         string
		want       bool
	}{
		{"", "anything", true},
		{"", "a:b:c", true},
		{"chars", "chars:hero", true},
		{"chars", "level:chars:hero", true},
		{"chars", "charsX:hero", false},
		{"chars", "hero", false},
		{"parent:child", "parent:child:mesh", true},
		{"parent:child", "root:parent:child:leaf:mesh", true},
		{"parent:child", "parent:other:child:mesh", false},
		{":parent:child", "parent:child:mesh", true},
		{":parent:child", "root:parent:child:mesh", false},
		{":parent:child", "parent:child:grand:mesh", false},
		{":parent", "parent:mesh", true},
		{":", "mesh", true},
		{":", "ns:mesh", false},
		{":parent:*", "parent:mesh", true},
		{":parent:*", "parent:child:mesh", false},
		{":parent:*", "root:parent:mesh", false},
		{"parent:*", "parent:mesh", true},
		{"parent:*", "root:parent:mesh", true},
		{"parent:*", "parent:child:mesh", false},
		{"parent:child:*", "x:parent:child:mesh", true},
		{"*", "a:b:mesh", true},
	}

	for _, tt := range tests {
		t.Run(tt.designator+"~"+tt.id, func(t *testing.T) {
			ns := ParseNamespace(tt.designator)
			assert.Equal(t, tt.want, ns.Match(ir.IRNode(tt.id)))
		})
	}
}

func TestNamespaceStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "a:b", ":a:b", ":", "a:*", ":a:b:*", ":*"} {
		assert.Equal(t, s, ParseNamespace(s).String())
	}
}

func TestIsWildcard(t *testing.T) {
	assert.True(t, IsWildcard("parent:*"))
	assert.True(t, IsWildcard(":parent:*"))
	assert.True(t, IsWildcard("*"))
	assert.False(t, IsWildcard("parent"))
	assert.False(t, IsWildcard("mesh*"))
}

func TestNamespaceFilterPreservesOrder(t *testing.T) {
	ids := []ir.IRNode{"ns:c", "a", "ns:a", "ns:b"}
	assert.Equal(t, []ir.IRNode{"ns:c", "ns:a", "ns:b"}, ParseNamespace("ns").Filter(ids))
}

func TestParseRelationship(t *testing.T) {
	for _, r := range Relationships() {
		got, err := ParseRelationship(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseRelationship("allChildren")
	require.NoError(t, err)
	assert.Equal(t, AllChildren, got)

	_, err = ParseRelationship("siblings")
	assert.Error(t, err)
	assert.False(t, Relationship(99).Valid())
}

func TestHierarchyExpand(t *testing.T) {
	h := MustHierarchy(map[string]string{"locator": "transform"})

	got, err := h.Expand([]string{"transform"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ikEffector", "ikHandle", "joint", "locator", "transform"}, got)

	got, err = h.Expand([]string{"camera", "mesh"})
	require.NoError(t, err)
	assert.Equal(t, []string{"camera", "mesh"}, got)

	_, err = h.Expand([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.True(t, IsUnknownType(err))
}

func TestHierarchyIsA(t *testing.T) {
	h := MustHierarchy(nil)
	assert.True(t, h.IsA("joint", "transform"))
	assert.True(t, h.IsA("joint", "dagNode"))
	assert.True(t, h.IsA("mesh", RootType))
	assert.False(t, h.IsA("mesh", "transform"))
}

func TestHierarchyRejectsBadExtensions(t *testing.T) {
	tests := []struct {
		name string
		ext  map[string]string
	}{
		{"unknown base", map[string]string{"thing": "missing"}},
		{"cycle", map[string]string{"a": "b", "b": "a"}},
		{"root redefined", map[string]string{RootType: "transform"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHierarchy(tt.ext)
			assert.Error(t, err)
		})
	}
}

func TestHierarchyExtensions(t *testing.T) {
	h := MustHierarchy(map[string]string{"locator": "transform"})
	assert.Equal(t, map[string]string{"locator": "transform"}, h.Extensions())
}

type stubBackend struct {
	err error
}

func (s stubBackend) QueryByType(context.Context, []string, Namespace) ([]ir.IRNode, error) {
	return []ir.IRNode{"a"}, s.err
}

func (s stubBackend) ListRelationship(_ context.Context, ids []ir.IRNode, _ Relationship) ([]ir.IRNode, error) {
	return ids, s.err
}

func (s stubBackend) ReadAttributeBulk(context.Context, []ir.IRNode, string) (map[ir.IRNode]ir.IRValue, error) {
	return map[ir.IRNode]ir.IRValue{}, s.err
}

func (s stubBackend) AttributeExistsBulk(context.Context, []ir.IRNode, string) (NodeSet, error) {
	return NewNodeSet(), s.err
}

func (s stubBackend) NodeTypeBulk(context.Context, []ir.IRNode) (map[ir.IRNode]string, error) {
	return map[ir.IRNode]string{}, s.err
}

func TestInstrumentedCounts(t *testing.T) {
	ctx := context.Background()
	b := MustInstrument(stubBackend{})

	_, err := b.QueryByType(ctx, nil, Namespace{})
	require.NoError(t, err)
	_, err = b.ListRelationship(ctx, []ir.IRNode{"a", "b", "c"}, Children)
	require.NoError(t, err)
	_, err = b.ReadAttributeBulk(ctx, []ir.IRNode{"a", "b"}, "tx")
	require.NoError(t, err)
	_, err = b.ReadAttributeBulk(ctx, []ir.IRNode{"a"}, "ty")
	require.NoError(t, err)

	assert.Equal(t, 1, b.Calls(OpQueryByType))
	assert.Equal(t, 1, b.Calls(OpListRelationship))
	assert.Equal(t, 3, b.IDs(OpListRelationship))
	assert.Equal(t, 2, b.Calls(OpReadAttributeBulk))
	assert.Equal(t, 3, b.IDs(OpReadAttributeBulk))
	assert.Equal(t, 0, b.Calls(OpNodeTypeBulk))
	assert.Equal(t, 4, b.TotalCalls())
	assert.Equal(t, 2, b.Stats()[OpReadAttributeBulk])
}

func TestInstrumentedPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	b := MustInstrument(stubBackend{err: boom})

	_, err := b.NodeTypeBulk(context.Background(), []ir.IRNode{"a"})
	assert.Same(t, boom, err)
	assert.Equal(t, 1, b.Calls(OpNodeTypeBulk))
}

func TestInstrumentRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := Instrument(stubBackend{}, reg)
	require.NoError(t, err)

	_, err = Instrument(stubBackend{}, reg)
	assert.Error(t, err, "second registration of the same collectors must fail")
}

func TestNodeSet(t *testing.T) {
	s := NewNodeSet("a")
	s.Add("b")
	assert.True(t, s.Has("a"))
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has("c"))
	assert.True(t, IsNotFound(NotFound("c")))
}
