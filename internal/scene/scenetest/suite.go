// Package scenetest is a conformance suite every scene.Backend must pass.
package scenetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
	"github.com/roach88/minq/internal/testutil"
)

// BackendTester builds a fresh live backend holding s for a single test.
type BackendTester interface {
	New(t *testing.T, s *ir.Scene) scene.LiveBackend
}

// BackendTesterFunc adapts a function to BackendTester.
type BackendTesterFunc func(t *testing.T, s *ir.Scene) scene.LiveBackend

func (f BackendTesterFunc) New(t *testing.T, s *ir.Scene) scene.LiveBackend { return f(t, s) }

// All runs every conformance test against tester.
func All(t *testing.T, tester BackendTester) {
	t.Run("QueryByType", func(t *testing.T) { QueryByTypeTest(t, tester) })
	t.Run("QueryByNamespace", func(t *testing.T) { QueryByNamespaceTest(t, tester) })
	t.Run("UnknownType", func(t *testing.T) { UnknownTypeTest(t, tester) })
	t.Run("Relationships", func(t *testing.T) { RelationshipsTest(t, tester) })
	t.Run("RelationshipConcatenation", func(t *testing.T) { RelationshipConcatenationTest(t, tester) })
	t.Run("RelationshipUnknownNode", func(t *testing.T) { RelationshipUnknownNodeTest(t, tester) })
	t.Run("Attributes", func(t *testing.T) { AttributesTest(t, tester) })
	t.Run("NodeTypes", func(t *testing.T) { NodeTypesTest(t, tester) })
	t.Run("Mutations", func(t *testing.T) { MutationsTest(t, tester) })
	t.Run("CustomTypes", func(t *testing.T) { CustomTypesTest(t, tester) })
}

func nodes(names ...string) []ir.IRNode {
	out := make([]ir.IRNode, len(names))
	for i, n := range names {
		out[i] = ir.IRNode(n)
	}
	return out
}

func QueryByTypeTest(t *testing.T, tester BackendTester) {
	ctx := context.Background()
	b := tester.New(t, testutil.DemoScene())

	cams, err := b.QueryByType(ctx, []string{"camera"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Equal(t, nodes("perspShape", "topShape", "frontShape", "sideShape"), cams)

	xforms, err := b.QueryByType(ctx, []string{"transform"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Equal(t, nodes(
		"persp", "top", "front", "side",
		"chars:hero", "chars:hero:body",
		"chars:hero:root_jnt", "chars:hero:hip_jnt", "chars:hero:knee_jnt",
		"pCube1", "emptyGroup", "props:lamp",
	), xforms, "derived types are included, in declaration order")

	mixed, err := b.QueryByType(ctx, []string{"mesh", "light"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Equal(t, nodes("chars:hero:bodyShape", "pCubeShape1", "props:lamp:lampShape"), mixed)

	all, err := b.QueryByType(ctx, nil, scene.Namespace{})
	require.NoError(t, err)
	assert.Len(t, all, len(testutil.DemoScene().Nodes))
	assert.Equal(t, ir.IRNode("persp"), all[0])

	none, err := b.QueryByType(ctx, []string{"spotLight"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func QueryByNamespaceTest(t *testing.T, tester BackendTester) {
	ctx := context.Background()
	b := tester.New(t, testutil.NewScene().
		Node("a:b:mesh1", "mesh", "").
		Node("b:mesh2", "mesh", "").
		Node("x:a:b:mesh3", "mesh", "").
		Node("a:b:c:mesh4", "mesh", "").
		Node("mesh5", "mesh", "").
		Build())

	rel, err := b.QueryByType(ctx, []string{"mesh"}, scene.ParseNamespace("a:b"))
	require.NoError(t, err)
	assert.Equal(t, nodes("a:b:mesh1", "x:a:b:mesh3", "a:b:c:mesh4"), rel)

	abs, err := b.QueryByType(ctx, []string{"mesh"}, scene.ParseNamespace(":a:b"))
	require.NoError(t, err)
	assert.Equal(t, nodes("a:b:mesh1"), abs)

	root, err := b.QueryByType(ctx, nil, scene.ParseNamespace(":"))
	require.NoError(t, err)
	assert.Equal(t, nodes("mesh5"), root)

	direct, err := b.QueryByType(ctx, nil, scene.ParseNamespace(":a:b:*"))
	require.NoError(t, err)
	assert.Equal(t, nodes("a:b:mesh1"), direct, "child namespace a:b:c is excluded")

	relDirect, err := b.QueryByType(ctx, nil, scene.ParseNamespace("a:b:*"))
	require.NoError(t, err)
	assert.Equal(t, nodes("a:b:mesh1", "x:a:b:mesh3"), relDirect)
}

func UnknownTypeTest(t *testing.T, tester BackendTester) {
	b := tester.New(t, testutil.DemoScene())

	_, err := b.QueryByType(context.Background(), []string{"camera", "notAType"}, scene.Namespace{})
	require.Error(t, err)
	assert.ErrorIs(t, err, scene.ErrUnknownType)
}

func RelationshipsTest(t *testing.T, tester BackendTester) {
	ctx := context.Background()
	b := tester.New(t, testutil.DemoScene())

	tests := []struct {
		from string
		kind scene.Relationship
		want []ir.IRNode
	}{
		{"perspShape", scene.Parents, nodes("persp")},
		{"persp", scene.Parents, nodes()},
		{"persp", scene.Children, nodes("perspShape")},
		{"emptyGroup", scene.Children, nodes()},
		{"chars:hero", scene.Children, nodes("chars:hero:body", "chars:hero:root_jnt")},
		{"chars:hero", scene.AllChildren, nodes(
			"chars:hero:body", "chars:hero:bodyShape",
			"chars:hero:root_jnt", "chars:hero:hip_jnt", "chars:hero:knee_jnt",
		)},
		{"chars:hero:knee_jnt", scene.AllParents, nodes("chars:hero:hip_jnt", "chars:hero:root_jnt", "chars:hero")},
		{"chars:hero:skin", scene.Connections, nodes("chars:hero:root_jnt", "chars:hero:bodyShape")},
		{"chars:hero:bodyShape", scene.History, nodes("chars:hero:skin", "chars:hero:root_jnt")},
		{"chars:hero:root_jnt", scene.Future, nodes("chars:hero:skin", "chars:hero:bodyShape")},
		{"chars:hero:skin", scene.Future, nodes("chars:hero:bodyShape")},
		{"pCubeShape1", scene.History, nodes("polyCube1")},
		{"layer1", scene.Future, nodes("pCube1")},
		{"emptyGroup", scene.History, nodes()},
	}

	for _, tt := range tests {
		t.Run(tt.from+"/"+tt.kind.String(), func(t *testing.T) {
			got, err := b.ListRelationship(ctx, nodes(tt.from), tt.kind)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func RelationshipConcatenationTest(t *testing.T, tester BackendTester) {
	ctx := context.Background()
	b := tester.New(t, testutil.DemoScene())

	got, err := b.ListRelationship(ctx, nodes("topShape", "perspShape", "topShape"), scene.Parents)
	require.NoError(t, err)
	assert.Equal(t, nodes("top", "persp", "top"), got, "per-input results concatenate in input order")

	got, err = b.ListRelationship(ctx, nodes("persp", "emptyGroup", "top"), scene.Children)
	require.NoError(t, err)
	assert.Equal(t, nodes("perspShape", "topShape"), got)

	got, err = b.ListRelationship(ctx, nil, scene.Children)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func RelationshipUnknownNodeTest(t *testing.T, tester BackendTester) {
	b := tester.New(t, testutil.DemoScene())

	_, err := b.ListRelationship(context.Background(), nodes("persp", "ghost"), scene.Children)
	require.Error(t, err)
	assert.ErrorIs(t, err, scene.ErrNodeNotFound)
}

func AttributesTest(t *testing.T, tester BackendTester) {
	ctx := context.Background()
	b := tester.New(t, testutil.DemoScene())

	vals, err := b.ReadAttributeBulk(ctx, nodes("persp", "top", "perspShape", "ghost"), "ty")
	require.NoError(t, err)
	assert.Equal(t, map[ir.IRNode]ir.IRValue{
		"persp": ir.IRInt(10),
		"top":   ir.IRInt(100),
	}, vals, "missing attributes and unknown nodes are absent")

	focal, err := b.ReadAttributeBulk(ctx, nodes("topShape"), "focalLength")
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.IRFloat(50), focal["topShape"]))

	ortho, err := b.ReadAttributeBulk(ctx, nodes("perspShape"), "orthographic")
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(false), ortho["perspShape"])

	has, err := b.AttributeExistsBulk(ctx, nodes("perspShape", "persp", "topShape", "ghost"), "focalLength")
	require.NoError(t, err)
	assert.Equal(t, scene.NewNodeSet("perspShape", "topShape"), has)
}

func NodeTypesTest(t *testing.T, tester BackendTester) {
	b := tester.New(t, testutil.DemoScene())

	got, err := b.NodeTypeBulk(context.Background(), nodes("persp", "chars:hero:skin", "ghost"))
	require.NoError(t, err)
	assert.Equal(t, map[ir.IRNode]string{"persp": "transform", "chars:hero:skin": "skinCluster"}, got)
}

func MutationsTest(t *testing.T, tester BackendTester) {
	ctx := context.Background()
	b := tester.New(t, testutil.DemoScene())

	require.NoError(t, b.SetAttribute("persp", "ty", ir.IRInt(-5)))
	require.NoError(t, b.SetAttribute("persp", "label", ir.IRString("main")))
	vals, err := b.ReadAttributeBulk(ctx, nodes("persp"), "ty")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(-5), vals["persp"])
	vals, err = b.ReadAttributeBulk(ctx, nodes("persp"), "label")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("main"), vals["persp"])

	require.NoError(t, b.DeleteNode("chars:hero:root_jnt"))
	joints, err := b.QueryByType(ctx, []string{"joint"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Empty(t, joints, "descendants are deleted with their parent")

	hist, err := b.ListRelationship(ctx, nodes("chars:hero:bodyShape"), scene.History)
	require.NoError(t, err)
	assert.Equal(t, nodes("chars:hero:skin"), hist, "connections of deleted nodes are gone")

	assert.ErrorIs(t, b.DeleteNode("ghost"), scene.ErrNodeNotFound)
	assert.ErrorIs(t, b.SetAttribute("ghost", "tx", ir.IRInt(1)), scene.ErrNodeNotFound)
}

func CustomTypesTest(t *testing.T, tester BackendTester) {
	b := tester.New(t, testutil.NewScene().
		Type("locator", "transform").
		Node("loc1", "locator", "").
		Node("grp", "transform", "").
		Build())

	got, err := b.QueryByType(context.Background(), []string{"transform"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Equal(t, nodes("loc1", "grp"), got)

	got, err = b.QueryByType(context.Background(), []string{"locator"}, scene.Namespace{})
	require.NoError(t, err)
	assert.Equal(t, nodes("loc1"), got)
}
