package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
	"github.com/roach88/minq/internal/testutil"
)

func TestGet_Relationships(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())

	testCases := []struct {
		kind scene.Relationship
		from []string
		want []ir.IRValue
	}{
		{scene.Children, []string{"persp", "top"}, ir.Nodes("perspShape", "topShape")},
		{scene.Parents, []string{"perspShape", "persp"}, ir.Nodes("persp")},
		{scene.AllChildren, []string{"chars:hero"}, ir.Nodes(
			"chars:hero:body", "chars:hero:bodyShape", "chars:hero:root_jnt", "chars:hero:hip_jnt", "chars:hero:knee_jnt")},
		{scene.AllParents, []string{"chars:hero:knee_jnt"}, ir.Nodes("chars:hero:hip_jnt", "chars:hero:root_jnt", "chars:hero")},
		{scene.Connections, []string{"chars:hero:skin"}, ir.Nodes("chars:hero:root_jnt", "chars:hero:bodyShape")},
		{scene.History, []string{"chars:hero:bodyShape"}, ir.Nodes("chars:hero:skin", "chars:hero:root_jnt")},
		{scene.Future, []string{"polyCube1"}, ir.Nodes("pCubeShape1")},
		{scene.Children, []string{"emptyGroup"}, []ir.IRValue{}},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			got := f.resolve(t, queryir.Get{Input: queryir.Source{Values: ir.Nodes(tc.from...)}, Transform: queryir.Related{Kind: tc.kind}})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGet_RelationshipIsOneCall(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())

	got := f.resolve(t, queryir.Get{Input: queryir.TypeQuery{Types: queryir.Types("camera")}, Transform: queryir.Related{Kind: scene.Parents}})
	assert.Equal(t, ir.Nodes("persp", "top", "front", "side"), got)
	assert.Equal(t, 1, f.backend.Calls(scene.OpListRelationship))
}

func TestGet_RelationshipRejectsNonNodes(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	src := queryir.Source{Values: []ir.IRValue{ir.IRNode("persp"), ir.IRString("top")}}

	_, err := f.engine.Resolve(context.Background(), queryir.Get{Input: src, Transform: queryir.Related{Kind: scene.Children}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotNode)
	assert.Contains(t, err.Error(), "element 1")
	assert.Zero(t, f.backend.TotalCalls())
}

func TestGet_AttributeAndValues(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	nodes := queryir.Source{Values: ir.Nodes("persp", "top", "perspShape", "persp")}

	plugs := queryir.Get{Input: nodes, Transform: queryir.AttributeOf{Attr: "ty"}}
	assert.Equal(t, []ir.IRValue{
		ir.IRPlug{Node: "persp", Attr: "ty"},
		ir.IRPlug{Node: "top", Attr: "ty"},
		ir.IRPlug{Node: "perspShape", Attr: "ty"},
		ir.IRPlug{Node: "persp", Attr: "ty"},
	}, f.resolve(t, plugs))
	assert.Zero(t, f.backend.TotalCalls(), "building plugs reads nothing")

	values := queryir.Get{Input: plugs, Transform: queryir.Values{}}
	assert.Equal(t, []ir.IRValue{ir.IRInt(10), ir.IRInt(100), ir.IRNull{}, ir.IRInt(10)}, f.resolve(t, values))
	assert.Equal(t, 1, f.backend.Calls(scene.OpReadAttributeBulk))
	assert.Equal(t, 3, f.backend.IDs(scene.OpReadAttributeBulk))
}

func TestGet_ValuesMixedAttributes(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	src := queryir.Source{Values: []ir.IRValue{
		ir.IRPlug{Node: "persp", Attr: "tx"},
		ir.IRPlug{Node: "perspShape", Attr: "focalLength"},
		ir.IRPlug{Node: "side", Attr: "tx"},
	}}

	got := f.resolve(t, queryir.Get{Input: src, Transform: queryir.Values{}})
	assert.Equal(t, []ir.IRValue{ir.IRInt(28), ir.IRFloat(35), ir.IRInt(100)}, got)
	assert.Equal(t, 2, f.backend.Calls(scene.OpReadAttributeBulk), "one read per attribute name")
}

func TestGet_ValuesRejectsNodes(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())

	_, err := f.engine.Resolve(context.Background(), queryir.Get{Input: cameras(), Transform: queryir.Values{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an attribute plug")
}

func TestGet_NodeType(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	src := queryir.Source{Values: ir.Nodes("persp", "perspShape", "chars:hero:skin", "ghost")}

	got := f.resolve(t, queryir.Get{Input: src, Transform: queryir.NodeType{}})
	assert.Equal(t, []ir.IRValue{ir.IRString("transform"), ir.IRString("camera"), ir.IRString("skinCluster"), ir.IRNull{}}, got)
	assert.Equal(t, 1, f.backend.Calls(scene.OpNodeTypeBulk))
}

func TestAppend(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	src := queryir.Source{Values: ir.Nodes("persp", "top")}

	got := f.resolve(t, queryir.Append{Input: src, Transform: queryir.Related{Kind: scene.Children}})
	assert.Equal(t, ir.Nodes("persp", "top", "perspShape", "topShape"), got)
}

func TestForeach(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	short := func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		if n, ok := v.(ir.IRNode); ok {
			return ir.IRString(n.ShortName()), nil
		}
		return nil, nil
	}
	src := queryir.Source{Values: []ir.IRValue{ir.IRNode("chars:hero:body"), ir.IRInt(3)}}

	got := f.resolve(t, queryir.Foreach{Input: src, Fn: short, Label: "short"})
	assert.Equal(t, []ir.IRValue{ir.IRString("body"), ir.IRNull{}}, got)
}

func TestForeach_Error(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	boom := errors.New("boom")
	fail := func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		if v == ir.IRNode("topShape") {
			return nil, boom
		}
		return v, nil
	}

	_, err := f.engine.Resolve(context.Background(), queryir.Foreach{Input: cameras(), Fn: fail, Label: "fail"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "transform foreach(fail): element 1: boom")
}

func TestForeach_SubQueryErrorBelongsToForeach(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	parentOf := func(ctx context.Context, v ir.IRValue) (ir.IRValue, error) {
		ps, err := f.engine.Resolve(ctx, queryir.Get{
			Input:     queryir.Source{Values: []ir.IRValue{ir.IRNode("ghost")}},
			Transform: queryir.Related{Kind: scene.Parents},
		})
		return ir.IRArray(ps), err
	}

	_, err := f.engine.Resolve(context.Background(), queryir.Foreach{Input: cameras(), Fn: parentOf, Label: "parent_of"})
	require.Error(t, err)
	assert.True(t, scene.IsNotFound(err))
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, "foreach(parent_of)", se.Op)
}
