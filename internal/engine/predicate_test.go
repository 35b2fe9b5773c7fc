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

func abcScene() *ir.Scene {
	return testutil.NewScene().
		Node("A", "transform", "", "tx", 10).
		Node("B", "transform", "", "tx", 100).
		Node("C", "transform", "").
		Build()
}

func TestWhere_CompareAttribute(t *testing.T) {
	f := setupEngine(t, abcScene())
	src := queryir.Source{Values: ir.Nodes("A", "B", "C")}

	got := f.resolve(t, queryir.Where{Input: src, Pred: queryir.Compare{Attr: "tx", Op: queryir.Gt, Value: ir.IRInt(50)}})
	assert.Equal(t, ir.Nodes("B"), got)
}

func TestWhere_Negate(t *testing.T) {
	f := setupEngine(t, abcScene())
	src := queryir.Source{Values: ir.Nodes("A", "B", "C")}

	got := f.resolve(t, queryir.Where{Input: src, Pred: queryir.Compare{Attr: "tx", Op: queryir.Gt, Value: ir.IRInt(50)}, Negate: true})
	assert.Equal(t, ir.Nodes("A", "C"), got, "a missing attribute fails the test, so negation keeps it")
}

func TestWhere_Operators(t *testing.T) {
	f := setupEngine(t, abcScene())
	src := queryir.Source{Values: ir.Nodes("A", "B", "C")}

	testCases := []struct {
		op    queryir.CompareOp
		value ir.IRValue
		want  []ir.IRValue
	}{
		{queryir.Eq, ir.IRInt(10), ir.Nodes("A")},
		{queryir.Eq, ir.IRFloat(10), ir.Nodes("A")},
		{queryir.Ne, ir.IRInt(10), ir.Nodes("B")},
		{queryir.Lt, ir.IRInt(100), ir.Nodes("A")},
		{queryir.Le, ir.IRInt(100), ir.Nodes("A", "B")},
		{queryir.Ge, ir.IRFloat(10.5), ir.Nodes("B")},
		{queryir.Gt, ir.IRString("5"), []ir.IRValue{}},
	}
	for _, tc := range testCases {
		t.Run(tc.op.String()+" "+ir.Format(tc.value), func(t *testing.T) {
			got := f.resolve(t, queryir.Where{Input: src, Pred: queryir.Compare{Attr: "tx", Op: tc.op, Value: tc.value}})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWhere_BulkIssuesOneRead(t *testing.T) {
	pred := queryir.Compare{Attr: "focalLength", Op: queryir.Eq, Value: ir.IRInt(35)}
	want := ir.Nodes("perspShape", "frontShape", "sideShape")

	bulk := setupEngine(t, testutil.DemoScene())
	assert.Equal(t, want, bulk.resolve(t, queryir.Where{Input: cameras(), Pred: pred}))
	assert.Equal(t, 1, bulk.backend.Calls(scene.OpReadAttributeBulk))

	each := setupEngine(t, testutil.DemoScene(), WithBulkRewrite(false))
	assert.Equal(t, want, each.resolve(t, queryir.Where{Input: cameras(), Pred: pred}))
	assert.Equal(t, 4, each.backend.Calls(scene.OpReadAttributeBulk))
}

func TestWhere_BulkDeduplicatesCandidates(t *testing.T) {
	f := setupEngine(t, abcScene())
	src := queryir.Source{Values: ir.Nodes("B", "A", "B", "B")}

	got := f.resolve(t, queryir.Where{Input: src, Pred: queryir.Compare{Attr: "tx", Op: queryir.Gt, Value: ir.IRInt(50)}})
	assert.Equal(t, ir.Nodes("B", "B", "B"), got)
	assert.Equal(t, 2, f.backend.IDs(scene.OpReadAttributeBulk))
}

func TestWhere_AndNarrowsCandidates(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene(), WithBulkRewrite(false))
	pred := queryir.And{Preds: []queryir.Predicate{
		queryir.Compare{Attr: "orthographic", Op: queryir.Eq, Value: ir.IRBool(true)},
		queryir.Compare{Attr: "focalLength", Op: queryir.Gt, Value: ir.IRInt(40)},
	}}

	got := f.resolve(t, queryir.Where{Input: cameras(), Pred: pred})
	assert.Equal(t, ir.Nodes("topShape"), got)
	assert.Equal(t, 4+3, f.backend.Calls(scene.OpReadAttributeBulk), "the second leaf only reads the survivors")
}

func TestWhere_HasAttrAndNot(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	src := queryir.Source{Values: ir.Nodes("persp", "chars:hero:skin", "layer1")}

	got := f.resolve(t, queryir.Where{Input: src, Pred: queryir.Not{Pred: queryir.HasAttr{Attr: "ty"}}})
	assert.Equal(t, ir.Nodes("chars:hero:skin", "layer1"), got)
	assert.Equal(t, 1, f.backend.Calls(scene.OpAttributeExistsBulk))
}

func TestWhere_HasRelationship(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	src := queryir.TypeQuery{Types: queryir.Types("transform")}

	got := f.resolve(t, queryir.Where{Input: src, Pred: queryir.HasRelationship{Kind: scene.Children}, Negate: true})
	assert.Equal(t, ir.Nodes("chars:hero:knee_jnt", "emptyGroup"), got)
}

func TestWhere_Func(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	short := queryir.Func{Label: "short", Fn: func(_ context.Context, v ir.IRValue) (bool, error) {
		return len(ir.Text(v)) <= 4, nil
	}}

	got := f.resolve(t, queryir.Where{Input: queryir.TypeQuery{Types: queryir.Types("transform")}, Pred: short})
	assert.Equal(t, ir.Nodes("top", "side"), got)
	assert.Zero(t, f.backend.Calls(scene.OpReadAttributeBulk))
}

func TestWhere_FuncError(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	boom := errors.New("boom")
	pred := queryir.Func{Label: "boom", Fn: func(context.Context, ir.IRValue) (bool, error) { return false, boom }}

	_, err := f.engine.Resolve(context.Background(), queryir.Where{Input: cameras(), Pred: pred})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, queryir.StageFilter, se.Stage)
	assert.Equal(t, "where(func(boom))", se.Op)
}

func TestWhere_FuncSubQueryErrorBelongsToWhere(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	// The callable resolves its own query, which fails in a get stage.
	hasKids := queryir.Func{Label: "has_kids", Fn: func(ctx context.Context, v ir.IRValue) (bool, error) {
		kids, err := f.engine.Resolve(ctx, queryir.Get{
			Input:     queryir.Source{Values: ir.Nodes("ghost")},
			Transform: queryir.Related{Kind: scene.Children},
		})
		return len(kids) > 0, err
	}}

	_, err := f.engine.Resolve(context.Background(), queryir.Where{Input: cameras(), Pred: hasKids})
	require.Error(t, err)
	assert.ErrorIs(t, err, scene.ErrNodeNotFound)

	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, queryir.StageFilter, se.Stage)
	assert.Equal(t, "where(func(has_kids))", se.Op)

	// The failing sub-query stays reachable underneath.
	inner, ok := AsStageError(se.Err)
	require.True(t, ok)
	assert.Equal(t, queryir.StageTransform, inner.Stage)
}

func TestWhere_InputErrorKeepsInputStage(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	always := queryir.Func{Label: "always", Fn: func(context.Context, ir.IRValue) (bool, error) { return true, nil }}

	_, err := f.engine.Resolve(context.Background(), queryir.Where{
		Input: queryir.Get{Input: queryir.Source{Values: ir.Nodes("ghost")}, Transform: queryir.Related{Kind: scene.Children}},
		Pred:  always,
	})
	se, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, queryir.StageTransform, se.Stage)
}

func TestWhere_InvalidPredicate(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())

	_, err := f.engine.Resolve(context.Background(), queryir.Where{Input: cameras(), Pred: queryir.Compare{Op: queryir.Gt, Value: ir.IRInt(1)}})
	require.Error(t, err)
	assert.Zero(t, f.backend.TotalCalls())
}

func TestCompile_Bulk(t *testing.T) {
	testCases := []struct {
		name string
		pred queryir.Predicate
		bulk bool
	}{
		{"compare", queryir.Compare{Attr: "tx", Op: queryir.Eq, Value: ir.IRInt(1)}, true},
		{"has attr", queryir.HasAttr{Attr: "tx"}, true},
		{"not compare", queryir.Not{Pred: queryir.HasAttr{Attr: "tx"}}, true},
		{"relationship", queryir.HasRelationship{Kind: scene.Parents}, false},
		{"mixed and", queryir.And{Preds: []queryir.Predicate{
			queryir.HasAttr{Attr: "tx"},
			queryir.HasRelationship{Kind: scene.Parents},
		}}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := Compile(tc.pred)
			require.NoError(t, err)
			assert.Equal(t, tc.bulk, prog.Bulk())
			assert.Equal(t, queryir.FormatPredicate(tc.pred), prog.String())
		})
	}

	_, err := Compile(nil)
	assert.Error(t, err)
}
