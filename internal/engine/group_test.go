package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
	"github.com/roach88/minq/internal/testutil"
)

func ints(ns ...int) []ir.IRValue {
	out := make([]ir.IRValue, len(ns))
	for i, n := range ns {
		out[i] = ir.IRInt(n)
	}
	return out
}

func TestGroupValues(t *testing.T) {
	overThree := func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		return ir.IRBool(v.(ir.IRInt) > 3), nil
	}

	table, err := GroupValues(context.Background(), ints(1, 2, 3, 4, 5, 6), overThree)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []ir.IRValue{ir.IRBool(false), ir.IRBool(true)}, table.Keys())
	low, ok := table.Get(ir.IRBool(false))
	require.True(t, ok)
	assert.Equal(t, ints(1, 2, 3), low)
	high, _ := table.Get(ir.IRBool(true))
	assert.Equal(t, ints(4, 5, 6), high)

	_, ok = table.Get(ir.IRNull{})
	assert.False(t, ok)
}

func TestGroupTable_NumericKeysUnify(t *testing.T) {
	table := NewGroupTable()
	table.Add(ir.IRInt(1), ir.IRString("a"))
	table.Add(ir.IRFloat(1), ir.IRString("b"))
	table.Add(ir.IRString("1"), ir.IRString("c"))

	assert.Equal(t, 2, table.Len())
	members, _ := table.Get(ir.IRFloat(1.0))
	assert.Equal(t, []ir.IRValue{ir.IRString("a"), ir.IRString("b")}, members)
	assert.Equal(t, ir.IRInt(1), table.Groups()[0].Key, "the first-seen key is kept")
}

func TestGroupTable_Value(t *testing.T) {
	table := NewGroupTable()
	table.Add(ir.IRString("k"), ir.IRInt(1))

	assert.Equal(t, ir.IRArray{ir.IRObject{
		"key":     ir.IRString("k"),
		"members": ir.IRArray{ir.IRInt(1)},
	}}, table.Value())
}

func TestGroupValues_NilKeyAndError(t *testing.T) {
	table, err := GroupValues(context.Background(), ints(1), func(context.Context, ir.IRValue) (ir.IRValue, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRNull{}}, table.Keys())

	_, err = GroupValues(context.Background(), ints(1, 2), ByField("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 0")
}

func TestByFieldAndIndex(t *testing.T) {
	rows := []ir.IRValue{
		ir.IRRow{Index: ir.IRNode("a"), Names: []string{"kind", "n"}, Values: []ir.IRValue{ir.IRString("cam"), ir.IRInt(1)}},
		ir.IRRow{Index: ir.IRNode("b"), Names: []string{"kind", "n"}, Values: []ir.IRValue{ir.IRString("mesh"), ir.IRInt(1)}},
		ir.IRRow{Index: ir.IRNode("c"), Names: []string{"kind", "n"}, Values: []ir.IRValue{ir.IRString("cam"), ir.IRInt(2)}},
	}

	byKind, err := GroupValues(context.Background(), rows, ByField("kind"))
	require.NoError(t, err)
	assert.Equal(t, []ir.IRValue{ir.IRString("cam"), ir.IRString("mesh")}, byKind.Keys())

	byN, err := GroupValues(context.Background(), rows, ByIndex(1))
	require.NoError(t, err)
	members, _ := byN.Get(ir.IRInt(1))
	assert.Equal(t, rows[:2], members)

	_, err = GroupValues(context.Background(), rows, ByIndex(5))
	assert.Error(t, err)
}

func TestEngine_GroupByAttr(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	plan := cameras()

	vals := f.resolve(t, plan)
	classify, err := f.engine.ByAttr(context.Background(), vals, "orthographic")
	require.NoError(t, err)
	table, err := GroupValues(context.Background(), vals, classify)
	require.NoError(t, err)

	ortho, _ := table.Get(ir.IRBool(true))
	assert.Equal(t, ir.Nodes("topShape", "frontShape", "sideShape"), ortho)
	persp, _ := table.Get(ir.IRBool(false))
	assert.Equal(t, ir.Nodes("perspShape"), persp)
	assert.Equal(t, 1, f.backend.Calls(scene.OpReadAttributeBulk))
}

func TestEngine_GroupBy(t *testing.T) {
	f := setupEngine(t, testutil.DemoScene())
	byType := func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		return ir.IRString(v.(ir.IRNode).Namespace()[0]), nil
	}

	table, err := f.engine.GroupBy(context.Background(), queryir.TypeQuery{Types: queryir.Types("joint")}, byType)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = f.engine.GroupBy(context.Background(), queryir.TypeQuery{Types: queryir.Types("gizmo")}, byType)
	assert.ErrorIs(t, err, scene.ErrUnknownType)
}
