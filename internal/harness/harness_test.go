package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/querydoc"
	"github.com/roach88/minq/internal/scene"
)

const abcScene = `
nodes: {
	A: {type: "transform", attrs: {tx: 10}}
	B: {type: "transform", attrs: {tx: 100}}
	C: {type: "transform"}
	AShape: {type: "mesh", parent: "A"}
}
`

func query(name string, from querydoc.From, expect *Expect, steps ...querydoc.Step) Step {
	return Step{Query: &QueryStep{
		Document: querydoc.Document{Name: name, Pipeline: querydoc.Pipeline{From: &from, Steps: steps}},
		Expect:   expect,
	}}
}

func whereTx(op string, v any) querydoc.Step {
	return querydoc.Step{Where: &querydoc.PredicateSpec{Attr: "tx", Op: op, Value: v}}
}

func transforms() querydoc.From {
	return querydoc.From{Type: []string{"transform"}}
}

func equals(values ...any) *Expect {
	return &Expect{Equals: values}
}

func TestRun_MutationsVisibleOnBothBackends(t *testing.T) {
	for _, backend := range []string{BackendMemDB, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "edits",
				Description: "later queries see edits",
				SceneInline: abcScene,
				Backend:     backend,
				Steps: []Step{
					query("wide", transforms(), equals("B"), whereTx(">", 50)),
					{Mutate: &MutateStep{Set: &SetAttribute{Node: "A", Attr: "tx", Value: 75}}},
					query("wide", transforms(), equals("A", "B"), whereTx(">", 50)),
					{Mutate: &MutateStep{Delete: "B"}},
					query("wide", transforms(), equals("A"), whereTx(">", 50)),
				},
			}

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			require.Len(t, result.Outputs, 5)
			assert.Equal(t, "set A.tx", result.Outputs[1].Mutation)
			assert.Equal(t, "delete B", result.Outputs[3].Mutation)
			assert.Equal(t, ir.IRArray{ir.IRNode("A")}, result.Outputs[4].Value)
			assert.Equal(t, 2, result.Outputs[0].Calls, "one type query and one bulk read")
		})
	}
}

func TestRun_FailedExpectationsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "expectations that do not hold",
		SceneInline: abcScene,
		Steps: []Step{
			query("wide", transforms(), equals("A"), whereTx(">", 50)),
			query("all", transforms(), &Expect{Count: ptr(2), Contains: []any{"AShape"}}),
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: wide equals")
	assert.Contains(t, result.Errors[0], `Actual: ["B"]`)
	assert.Contains(t, result.Errors[1], "all contains")
	assert.Contains(t, result.Errors[2], "Expected: 2 elements")
}

func TestRun_QueryErrors(t *testing.T) {
	gizmos := querydoc.From{Type: []string{"gizmo"}}

	testCases := []struct {
		name   string
		expect *Expect
		pass   bool
	}{
		{"unexpected error fails", nil, false},
		{"expected error passes", &Expect{Error: "unknown node type"}, true},
		{"wrong error fails", &Expect{Error: "node not found"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "errors",
				Description: "query errors",
				SceneInline: abcScene,
				Steps:       []Step{query("gizmos", gizmos, tc.expect)},
			}
			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.Equal(t, tc.pass, result.Pass, "errors: %v", result.Errors)
			assert.Contains(t, result.Outputs[0].Error, "unknown node type")
			assert.Nil(t, result.Outputs[0].Value)
		})
	}
}

func TestRun_ExpectedErrorButSucceeded(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "error expected",
		SceneInline: abcScene,
		Steps:       []Step{query("all", transforms(), &Expect{Error: "boom"})},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "query succeeded")
}

func TestRun_Groups(t *testing.T) {
	scenario := &Scenario{
		Name:        "groups",
		Description: "group by attribute",
		SceneInline: abcScene,
		Steps: []Step{{Query: &QueryStep{
			Document: querydoc.Document{
				Name:     "by_tx",
				Pipeline: querydoc.Pipeline{From: &querydoc.From{Using: []string{"A", "B", "A"}}},
				GroupBy:  &querydoc.GroupBySpec{Attr: "tx"},
			},
			Expect: &Expect{Groups: map[string][]any{"10": {"A", "A"}, "100": {"B"}}},
		}}},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_EngineOptions(t *testing.T) {
	scenario := &Scenario{
		Name:        "per_element",
		Description: "bulk rewrite disabled",
		SceneInline: abcScene,
		Steps:       []Step{query("wide", transforms(), equals("B"), whereTx(">", 50))},
	}

	bulk, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	each, err := Run(context.Background(), scenario, WithEngineOptions(engine.WithBulkRewrite(false)))
	require.NoError(t, err)

	assert.True(t, each.Pass)
	assert.Equal(t, bulk.Outputs[0].Value, each.Outputs[0].Value)
	assert.Greater(t, each.Outputs[0].Calls, bulk.Outputs[0].Calls)
}

func TestRun_MutationFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "ghost",
		Description: "delete a missing node",
		SceneInline: abcScene,
		Steps:       []Step{{Mutate: &MutateStep{Delete: "ghost"}}},
	}
	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.ErrorIs(t, err, scene.ErrNodeNotFound)
}

func TestRun_SceneCompileError(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "bad scene",
		SceneInline: `nodes: { A: { type: "gizmo" } }`,
		Steps:       []Step{query("all", transforms(), nil)},
	}
	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile scene")
}

func TestRun_ValidationErrorsAreQueryErrors(t *testing.T) {
	bad := querydoc.Step{Like: &querydoc.LikeSpec{Pattern: "("}}
	scenario := &Scenario{
		Name:        "invalid",
		Description: "plan validation",
		SceneInline: abcScene,
		Steps:       []Step{query("bad", transforms(), &Expect{Error: "invalid pattern"}, bad)},
	}
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Zero(t, result.Outputs[0].Calls)
}

func ptr[T any](v T) *T { return &v }
