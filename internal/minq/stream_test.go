package minq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/compiler"
	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
	"github.com/roach88/minq/internal/testutil"
)

func TestStream_ChainingIsInert(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	base := s.Transforms()
	tall := base.Where(Item("ty").Gt(50)).Get(Children).Like("shape")
	_ = base.Having("tx").Union(tall)
	assert.Zero(t, s.backend.TotalCalls())

	assert.Equal(t, ir.Nodes("topShape"), execute(t, tall))
	assert.Len(t, execute(t, base), 12, "deriving streams leaves the base unchanged")
}

func TestStream_MeshTransforms(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	assert.Equal(t, ir.Nodes("chars:hero:body", "pCube1"), execute(t, s.Meshes().Get(Parents)))
}

func TestStream_SkinnedMeshes(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	got := execute(t, s.SkinClusters().Get(Future).Only(Meshes).Distinct())
	assert.Equal(t, ir.Nodes("chars:hero:bodyShape"), got)
}

func TestStream_SkeletonRoots(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	roots := s.SkinClusters().Get(History).Only(Joints).Get(AllParents).Intersection(s.Assemblies())
	assert.Equal(t, ir.Nodes("chars:hero"), execute(t, roots))
}

func TestStream_FocalLengthTable(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	parts := s.Cameras().Split(2)
	cams, lengths := parts[0], parts[1].Get(Attr("focalLength")).Get(Values)
	table, err := cams.Get(Parents).Short().Join(As("focal_length", lengths)).ToMap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ir.IRValue{ir.IRString("persp"), ir.IRString("top"), ir.IRString("front"), ir.IRString("side")}, table.Keys)
	top, ok := table.Get(ir.IRString("top"))
	require.True(t, ok)
	assert.Equal(t, ir.IRFloat(50), top)
	assert.Equal(t, 1, s.backend.Calls(scene.OpQueryByType), "both handles read one camera query")
}

func TestStream_AboveAndBelow(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())
	ctx := context.Background()

	above := s.Transforms().Where(Item("ty").Gt(0))
	below := s.Transforms().Where(Item("ty").Lt(0))

	overlap, err := above.Intersection(below).Any(ctx)
	require.NoError(t, err)
	assert.False(t, overlap)

	assert.Equal(t, ir.Nodes(
		"persp", "top", "chars:hero:body", "chars:hero:root_jnt", "chars:hero:hip_jnt", "chars:hero:knee_jnt", "props:lamp",
		"pCube1", "emptyGroup",
	), execute(t, above.Union(below)))
}

func ikScene() *ir.Scene {
	return testutil.NewScene().
		Node("joint1", "joint", "").
		Node("joint2", "joint", "joint1").
		Node("joint3", "joint", "joint2").
		Node("effector1", "ikEffector", "joint2").
		Node("ikHandle1", "ikHandle", "").
		Connect("joint1.message", "ikHandle1.startJoint").
		Connect("effector1.handlePath", "ikHandle1.endEffector").
		Build()
}

func TestStream_IKChainWithCache(t *testing.T) {
	s := setupSession(t, ikScene())

	h, err := s.Using("ikHandle1").Get(History).Cache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.backend.Calls(scene.OpListRelationship))

	down := h.Only(Joints).Append(AllChildren)
	up := h.Only(IkEffectors).Append(AllParents)
	assert.Equal(t, ir.Nodes("effector1", "joint2", "joint1"), execute(t, up.Intersection(down)))
	assert.Equal(t, 3, s.backend.Calls(scene.OpListRelationship), "the cached history is not re-read")
}

func TestStream_UsedToBeCubes(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	got := s.Everything().OnlyTypes("polyCreator").Like("cube").Get(Future).Only(Meshes)
	assert.Equal(t, ir.Nodes("pCubeShape1"), execute(t, got))
}

func TestStream_PerspectiveCameras(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	got := s.Cameras().WhereNot(Item("orthographic").Eq(true)).Short()
	assert.Equal(t, []ir.IRValue{ir.IRString("perspShape")}, execute(t, got))
}

func TestStream_EmptyGroups(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())
	want := ir.Nodes("chars:hero:knee_jnt", "emptyGroup")

	assert.Equal(t, want, execute(t, s.Transforms().WhereNot(Has(Children))))

	hasChildren := Truthy("has children", func(ctx context.Context, v ir.IRValue) (ir.IRValue, error) {
		has, err := s.Using(string(v.(ir.IRNode))).Get(Children).Any(ctx)
		return ir.IRBool(has), err
	})
	assert.Equal(t, want, execute(t, s.Transforms().WhereNot(hasChildren)))
}

func TestStream_NoShapeChildren(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	noShapes := Func("no shapes", func(ctx context.Context, v ir.IRValue) (bool, error) {
		n, err := s.Using(string(v.(ir.IRNode))).Get(AllChildren).Only(Shapes).Count(ctx)
		return n == 0, err
	})
	got := execute(t, s.Assemblies().Where(noShapes))
	assert.Equal(t, ir.Nodes("emptyGroup"), got)
}

func TestStream_MeshSelectedViaTypes(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())
	ctx := context.Background()

	types := s.Using("pCube1").Append(Children).Get(NodeType)
	assert.Equal(t, []ir.IRValue{ir.IRString("transform"), ir.IRString("mesh")}, execute(t, types))

	ok, err := types.Contains(ctx, ir.IRString("mesh"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Using("pCube1").Append(Children).Only(Meshes).Any(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStream_LayerContents(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	parts := s.DisplayLayers().Like("layer1").Get(Future).Only(DagNodes).Split(3)
	results, xforms, shapes := parts[0], parts[1], parts[2]
	got := results.Union(xforms.Get(AllChildren)).Union(shapes.Only(Shapes).Get(Parents))
	assert.Equal(t, ir.Nodes("pCube1", "pCubeShape1"), execute(t, got))
}

func TestStream_Namespaces(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	assert.Equal(t, ir.Nodes("chars:hero:bodyShape"), execute(t, s.Meshes().OnlyIn("hero")))
	assert.Equal(t, ir.Nodes("chars:hero:bodyShape"), execute(t, s.Meshes().OnlyIn("chars:hero")))
	assert.Equal(t, ir.Nodes("chars:hero:bodyShape"), execute(t, s.Meshes().OnlyIn(":chars:hero")))
	assert.Empty(t, execute(t, s.Meshes().OnlyIn(":hero")))
	assert.Equal(t, ir.Nodes("props:lamp"), execute(t, s.Everything().OnlyIn(":props", Transforms)))
}

func TestStream_UUIDs(t *testing.T) {
	sc, err := compiler.CompileSceneSource([]byte(`
nodes: {
	a: { type: "transform" }
	b: { type: "transform", parent: "a" }
}
`), "uuids.cue")
	require.NoError(t, err)
	s := setupSession(t, sc)

	got := execute(t, s.Using("b", "a").UUIDs())
	assert.Equal(t, []ir.IRValue{ir.IRString(ir.NodeUUID("b")), ir.IRString(ir.NodeUUID("a"))}, got)
}

func TestStream_NotMemoized(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())
	tall := s.Transforms().Where(Item("ty").Gt(50))

	assert.Equal(t, ir.Nodes("top"), execute(t, tall))
	require.NoError(t, s.store.SetAttribute("persp", "ty", ir.IRInt(75)))
	assert.Equal(t, ir.Nodes("persp", "top"), execute(t, tall))

	require.NoError(t, s.store.DeleteNode("top"))
	assert.Equal(t, ir.Nodes("persp"), execute(t, tall))
}

func TestStream_BulkAndPerElementAgree(t *testing.T) {
	bulk := setupSession(t, testutil.DemoScene())
	each := setupSession(t, testutil.DemoScene(), engine.WithBulkRewrite(false))
	query := func(s *Session) *Stream {
		return s.DagNodes().Where(And(Item("ty").Ge(0), Not(HasAttr("tz"))))
	}

	want := execute(t, query(each))
	assert.Equal(t, want, execute(t, query(bulk)))
	assert.Equal(t, 2, bulk.backend.Calls(scene.OpReadAttributeBulk)+bulk.backend.Calls(scene.OpAttributeExistsBulk))
	assert.Greater(t, each.backend.TotalCalls(), bulk.backend.TotalCalls())
}

func TestStream_Explain(t *testing.T) {
	s := setupSession(t, testutil.DemoScene())

	st := s.Cameras().Like("top").Where(Item("focalLength").Gt(40))
	assert.Equal(t, "where(focalLength > 40)\n  like(\"top\")\n    type_query [Cameras]", st.Explain())
	assert.Equal(t, "where(focalLength > 40)", st.String())
}
