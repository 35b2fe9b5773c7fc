package testutil

import (
	"fmt"
	"strings"

	"github.com/roach88/minq/internal/ir"
)

// SceneBuilder assembles ir.Scene fixtures in declaration order.
//
// UUIDs are derived with ir.NodeUUID, matching what the CUE compiler produces,
// so a builder scene and a compiled scene with the same nodes hash equal.
type SceneBuilder struct {
	scene ir.Scene
}

// NewScene starts an empty scene.
func NewScene() *SceneBuilder {
	return &SceneBuilder{scene: ir.Scene{Types: map[string]string{}}}
}

// Type declares a custom type deriving from base.
func (b *SceneBuilder) Type(name, base string) *SceneBuilder {
	b.scene.Types[name] = base
	return b
}

// Node appends a node. attrs alternates attribute names and Go values, e.g.
// Node("persp", "transform", "", "ty", 10, "visibility", true).
func (b *SceneBuilder) Node(name, typ, parent string, attrs ...any) *SceneBuilder {
	if len(attrs)%2 != 0 {
		panic(fmt.Sprintf("node %q: odd attribute list", name))
	}
	values := make(map[string]ir.IRValue, len(attrs)/2)
	for i := 0; i < len(attrs); i += 2 {
		key := attrs[i].(string)
		v, err := ir.FromAny(attrs[i+1])
		if err != nil {
			panic(fmt.Sprintf("node %q attribute %q: %v", name, key, err))
		}
		values[key] = v
	}
	b.scene.Nodes = append(b.scene.Nodes, ir.SceneNode{
		Name:       name,
		Type:       typ,
		Parent:     parent,
		UUID:       ir.NodeUUID(name),
		Attributes: values,
	})
	return b
}

// Connect links "src.attr" to "dst.attr".
func (b *SceneBuilder) Connect(from, to string) *SceneBuilder {
	src, srcAttr, _ := strings.Cut(from, ".")
	dst, dstAttr, _ := strings.Cut(to, ".")
	b.scene.Connections = append(b.scene.Connections, ir.Connection{
		Source: src, SourceAttr: srcAttr, Target: dst, TargetAttr: dstAttr,
	})
	return b
}

// Build returns the assembled scene.
func (b *SceneBuilder) Build() *ir.Scene {
	s := b.scene
	return &s
}

// DemoScene is the shared fixture: the four default cameras, a skinned
// character in the "chars:hero" namespace, a cube with construction history,
// a display layer, an empty group and a namespaced lamp.
//
//	persp        ty=10  -> perspShape (camera, perspective)
//	top          ty=100 -> topShape   (camera, ortho)
//	front        ty=0   -> frontShape (camera, ortho)
//	side         ty=0   -> sideShape  (camera, ortho)
//	chars:hero               -> chars:hero:body -> chars:hero:bodyShape (mesh)
//	                         -> chars:hero:root_jnt -> hip_jnt -> knee_jnt
//	chars:hero:skin (skinCluster): root_jnt -> skin -> bodyShape
//	pCube1 ty=-3 -> pCubeShape1 (mesh) <- polyCube1 (polyCube)
//	layer1 (displayLayer) -> pCube1
//	emptyGroup ty=-1
//	props:lamp -> props:lamp:lampShape (pointLight)
func DemoScene() *ir.Scene {
	return NewScene().
		Node("persp", "transform", "", "tx", 28, "ty", 10).
		Node("perspShape", "camera", "persp", "focalLength", 35.0, "orthographic", false).
		Node("top", "transform", "", "ty", 100).
		Node("topShape", "camera", "top", "focalLength", 50.0, "orthographic", true).
		Node("front", "transform", "", "ty", 0, "tz", 100).
		Node("frontShape", "camera", "front", "focalLength", 35.0, "orthographic", true).
		Node("side", "transform", "", "tx", 100, "ty", 0).
		Node("sideShape", "camera", "side", "focalLength", 35.0, "orthographic", true).
		Node("chars:hero", "transform", "", "ty", 0).
		Node("chars:hero:body", "transform", "chars:hero", "ty", 5).
		Node("chars:hero:bodyShape", "mesh", "chars:hero:body", "vertexCount", 482).
		Node("chars:hero:root_jnt", "joint", "chars:hero", "ty", 9.5).
		Node("chars:hero:hip_jnt", "joint", "chars:hero:root_jnt", "ty", 8).
		Node("chars:hero:knee_jnt", "joint", "chars:hero:hip_jnt", "ty", 4).
		Node("chars:hero:skin", "skinCluster", "").
		Node("pCube1", "transform", "", "ty", -3).
		Node("pCubeShape1", "mesh", "pCube1", "vertexCount", 8).
		Node("polyCube1", "polyCube", "", "width", 1.0).
		Node("layer1", "displayLayer", "", "visibility", true).
		Node("emptyGroup", "transform", "", "ty", -1).
		Node("props:lamp", "transform", "", "ty", 12).
		Node("props:lamp:lampShape", "pointLight", "props:lamp", "intensity", 1.5).
		Connect("chars:hero:root_jnt.worldMatrix", "chars:hero:skin.matrix").
		Connect("chars:hero:skin.outputGeometry", "chars:hero:bodyShape.inMesh").
		Connect("polyCube1.output", "pCubeShape1.inMesh").
		Connect("layer1.drawInfo", "pCube1.drawOverride").
		Build()
}
