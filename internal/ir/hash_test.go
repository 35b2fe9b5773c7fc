package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScene() *Scene {
	return &Scene{
		Types: map[string]string{"locator": "transform"},
		Nodes: []SceneNode{
			{Name: "persp", Type: "transform", UUID: "u1", Attributes: map[string]IRValue{"ty": IRInt(10)}},
			{Name: "perspShape", Type: "camera", Parent: "persp", UUID: "u2", Attributes: map[string]IRValue{"focalLength": IRFloat(35)}},
		},
		Connections: []Connection{{Source: "persp", SourceAttr: "ty", Target: "perspShape", TargetAttr: "focalLength"}},
	}
}

func TestSceneHashDeterminism(t *testing.T) {
	h1, err := SceneHash(sampleScene())
	require.NoError(t, err)
	h2, err := SceneHash(sampleScene())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "SceneHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestSceneHashChangesWithAttributes(t *testing.T) {
	s := sampleScene()
	h1, err := SceneHash(s)
	require.NoError(t, err)

	s.Nodes[0].Attributes["ty"] = IRInt(11)
	h2, err := SceneHash(s)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestResultHashIsOrderSensitive(t *testing.T) {
	h1, err := ResultHash(Nodes("a", "b"))
	require.NoError(t, err)
	h2, err := ResultHash(Nodes("b", "a"))
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`[]`)
	assert.NotEqual(t, hashWithDomain(DomainScene, data), hashWithDomain(DomainResult, data))
}

func TestSceneNodeLookup(t *testing.T) {
	s := sampleScene()
	n, ok := s.Node("perspShape")
	require.True(t, ok)
	assert.Equal(t, "camera", n.Type)

	_, ok = s.Node("missing")
	assert.False(t, ok)
}
