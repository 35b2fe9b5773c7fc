package minq

import "github.com/roach88/minq/internal/queryir"

// Named type designators for the built-in hierarchy.
var (
	DagNodes      = queryir.NamedType{Name: "DagNodes", Types: []string{"dagNode"}}
	Transforms    = queryir.NamedType{Name: "Transforms", Types: []string{"transform"}}
	Shapes        = queryir.NamedType{Name: "Shapes", Types: []string{"shape"}}
	Meshes        = queryir.NamedType{Name: "Meshes", Types: []string{"mesh"}}
	Cameras       = queryir.NamedType{Name: "Cameras", Types: []string{"camera"}}
	Lights        = queryir.NamedType{Name: "Lights", Types: []string{"light"}}
	Joints        = queryir.NamedType{Name: "Joints", Types: []string{"joint"}}
	IkEffectors   = queryir.NamedType{Name: "IkEffectors", Types: []string{"ikEffector"}}
	IkHandles     = queryir.NamedType{Name: "IkHandles", Types: []string{"ikHandle"}}
	SkinClusters  = queryir.NamedType{Name: "SkinClusters", Types: []string{"skinCluster"}}
	PolyCreators  = queryir.NamedType{Name: "PolyCreators", Types: []string{"polyCreator"}}
	DisplayLayers = queryir.NamedType{Name: "DisplayLayers", Types: []string{"displayLayer"}}
	ObjectSets    = queryir.NamedType{Name: "ObjectSets", Types: []string{"objectSet"}}
)

func (s *Session) DagNodes() *Stream      { return s.Of(DagNodes) }
func (s *Session) Transforms() *Stream    { return s.Of(Transforms) }
func (s *Session) Shapes() *Stream        { return s.Of(Shapes) }
func (s *Session) Meshes() *Stream        { return s.Of(Meshes) }
func (s *Session) Cameras() *Stream       { return s.Of(Cameras) }
func (s *Session) Lights() *Stream        { return s.Of(Lights) }
func (s *Session) Joints() *Stream        { return s.Of(Joints) }
func (s *Session) IkEffectors() *Stream   { return s.Of(IkEffectors) }
func (s *Session) IkHandles() *Stream     { return s.Of(IkHandles) }
func (s *Session) SkinClusters() *Stream  { return s.Of(SkinClusters) }
func (s *Session) PolyCreators() *Stream  { return s.Of(PolyCreators) }
func (s *Session) DisplayLayers() *Stream { return s.Of(DisplayLayers) }
func (s *Session) ObjectSets() *Stream    { return s.Of(ObjectSets) }

// Assemblies streams the top-level transforms.
func (s *Session) Assemblies() *Stream {
	return s.Transforms().WhereNot(Has(Parents))
}
