package minq

import (
	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

// Session binds streams to one engine and backend.
type Session struct {
	engine *engine.Engine
}

// NewSession creates a session over b. Options are passed to engine.New.
func NewSession(b scene.Backend, opts ...engine.Option) *Session {
	return &Session{engine: engine.New(b, opts...)}
}

// Engine returns the engine that resolves this session's streams.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

// Stream wraps n as a stream of this session.
func (s *Session) Stream(n queryir.Node) *Stream {
	return &Stream{s: s, node: n}
}

// Using starts a stream from node identifiers. Names ending in a "*"
// namespace component expand as described at queryir.Using.
func (s *Session) Using(names ...string) *Stream {
	return s.Stream(queryir.Using(names...))
}

// UsingValues starts a stream from arbitrary values.
func (s *Session) UsingValues(values ...ir.IRValue) *Stream {
	return s.Stream(queryir.Source{Values: append([]ir.IRValue{}, values...)})
}

// Everything streams every node in the scene.
func (s *Session) Everything() *Stream {
	return s.Stream(queryir.TypeQuery{})
}

// Of streams the nodes matching any of the designators.
func (s *Session) Of(types ...queryir.TypeDesignator) *Stream {
	return s.Stream(queryir.TypeQuery{Types: types})
}

// Type streams the nodes whose type derives from any of names.
func (s *Session) Type(names ...string) *Stream {
	return s.Of(queryir.Types(names...)...)
}
