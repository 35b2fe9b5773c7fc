package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

// Engine resolves query plans against one backend.
//
// An Engine holds no per-query state and may be reused for any number of
// resolutions. It is not safe to resolve concurrently against a backend
// that is being mutated.
type Engine struct {
	backend scene.Backend
	logger  *slog.Logger
	bulk    bool
	quota   quota
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for stage tracing. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBulkRewrite enables or disables the bulk predicate path.
//
// Default: enabled. Disabling it makes every attribute test issue one
// backend call per candidate; use it to compare both paths.
func WithBulkRewrite(enabled bool) Option {
	return func(e *Engine) {
		e.bulk = enabled
	}
}

// WithMaxElements caps the length of every intermediate sequence.
// Default: 0 (unlimited). A stage producing more fails with
// *ElementsExceededError.
func WithMaxElements(n int) Option {
	return func(e *Engine) {
		e.quota = quota{limit: n}
	}
}

// New creates an Engine over b.
func New(b scene.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: b,
		logger:  slog.Default(),
		bulk:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend returns the backend the engine reads from.
func (e *Engine) Backend() scene.Backend {
	return e.backend
}

// BulkRewrite reports whether the bulk predicate path is enabled.
func (e *Engine) BulkRewrite() bool {
	return e.bulk
}

// Resolve runs one top-level resolution of n and returns its sequence.
// A failure returns no partial result.
func (e *Engine) Resolve(ctx context.Context, n queryir.Node) ([]ir.IRValue, error) {
	out, err := e.ResolveAll(ctx, n)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ResolveAll resolves several plans inside one execution, so Shared handles
// of a split that appear in different plans read one upstream execution.
func (e *Engine) ResolveAll(ctx context.Context, nodes ...queryir.Node) ([][]ir.IRValue, error) {
	x := e.newExecution()
	out := make([][]ir.IRValue, len(nodes))
	for i, n := range nodes {
		vals, err := x.resolve(ctx, n)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// execution is the state of one top-level resolution.
type execution struct {
	*Engine
	splits map[*queryir.SplitPoint][]ir.IRValue
}

func (e *Engine) newExecution() *execution {
	return &execution{
		Engine: e,
		splits: make(map[*queryir.SplitPoint][]ir.IRValue),
	}
}

// resolve evaluates n depth-first. Errors from inputs arrive already wrapped
// and pass through unchanged; errors raised by n itself, including those of
// its callables, are wrapped here.
func (x *execution) resolve(ctx context.Context, n queryir.Node) ([]ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, x.fail(n, err)
	}
	out, err := x.apply(ctx, n)
	if err != nil {
		if !raisedHere(err) {
			return nil, err
		}
		return nil, x.fail(n, err)
	}
	if err := x.quota.check(n, len(out)); err != nil {
		return nil, x.fail(n, err)
	}
	x.logger.Debug("stage resolved",
		"stage", queryir.StageOf(n).String(),
		"op", queryir.Describe(n),
		"out", len(out),
	)
	return out, nil
}

func (x *execution) fail(n queryir.Node, err error) error {
	se := newStageError(n, err)
	x.logger.Warn("stage failed",
		"stage", se.Stage.String(),
		"op", se.Op,
		"error", err,
	)
	return se
}

func (x *execution) apply(ctx context.Context, n queryir.Node) ([]ir.IRValue, error) {
	switch node := n.(type) {
	case nil:
		return nil, fmt.Errorf("missing node")
	case queryir.Source:
		return append([]ir.IRValue{}, node.Values...), nil
	case queryir.TypeQuery:
		return x.typeQuery(ctx, node)
	case queryir.Like:
		return x.like(ctx, node)
	case queryir.Only:
		return x.only(ctx, node)
	case queryir.Where:
		return x.where(ctx, node)
	case queryir.Having:
		return x.having(ctx, node)
	case queryir.Distinct:
		in, err := x.resolve(ctx, node.Input)
		if err != nil {
			return nil, err
		}
		return distinct(in), nil
	case queryir.Get:
		in, err := x.resolve(ctx, node.Input)
		if err != nil {
			return nil, err
		}
		return x.transform(ctx, node.Transform, in)
	case queryir.Append:
		in, err := x.resolve(ctx, node.Input)
		if err != nil {
			return nil, err
		}
		more, err := x.transform(ctx, node.Transform, in)
		if err != nil {
			return nil, err
		}
		return append(in, more...), nil
	case queryir.Foreach:
		return x.foreach(ctx, node)
	case queryir.Join:
		return x.join(ctx, node)
	case queryir.Shared:
		return x.shared(ctx, node)
	case queryir.SetOp:
		return x.setOp(ctx, node)
	default:
		return nil, fmt.Errorf("unsupported node type %T", n)
	}
}
