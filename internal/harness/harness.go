package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/minq/internal/compiler"
	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/memscene"
	"github.com/roach88/minq/internal/querydoc"
	"github.com/roach88/minq/internal/scene"
	"github.com/roach88/minq/internal/store"
)

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger     *slog.Logger
	engineOpts []engine.Option
}

// WithLogger routes harness and engine logs to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithEngineOptions passes options through to every engine the run
// creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *runConfig) { c.engineOpts = append(c.engineOpts, opts...) }
}

// harness holds the per-scenario backend.
type harness struct {
	backend *scene.Instrumented
	mutator scene.Mutator
	engine  *engine.Engine
	logger  *slog.Logger
	closer  func() error
}

// Run executes a scenario against a fresh backend and returns the result.
//
// Execution flow:
//  1. Compile the scene (file, directory or inline CUE)
//  2. Load it into a new memdb or in-memory SQLite backend
//  3. Execute steps in order, checking each query's expectations
//
// An error is returned only when the scenario cannot run at all; failed
// expectations and unexpected query errors are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	sc, err := compileScene(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scene: %w", err)
	}
	h, err := newHarness(ctx, scenario.Backend, sc, cfg)
	if err != nil {
		return nil, err
	}
	defer h.closer()

	result := NewResult()
	for i, step := range scenario.Steps {
		switch {
		case step.Query != nil:
			h.executeQuery(ctx, i, step.Query, result)
		case step.Mutate != nil:
			if err := h.executeMutate(i, step.Mutate, result); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
	}
	return result, nil
}

func compileScene(s *Scenario) (*ir.Scene, error) {
	if s.SceneInline != "" {
		return compiler.CompileSceneSource([]byte(s.SceneInline), s.Name+".cue")
	}
	return compiler.LoadScene(s.Scene)
}

func newHarness(ctx context.Context, backend string, sc *ir.Scene, cfg *runConfig) (*harness, error) {
	var (
		live  scene.LiveBackend
		closer = func() error { return nil }
	)
	switch backend {
	case "", BackendMemDB:
		st, err := memscene.New(sc)
		if err != nil {
			return nil, fmt.Errorf("failed to create memdb backend: %w", err)
		}
		live = st
	case BackendSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		if err := st.LoadScene(ctx, sc); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to load scene: %w", err)
		}
		live, closer = st, st.Close
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}

	inst := scene.MustInstrument(live)
	opts := append([]engine.Option{engine.WithLogger(cfg.logger)}, cfg.engineOpts...)
	return &harness{
		backend: inst,
		mutator: live,
		engine:  engine.New(inst, opts...),
		logger:  cfg.logger,
		closer:  closer,
	}, nil
}

// executeQuery runs one document and checks its expectations.
func (h *harness) executeQuery(ctx context.Context, i int, q *QueryStep, result *Result) {
	before := h.backend.TotalCalls()
	res, err := querydoc.Execute(ctx, h.engine, &q.Document)
	out := Output{Step: i, Query: q.Name, Calls: h.backend.TotalCalls() - before}
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Value = res.Value()
	}
	result.AddOutput(out)

	h.logger.Info("query step completed",
		"step", i,
		"query", q.Name,
		"calls", out.Calls,
		"error", out.Error,
	)

	for _, msg := range checkExpect(q.Name, q.Expect, res, err) {
		result.AddError(msg)
	}
}

// executeMutate applies one edit. Mutation failures abort the scenario
// since later steps would run against an unexpected scene.
func (h *harness) executeMutate(i int, m *MutateStep, result *Result) error {
	var desc string
	switch {
	case m.Set != nil:
		desc = fmt.Sprintf("set %s.%s", m.Set.Node, m.Set.Attr)
		v, err := ir.FromAny(m.Set.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", desc, err)
		}
		if err := h.mutator.SetAttribute(m.Set.Node, m.Set.Attr, v); err != nil {
			return fmt.Errorf("%s: %w", desc, err)
		}
	default:
		desc = "delete " + m.Delete
		if err := h.mutator.DeleteNode(m.Delete); err != nil {
			return fmt.Errorf("%s: %w", desc, err)
		}
	}
	result.AddOutput(Output{Step: i, Mutation: desc})
	h.logger.Info("mutate step completed", "step", i, "mutation", desc)
	return nil
}
