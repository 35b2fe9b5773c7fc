package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/querydoc"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database    string
	Scene       string
	Explain     bool
	Stats       bool
	NoBulk      bool
	MaxElements int
}

// GroupOutput is one group of a grouped result.
type GroupOutput struct {
	Key     any   `json:"key"`
	Members []any `json:"members"`
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Name   string         `json:"name"`
	Plan   string         `json:"plan,omitempty"`
	Values []any          `json:"values,omitempty"`
	Groups []GroupOutput  `json:"groups,omitempty"`
	Stats  map[string]int `json:"stats,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <query.yaml>",
		Short: "Execute a query document",
		Long: `Execute a YAML query document against a scene.

The scene comes from --scene (compiled into memory) or --db (a database
written by 'minq load'); without either, the database from the config is
used.

Examples:
  minq query --scene scenes/demo.cue queries/cameras.yaml
  minq query --db scene.db --stats queries/cameras.yaml
  minq query --explain queries/cameras.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "CUE scene to query in memory")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "print the plan without executing it")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "report backend calls per operation")
	cmd.Flags().BoolVar(&opts.NoBulk, "no-bulk", false, "evaluate predicates one element at a time")
	cmd.Flags().IntVar(&opts.MaxElements, "max-elements", 0, "cap intermediate sequence length (default from config)")
	cmd.MarkFlagsMutuallyExclusive("db", "scene")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	cfg := opts.config()

	doc, err := querydoc.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidQuery, err.Error())
	}
	plan, err := doc.Build()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, err.Error())
	}

	if opts.Explain {
		text := queryir.Format(plan)
		if formatter.IsJSON() {
			return formatter.Success(QueryResult{Name: doc.Name, Plan: text})
		}
		fmt.Fprintln(formatter.Writer, text)
		return nil
	}

	src := BackendSource{DB: opts.Database, Scene: opts.Scene}
	if src.Scene != "" {
		src.Scene = cfg.ScenePath(src.Scene)
	} else if src.DB == "" {
		src.DB = cfg.DB
	}
	backend, closeBackend, err := openBackend(ctx, src)
	if err != nil {
		code, msg := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}
	defer closeBackend()

	inst := scene.MustInstrument(backend)
	engineOpts := opts.engineOptions(formatter.GetErrWriter(), opts.NoBulk)
	if opts.MaxElements > 0 {
		engineOpts = append(engineOpts, engine.WithMaxElements(opts.MaxElements))
	}
	eng := engine.New(inst, engineOpts...)
	formatter.VerboseLog("Executing %s (bulk rewrite: %v)", doc.Name, eng.BulkRewrite())

	res, err := querydoc.Execute(ctx, eng, doc)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQueryFailed, describeQueryError(err))
	}

	out := QueryResult{Name: doc.Name}
	if opts.Stats {
		out.Stats = inst.Stats()
	}
	if res.Groups != nil {
		for _, g := range res.Groups.Groups() {
			out.Groups = append(out.Groups, GroupOutput{Key: ir.ToAny(g.Key), Members: toAnySlice(g.Members)})
		}
	} else {
		out.Values = toAnySlice(res.Values)
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}
	writeQueryText(formatter, res)
	if opts.Stats {
		writeStats(formatter, inst)
	}
	return nil
}

// describeQueryError adds the failing stage's plan to stage errors.
func describeQueryError(err error) string {
	var stageErr *engine.StageError
	if errors.As(err, &stageErr) && stageErr.Plan != "" {
		return fmt.Sprintf("%v\n\nplan:\n%s", err, indent(stageErr.Plan, "  "))
	}
	return err.Error()
}

// writeQueryText prints one value per line, or one group per block.
func writeQueryText(f *OutputFormatter, res *querydoc.Result) {
	w := f.Writer
	if res.Groups != nil {
		for _, g := range res.Groups.Groups() {
			fmt.Fprintf(w, "%s:\n", ir.Format(g.Key))
			for _, m := range g.Members {
				fmt.Fprintf(w, "  %s\n", ir.Format(m))
			}
		}
		return
	}
	for _, v := range res.Values {
		fmt.Fprintln(w, ir.Format(v))
	}
	if len(res.Values) == 0 {
		f.VerboseLog("(no results)")
	}
}

// writeStats reports backend calls to the diagnostic writer so stdout
// stays pipeable.
func writeStats(f *OutputFormatter, inst *scene.Instrumented) {
	w := f.GetErrWriter()
	var parts []string
	for _, op := range scene.Ops {
		if n := inst.Calls(op); n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d (%d ids)", op, n, inst.IDs(op)))
		}
	}
	fmt.Fprintf(w, "backend calls: %d", inst.TotalCalls())
	if len(parts) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}

func toAnySlice(values []ir.IRValue) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = ir.ToAny(v)
	}
	return out
}
