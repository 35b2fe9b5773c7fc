package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/minq/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
}

// LoadResult reports what was written.
type LoadResult struct {
	Database string `json:"database"`
	Nodes    int    `json:"nodes"`
	Hash     string `json:"hash"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <scene.cue|dir>",
		Short: "Compile a scene and write it into SQLite",
		Long: `Compile a CUE scene and replace the contents of a SQLite database with it.

The database is created if it does not exist. Loading runs in a single
transaction and records the scene hash.

Example:
  minq load --db ./scene.db ./scenes/demo.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.config()
	db := opts.Database
	if db == "" {
		db = cfg.DB
	}

	sc, err := LoadScene(cfg.ScenePath(path))
	if err != nil {
		code, msg := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}

	st, err := store.Open(db)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeOpenFailed, err.Error())
	}
	defer st.Close()

	formatter.VerboseLog("Writing %d node(s) to %s", len(sc.Nodes), db)
	if err := st.LoadScene(cmd.Context(), sc); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
	}
	hash, err := st.SceneHash(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	res := LoadResult{Database: db, Nodes: len(sc.Nodes), Hash: hash}
	if formatter.IsJSON() {
		return formatter.Success(res)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d node%s into %s\n", res.Nodes, plural(res.Nodes), db)
	fmt.Fprintf(formatter.Writer, "Scene hash: %s\n", hash)
	return nil
}
