package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/minq/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// SceneSummary describes a compiled scene.
type SceneSummary struct {
	Nodes       int            `json:"nodes"`
	Connections int            `json:"connections"`
	Extensions  int            `json:"type_extensions"`
	ByType      map[string]int `json:"by_type"`
	Hash        string         `json:"hash"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scene.cue|dir>",
		Short: "Compile a CUE scene and summarize it",
		Long: `Compile a CUE scene file, or a directory of .cue files unified into one
scene, and report what it contains.

Validation covers node types, parent order, parent cycles and connection
endpoints. Errors carry CUE source positions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled scene as JSON")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sc, err := LoadScene(opts.config().ScenePath(path))
	if err != nil {
		code, msg := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}
	formatter.VerboseLog("Compiled %d node(s) from %s", len(sc.Nodes), path)

	summary, err := summarize(sc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := writeSceneToFile(sc, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, summary, opts.Output)
}

// summarize counts nodes per concrete type.
func summarize(sc *ir.Scene) (*SceneSummary, error) {
	hash, err := ir.SceneHash(sc)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]int)
	for _, n := range sc.Nodes {
		byType[n.Type]++
	}
	return &SceneSummary{
		Nodes:       len(sc.Nodes),
		Connections: len(sc.Connections),
		Extensions:  len(sc.Types),
		ByType:      byType,
		Hash:        hash,
	}, nil
}

// outputCompileSuccess outputs the scene summary.
func outputCompileSuccess(formatter *OutputFormatter, s *SceneSummary, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(s)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d node(s), %d connection(s), %d type extension(s)\n\n",
		s.Nodes, s.Connections, s.Extensions)

	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	slices.Sort(types)
	fmt.Fprintln(w, "Nodes by type:")
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d\n", t, s.ByType[t])
	}
	fmt.Fprintf(w, "\nScene hash: %s\n", s.Hash)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled scene to %s\n", outputFile)
	}
	return nil
}

// writeSceneToFile writes the compiled scene as indented JSON.
func writeSceneToFile(sc *ir.Scene, filename string) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling scene: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// plural returns "s" unless n is one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
