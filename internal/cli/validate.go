package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/minq/internal/querydoc"
)

// FileValidation is the outcome for one query document.
type FileValidation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query.yaml>...",
		Short: "Validate query documents without executing them",
		Long: `Decode query documents strictly and check that their plans are well formed:
known fields, one source per pipeline, one operator per step, valid
patterns, predicates and join fields.

No scene is needed. Faster than query for development feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		fv := validateFile(path)
		formatter.VerboseLog("Validated %s: %v", path, fv.Valid)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.IsJSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path}
	doc, err := querydoc.Load(path)
	if err != nil {
		fv.Error = err.Error()
		return fv
	}
	fv.Name = doc.Name
	if _, err := doc.Build(); err != nil {
		fv.Error = err.Error()
		return fv
	}
	fv.Valid = true
	return fv
}

func outputValidateText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	failed := 0
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Name)
			continue
		}
		failed++
		fmt.Fprintf(w, "✗ %s\n", fv.Path)
		fmt.Fprintf(w, "%s\n", indent(fv.Error, "  "))
	}
	if failed > 0 {
		fmt.Fprintf(w, "\n%d of %d document%s invalid\n", failed, len(result.Files), plural(len(result.Files)))
	}
}
