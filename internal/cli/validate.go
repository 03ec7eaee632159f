package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Layers int               `json:"layers"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a layer definition.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <layers-dir>",
		Short: "Validate CUE layer definitions",
		Long: `Validate the CUE layer definitions in a directory.

Every entry under the top-level layers struct is checked against the layer
schema: titles are required, opacity must lie in [0, 1], extra properties
may not shadow the well-known keys.

Exit codes:
  0 - All layers valid
  1 - One or more definitions are invalid
  2 - Command error (missing directory, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, layersDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, err := LoadLayers(layersDir)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) && err != nil {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	// No CUE value means the directory itself could not be loaded.
	if result == nil {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, layersDir)

	if loadErr != nil {
		return outputValidationErrors(formatter, result, []ValidationIssue{toIssue(loadErr)})
	}
	return outputValidateSuccess(formatter, result)
}

func toIssue(e *LoadError) ValidationIssue {
	issue := ValidationIssue{Code: e.Code, Field: e.Field, Message: e.Message}
	if e.Pos.IsValid() {
		issue.File = e.Pos.Filename()
		issue.Line = e.Pos.Line()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *LoadResult) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{
			Valid:  true,
			Layers: result.Count(),
			Files:  result.FileCount,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d layer(s) valid\n", result.Count())
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *LoadResult, issues []ValidationIssue) error {
	// Validation failures = exit code 1
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.JSON() {
		data := ValidationResult{Valid: false, Files: result.FileCount, Errors: issues}
		if err := formatter.Failure(issues[0].Code, issues[0].Message, data); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		if issue.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failed
}
