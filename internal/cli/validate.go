package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/contend/internal/config"
)

// FileValidation is the result for one config file.
type FileValidation struct {
	Path  string `json:"path"`
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
		Use:   "validate <config>...",
		Short: "Validate configuration files",
		Long: `Validate YAML or CUE configuration files without running anything.

Each file is decoded, checked against the configuration schema and
version-gated. Every file is reported; the command fails if any is invalid.

Examples:
  contend validate sim.yaml
  contend validate configs/*.yaml configs/*.cue --format json`,
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
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{
		Valid: true,
		Files: make([]FileValidation, 0, len(paths)),
	}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fv := FileValidation{Path: path, Valid: true}
		if _, err := config.Load(path); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	invalid := 0
	for _, fv := range result.Files {
		if !fv.Valid {
			invalid++
		}
	}

	if formatter.JSON() {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeConfig,
				Message: fmt.Sprintf("%d of %d file(s) invalid", invalid, len(paths)),
			}
		}
		if err := encodeJSON(formatter, response); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", fv.Path)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ %s\n  %s\n", fv.Path, fv.Error)
			}
		}
	}

	if !result.Valid {
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d invalid file(s)", invalid))
	}
	return nil
}
