package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/remember/internal/config"
)

// ValidationResult is the JSON payload of a successful validate.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Path     string   `json:"path"`
	Settings []string `json:"settings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a remember config file",
		Long: `Load a .cue, .yaml, .yml or .json config file, apply defaults and
validate it. Prints the resolved settings on success.

Exit codes:
  0 - Config is valid
  1 - Config is invalid or cannot be read`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	formatter.VerboseLog("Loading config %s", path)

	cfg, err := config.Load(path)
	if err != nil {
		var loadErr *config.LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitFailure, loadErr.Code, loadErr.Message, err)
		}
		return formatter.Fail(ExitFailure, config.ErrCodeInvalid, err.Error(), err)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Path: path, Settings: cfg.Summary()})
	}
	return formatter.Success(append([]string{"✓ " + path + " is valid"}, cfg.Summary()...))
}
