package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables: --db reads REMEMBER_DB.
const EnvPrefix = "remember"

// RootOptions holds global flags for all commands.
//
// Flag values are resolved through settings after parsing, so every flag can
// also come from a REMEMBER_* environment variable or a .env file.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	settings *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the remember CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{settings: viper.New()}

	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Persist and rehydrate store state",
		Long: `remember keeps selected slices of a store's state in a key-value driver
and restores them when the store starts.

Flags may also be set through REMEMBER_* environment variables, for example
REMEMBER_DB=state.db. A .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.bind(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDispatchCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// bind loads .env, binds the running command's flags and environment, and
// resolves the global options.
func (o *RootOptions) bind(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")

	o.settings.SetEnvPrefix(EnvPrefix)
	o.settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.settings.AutomaticEnv()
	if err := o.settings.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("cli: bind flags: %w", err)
	}

	o.Verbose = o.settings.GetBool("verbose")
	o.Format = o.settings.GetString("format")
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	return nil
}

// String returns the resolved value of a string flag.
func (o *RootOptions) String(name string) string {
	return o.settings.GetString(name)
}

// Logger returns a text logger on w. Debug with --verbose, warn otherwise.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
