package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InspectEntry is one stored entry in inspect's JSON output.
type InspectEntry struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Revision int64  `json:"revision"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List entries stored in a database",
		Long: `List the entries of a database written by remember, ordered by key.
Each line shows the key, how many times it was written, and the stored value.
--driver must match the driver that wrote the database.

Examples:
  remember inspect --db state.db
  remember inspect --db state.db --driver gorm
  remember inspect --db state.db --prefix @@remember- --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd)
		},
	}

	addBackendFlags(cmd)
	cmd.Flags().String("prefix", "", "only list keys starting with prefix")

	return cmd
}

func runInspect(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dbPath := opts.String("db")
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--db is required (or set REMEMBER_DB)", nil)
	}

	drv, err := openBackend(opts.String("driver"), dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDriver, "cannot open database", err)
	}
	defer drv.Close()

	entries, err := drv.list(cmd.Context(), opts.String("prefix"))
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDriver, "cannot list entries", err)
	}
	formatter.VerboseLog("Found %d entries in %s", len(entries), dbPath)

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		return formatter.Success("No entries.")
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s\t%d\t%s", e.Key, e.Revision, e.Value)
	}
	return formatter.Success(lines)
}
