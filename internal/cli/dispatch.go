package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/remember/internal/codec"
	"github.com/roach88/remember/internal/config"
	"github.com/roach88/remember/internal/harness"
	"github.com/roach88/remember/internal/remember"
	"github.com/roach88/remember/internal/store"
)

// readyTimeout bounds the wait for rehydration.
const readyTimeout = 10 * time.Second

// DispatchResult is the JSON payload of dispatch.
type DispatchResult struct {
	Action string         `json:"action"`
	State  map[string]any `json:"state"`
	Errors []string       `json:"errors,omitempty"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <type> [payload-json]",
		Short: "Dispatch one action against a database-backed store",
		Long: `Open the database, rehydrate a store from it, dispatch one action
and persist the result. The store's reducer merges object payloads into the
root state; the config decides which keys are remembered.

Persistence runs without throttling or debouncing so the command exits only
after every write. The resulting state is printed as canonical JSON.

Examples:
  remember dispatch --db state.db --config remember.yaml SET '{"counter": 1}'
  REMEMBER_DB=state.db remember dispatch --config remember.cue NOOP
  remember dispatch --db state.db --driver gorm SET '{"counter": 2}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 2 {
				payload = args[1]
			}
			return runDispatch(rootOpts, args[0], payload, cmd)
		},
	}

	addBackendFlags(cmd)
	cmd.Flags().String("config", "", "path to a .cue/.yaml/.json config file")

	return cmd
}

func runDispatch(opts *RootOptions, actionType, rawPayload string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	dbPath := opts.String("db")
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--db is required (or set REMEMBER_DB)", nil)
	}

	cfg := config.Default()
	if path := opts.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, config.ErrCodeInvalid, "cannot load config", err)
		}
		cfg = loaded
	}
	cfg.PersistThrottleMs = 0
	cfg.PersistDebounceMs = 0
	formatter.VerboseLog("Config: %v", cfg.Summary())
	configOpts, err := cfg.Options()
	if err != nil {
		return formatter.Fail(ExitCommandError, config.ErrCodeInvalid, "invalid config", err)
	}

	var payload any
	if rawPayload != "" {
		if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, "payload is not valid JSON", err)
		}
	}

	drv, err := openBackend(opts.String("driver"), dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDriver, "cannot open database", err)
	}
	defer drv.Close()

	var (
		mu       sync.Mutex
		failures []string
	)
	onError := func(err error) {
		logger.Warn("persistence failure", "error", err)
		mu.Lock()
		failures = append(failures, err.Error())
		mu.Unlock()
	}

	engineOpts := append(configOpts,
		remember.WithLogger(logger),
		remember.WithErrorHandler(onError),
		remember.WithContext(cmd.Context()),
	)
	eng, err := remember.New(drv, cfg.Keys, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEngine, "cannot create engine", err)
	}
	defer eng.Stop()

	st := store.Create(remember.Reducer(harness.MergeReducer), nil, eng.Enhancer())
	if cfg.InitActionType != "" {
		st.Dispatch(store.Action{Type: cfg.InitActionType})
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), readyTimeout)
	defer cancel()
	if err := waitReady(ctx, eng); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeEngine, "store did not rehydrate", err)
	}

	st.Dispatch(store.Action{Type: actionType, Payload: payload})
	eng.Stop()

	state := map[string]any(st.GetState().Clone())
	mu.Lock()
	errs := append([]string(nil), failures...)
	mu.Unlock()

	if err := printState(formatter, opts.Format, DispatchResult{Action: actionType, State: state, Errors: errs}); err != nil {
		return err
	}
	if len(errs) > 0 {
		return formatter.Fail(ExitFailure, ErrCodePersist, fmt.Sprintf("%d persistence error(s)", len(errs)), errors.New(errs[0]))
	}
	return nil
}

func waitReady(ctx context.Context, eng *remember.Engine) error {
	select {
	case <-eng.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printState(f *OutputFormatter, format string, result DispatchResult) error {
	if format == "json" {
		return f.Success(result)
	}
	data, err := codec.MarshalCanonical(result.State)
	if err != nil {
		return fmt.Errorf("cli: render state: %w", err)
	}
	return f.Success(string(data))
}
