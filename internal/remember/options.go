package remember

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/roach88/remember/internal/codec"
	"github.com/roach88/remember/internal/schedule"
)

// config holds the resolved engine settings.
type config struct {
	prefix            string
	serialize         SerializeFunc
	unserialize       UnserializeFunc
	migrate           MigrateFunc
	persistThrottle   time.Duration
	persistDebounce   time.Duration
	persistWholeStore bool
	initActionType    string
	errorHandler      ErrorHandler
	logger            *slog.Logger
	clock             schedule.Clock
	metrics           *metrics.Set
	ids               IDGenerator
	ctx               context.Context
}

func defaultConfig() config {
	return config{
		prefix:          DefaultPrefix,
		serialize:       codec.SerializeJSON,
		unserialize:     codec.UnserializeJSON,
		persistThrottle: DefaultPersistThrottle,
		logger:          slog.Default(),
		clock:           schedule.RealClock(),
		ids:             UUIDv7Generator{},
		ctx:             context.Background(),
	}
}

// Option configures an Engine.
type Option func(*config)

// WithPrefix sets the storage key prefix.
//
// Default: DefaultPrefix ("@@remember-")
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithSerialize sets the value encoder. Default: compact JSON.
func WithSerialize(fn SerializeFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.serialize = fn
		}
	}
}

// WithUnserialize sets the value decoder. Default: JSON into generic values.
func WithUnserialize(fn UnserializeFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.unserialize = fn
		}
	}
}

// WithMigrate transforms merged state during rehydration, before it is
// dispatched. A migrate error is reported as a *RehydrateError and the
// unmigrated merge is dispatched instead.
func WithMigrate(fn MigrateFunc) Option {
	return func(c *config) {
		c.migrate = fn
	}
}

// WithPersistThrottle sets the minimum spacing between persistence cycles.
// Zero persists on every change.
//
// Default: 100ms (DefaultPersistThrottle)
func WithPersistThrottle(d time.Duration) Option {
	return func(c *config) {
		c.persistThrottle = max(d, 0)
	}
}

// WithPersistDebounce persists only after changes stop for d. A positive
// value takes precedence over the throttle.
func WithPersistDebounce(d time.Duration) Option {
	return func(c *config) {
		c.persistDebounce = d
	}
}

// WithPersistWholeStore stores every remembered key in one entry under
// RootStateKey instead of one entry per key.
func WithPersistWholeStore(whole bool) Option {
	return func(c *config) {
		c.persistWholeStore = whole
	}
}

// WithInitActionType defers startup until the first action of this type is
// dispatched.
func WithInitActionType(actionType string) Option {
	return func(c *config) {
		c.initActionType = actionType
	}
}

// WithErrorHandler receives persistence and rehydration failures.
//
// Default: log at warn level through the engine logger.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *config) {
		c.errorHandler = fn
	}
}

// WithLogger sets the engine logger. Default: slog.Default() at construction.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source for throttling, debouncing and deferred
// startup. Tests pass a fake clock.
func WithClock(clock schedule.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMetrics registers the engine counters on set.
// Without it the counters live in a private set (see Engine.Metrics).
func WithMetrics(set *metrics.Set) Option {
	return func(c *config) {
		c.metrics = set
	}
}

// WithCycleIDs sets the correlation ID generator for persistence cycles.
//
// Default: UUIDv7Generator
func WithCycleIDs(ids IDGenerator) Option {
	return func(c *config) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithContext sets the context passed to every driver call.
//
// Default: context.Background()
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}
