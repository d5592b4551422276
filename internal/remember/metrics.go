package remember

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Metric names. Each series carries a prefix label.
const (
	metricRehydrations    = "remember_rehydrations_total"
	metricRehydrateErrors = "remember_rehydrate_errors_total"
	metricCycles          = "remember_persist_cycles_total"
	metricWrites          = "remember_persist_writes_total"
	metricPersistErrors   = "remember_persist_errors_total"
)

type stats struct {
	set             *metrics.Set
	rehydrations    *metrics.Counter
	rehydrateErrors *metrics.Counter
	cycles          *metrics.Counter
	writes          *metrics.Counter
	persistErrors   *metrics.Counter
}

// newStats registers the engine counters on set. Engines sharing a set and a
// prefix share counters.
func newStats(set *metrics.Set, prefix string) *stats {
	if set == nil {
		set = metrics.NewSet()
	}
	name := func(metric string) string {
		return fmt.Sprintf("%s{prefix=%q}", metric, prefix)
	}
	return &stats{
		set:             set,
		rehydrations:    set.GetOrCreateCounter(name(metricRehydrations)),
		rehydrateErrors: set.GetOrCreateCounter(name(metricRehydrateErrors)),
		cycles:          set.GetOrCreateCounter(name(metricCycles)),
		writes:          set.GetOrCreateCounter(name(metricWrites)),
		persistErrors:   set.GetOrCreateCounter(name(metricPersistErrors)),
	}
}
