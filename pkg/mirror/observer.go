package mirror

import (
	"go.uber.org/atomic"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

const _componentTag = "component"

// Stats counts cache activity since the Mirror was created.
type Stats struct {
	Hits          int64
	Misses        int64
	Constructions int64
	Failures      int64
	Evictions     int64
}

type observer struct {
	hits, misses, constructions, failures, evictions atomic.Int64

	hitsCounter          *metrics.Counter
	missesCounter        *metrics.Counter
	constructionsCounter *metrics.Counter
	failuresCounter      *metrics.Counter
	evictionsCounter     *metrics.Counter
}

// newObserver registers the cache counters on meter. A nil meter keeps
// only the in-process Stats.
func newObserver(meter *metrics.Scope, logger *zap.Logger) *observer {
	o := &observer{}
	if meter == nil {
		return o
	}
	tags := metrics.Tags{_componentTag: "mirror"}
	counter := func(name, help string) *metrics.Counter {
		c, err := meter.Counter(metrics.Spec{
			Name:      name,
			Help:      help,
			ConstTags: tags,
		})
		if err != nil {
			logger.Error("Failed to create counter", zap.String("name", name), zap.Error(err))
		}
		return c
	}
	o.hitsCounter = counter("mirror_cache_hits", "Total number of lookups answered by a ready mirror.")
	o.missesCounter = counter("mirror_cache_misses", "Total number of lookups that found no ready mirror.")
	o.constructionsCounter = counter("mirror_constructions", "Total number of mirror constructions started.")
	o.failuresCounter = counter("mirror_construction_failures", "Total number of mirror constructions that failed.")
	o.evictionsCounter = counter("mirror_evictions", "Total number of mirrors evicted after their class became unreachable.")
	return o
}

func (o *observer) observe(out outcome, err error) {
	switch out {
	case outcomeHit:
		o.hits.Inc()
		o.hitsCounter.Inc()
		return
	case outcomeBuilt:
		o.constructions.Inc()
		o.constructionsCounter.Inc()
		if err != nil {
			o.failures.Inc()
			o.failuresCounter.Inc()
		}
	}
	o.misses.Inc()
	o.missesCounter.Inc()
}

func (o *observer) incEvictions() {
	o.evictions.Inc()
	o.evictionsCounter.Inc()
}

func (o *observer) stats() Stats {
	return Stats{
		Hits:          o.hits.Load(),
		Misses:        o.misses.Load(),
		Constructions: o.constructions.Load(),
		Failures:      o.failures.Load(),
		Evictions:     o.evictions.Load(),
	}
}
