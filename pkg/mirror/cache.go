package mirror

import (
	"runtime"
	"weak"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/daimatz/mirror/pkg/classfile"
)

// handle is the weak identity of a class file. It never keeps the class
// file alive.
type handle = weak.Pointer[classfile.ClassFile]

type cacheKey struct {
	handle   handle
	bindings string
}

// described is the memoized adaptation of one class file. id is unique
// within the cache for as long as the class file is reachable.
type described struct {
	desc *TypeDescriptor
	id   uint64
}

// Cache holds the canonical mirrors of one Mirror scope. Entries are keyed
// by class-file identity and binding context, and are dropped once their
// class file becomes unreachable.
type Cache struct {
	logger   *zap.Logger
	observer *observer

	types       store[cacheKey, *TypeMirror]
	descriptors store[handle, *described]
	nextID      atomic.Uint64
}

func newCache(logger *zap.Logger, o *observer) *Cache {
	return &Cache{logger: logger, observer: o}
}

// describe returns the descriptor of cf, running adapt at most once per
// class file however many callers ask concurrently.
func (c *Cache) describe(cf *classfile.ClassFile, adapt func(*classfile.ClassFile) (*TypeDescriptor, error)) (*described, error) {
	h := weak.Make(cf)
	info, out, err := c.descriptors.getOrCreate(h, func() (*described, error) {
		d, err := adapt(cf)
		if err != nil {
			return nil, err
		}
		return &described{desc: d, id: c.nextID.Inc()}, nil
	})
	if out == outcomeBuilt && err == nil {
		runtime.AddCleanup(cf, c.evictDescriptor, h)
	}
	return info, err
}

// getOrCreate returns the mirror stored under (cf, bindingsKey), running
// build if there is none.
func (c *Cache) getOrCreate(cf *classfile.ClassFile, bindingsKey string, build func() (*TypeMirror, error)) (*TypeMirror, error) {
	key := cacheKey{handle: weak.Make(cf), bindings: bindingsKey}
	t, out, err := c.types.getOrCreate(key, build)
	c.observer.observe(out, err)
	if out == outcomeBuilt {
		if err != nil {
			c.logger.Debug("mirror construction failed", zap.String("bindings", bindingsKey), zap.Error(err))
			return nil, err
		}
		c.logger.Debug("constructed mirror", zap.String("class", t.Name()), zap.String("bindings", bindingsKey))
		runtime.AddCleanup(cf, c.evictType, key)
	}
	return t, err
}

func (c *Cache) evictType(key cacheKey) {
	if c.types.evict(key) {
		c.observer.incEvictions()
		c.logger.Debug("evicted mirror", zap.String("bindings", key.bindings))
	}
}

func (c *Cache) evictDescriptor(h handle) {
	c.descriptors.evict(h)
}

// Len returns the number of ready mirrors.
func (c *Cache) Len() int {
	return c.types.len()
}

// Purge drops every mirror and descriptor. Mirrors already handed out stay
// valid; later requests build new ones.
func (c *Cache) Purge() {
	c.types.clear()
	c.descriptors.clear()
	c.logger.Debug("purged mirror cache")
}

// Stats returns the activity counters.
func (c *Cache) Stats() Stats {
	return c.observer.stats()
}
