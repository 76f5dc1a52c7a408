// Package loader supplies parsed class files by binary class name.
//
// Loaders cache what they parse, so a given loader returns the same
// *classfile.ClassFile for every request of a name until the class is
// unloaded. Concurrent requests for a name that is not cached yet share
// one read.
package loader

//go:generate mockgen -destination=loadertest/loadertest.go -package=loadertest github.com/daimatz/mirror/pkg/loader ClassLoader

import (
	"errors"
	"io/fs"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/daimatz/mirror/pkg/classfile"
)

// ClassLoader loads .class files by class name.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// Option configures a loader.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger loaders report loads and failures to.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// classCache is the name-keyed cache every loader keeps.
type classCache struct {
	source string
	logger *zap.Logger

	mu      sync.Mutex
	classes map[string]*classfile.ClassFile
	group   singleflight.Group
}

func newClassCache(source string, logger *zap.Logger) *classCache {
	return &classCache{
		source:  source,
		logger:  logger.With(zap.String("source", source)),
		classes: make(map[string]*classfile.ClassFile),
	}
}

func (c *classCache) get(name string) (*classfile.ClassFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cf, ok := c.classes[name]
	return cf, ok
}

func (c *classCache) put(name string, cf *classfile.ClassFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[name] = cf
}

func (c *classCache) remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.classes[name]
	delete(c.classes, name)
	return ok
}

// load returns the cached class or calls read once for all concurrent
// callers. The result is checked against name before it is cached.
func (c *classCache) load(name string, read func() (*classfile.ClassFile, error)) (*classfile.ClassFile, error) {
	if cf, ok := c.get(name); ok {
		return cf, nil
	}
	v, err, _ := c.group.Do(name, func() (any, error) {
		if cf, ok := c.get(name); ok {
			return cf, nil
		}
		cf, err := read()
		if err != nil {
			return nil, err
		}
		if err := c.verify(name, cf); err != nil {
			return nil, err
		}
		c.put(name, cf)
		c.logger.Debug("loaded class", zap.String("class", name))
		return cf, nil
	})
	if err != nil {
		if !IsNotFound(err) {
			c.logger.Debug("failed to load class", zap.String("class", name), zap.Error(err))
		}
		return nil, err
	}
	return v.(*classfile.ClassFile), nil
}

func (c *classCache) verify(name string, cf *classfile.ClassFile) error {
	got, err := cf.ClassName()
	if err != nil {
		return &classfile.FormatError{Err: err}
	}
	if got != name {
		return &NameMismatchError{Want: name, Got: got, Source: c.source}
	}
	return nil
}

// hostError turns the error of reading a class's bytes into the loader's
// typed errors.
func hostError(name, source string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &NotFoundError{Name: name, Source: source}
	case errors.Is(err, fs.ErrPermission):
		return &AccessDeniedError{Name: name, Err: err}
	default:
		return err
	}
}

// delegate asks parent first. It reports handled=false when the parent
// does not know the class, so the caller should try its own source.
func delegate(parent ClassLoader, name string) (cf *classfile.ClassFile, handled bool, err error) {
	if parent == nil {
		return nil, false, nil
	}
	cf, err = parent.LoadClass(name)
	if IsNotFound(err) {
		return nil, false, nil
	}
	return cf, true, err
}
