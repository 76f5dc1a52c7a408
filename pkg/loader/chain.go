package loader

import (
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/daimatz/mirror/pkg/classfile"
)

// ChainClassLoader asks each loader in order and returns the first class
// found. Failures other than "not found" stop the search.
type ChainClassLoader struct {
	Loaders []ClassLoader
}

// Chain returns a ChainClassLoader over loaders.
func Chain(loaders ...ClassLoader) *ChainClassLoader {
	return &ChainClassLoader{Loaders: loaders}
}

func (cl *ChainClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	var (
		misses  error
		sources []string
	)
	for _, l := range cl.Loaders {
		cf, err := l.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
		misses = multierr.Append(misses, err)
		var nf *NotFoundError
		if errors.As(err, &nf) {
			sources = append(sources, nf.Source)
		}
	}
	return nil, &NotFoundError{Name: name, Source: "[" + strings.Join(sources, ", ") + "]", Err: misses}
}
