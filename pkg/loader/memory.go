package loader

import (
	"github.com/daimatz/mirror/pkg/classfile"
)

// MemoryClassLoader serves classes defined at runtime. Unloading a class
// drops the loader's reference to it, which is how embedders release a
// class for reclamation.
type MemoryClassLoader struct {
	Parent ClassLoader
	cache  *classCache
}

// NewMemoryClassLoader returns an empty loader. parent may be nil.
func NewMemoryClassLoader(parent ClassLoader, opts ...Option) *MemoryClassLoader {
	o := newOptions(opts)
	return &MemoryClassLoader{
		Parent: parent,
		cache:  newClassCache("memory", o.logger),
	}
}

// Define adds a parsed class under its own name, replacing any class of
// the same name.
func (cl *MemoryClassLoader) Define(cf *classfile.ClassFile) error {
	name, err := cf.ClassName()
	if err != nil {
		return &classfile.FormatError{Err: err}
	}
	cl.cache.put(name, cf)
	return nil
}

// DefineBytes parses data and defines the resulting class.
func (cl *MemoryClassLoader) DefineBytes(data []byte) (*classfile.ClassFile, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if err := cl.Define(cf); err != nil {
		return nil, err
	}
	return cf, nil
}

// Unload removes a class. It reports whether the class was defined.
func (cl *MemoryClassLoader) Unload(name string) bool {
	return cl.cache.remove(name)
}

func (cl *MemoryClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, handled, err := delegate(cl.Parent, name); handled {
		return cf, err
	}
	if cf, ok := cl.cache.get(name); ok {
		return cf, nil
	}
	return nil, &NotFoundError{Name: name, Source: "memory"}
}
