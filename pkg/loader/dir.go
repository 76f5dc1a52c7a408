package loader

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/daimatz/mirror/pkg/classfile"
)

// DirClassLoader loads classes from a class directory, delegating to the
// parent first.
type DirClassLoader struct {
	ClassPath string
	Parent    ClassLoader
	cache     *classCache
}

// NewDirClassLoader creates a loader over the directory classPath. parent
// may be nil.
func NewDirClassLoader(classPath string, parent ClassLoader, opts ...Option) *DirClassLoader {
	o := newOptions(opts)
	return &DirClassLoader{
		ClassPath: classPath,
		Parent:    parent,
		cache:     newClassCache(classPath, o.logger),
	}
}

func (cl *DirClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, handled, err := delegate(cl.Parent, name); handled {
		return cf, err
	}
	return cl.cache.load(name, func() (*classfile.ClassFile, error) {
		path := filepath.Join(cl.ClassPath, filepath.FromSlash(name)+".class")
		cf, err := classfile.ParseFile(path)
		if err != nil {
			if herr := hostError(name, cl.ClassPath, err); herr != err {
				return nil, herr
			}
			return nil, fmt.Errorf("dir: parsing %s: %w", path, err)
		}
		return cf, nil
	})
}

// ClassNames walks the directory and lists every class file in it.
func (cl *DirClassLoader) ClassNames() ([]string, error) {
	var names []string
	err := filepath.WalkDir(cl.ClassPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(cl.ClassPath, path)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), ".class"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dir: walking %s: %w", cl.ClassPath, err)
	}
	return names, nil
}
