package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/daimatz/mirror/pkg/classfile"
)

// jmodMagic starts every jmod file ahead of the zip data.
const jmodMagic = "JM\x01\x00"

// archive is a lazily opened zip of class files. Entries are indexed by
// class name on first use.
type archive struct {
	path   string
	kind   string // "jmod" or "jar"
	prefix string // entry prefix in front of class names

	mu    sync.Mutex
	files map[string]*zip.File
}

func (a *archive) index() (map[string]*zip.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.files != nil {
		return a.files, nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("%s: reading %s: %w", a.kind, a.path, err)
	}
	if a.kind == "jmod" {
		if !bytes.HasPrefix(data, []byte(jmodMagic)) {
			return nil, fmt.Errorf("%s: %s has no jmod header", a.kind, a.path)
		}
		data = data[len(jmodMagic):]
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: opening zip %s: %w", a.kind, a.path, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		name, ok := strings.CutPrefix(f.Name, a.prefix)
		if !ok {
			continue
		}
		if name, ok = strings.CutSuffix(name, ".class"); ok {
			files[name] = f
		}
	}
	a.files = files
	return files, nil
}

func (a *archive) read(name string) (*classfile.ClassFile, error) {
	files, err := a.index()
	if err != nil {
		return nil, hostError(name, a.path, err)
	}
	f, ok := files[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Source: a.path}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: opening %s: %w", a.kind, f.Name, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing %s: %w", a.kind, name, err)
	}
	return cf, nil
}

// classNames lists every class in the archive.
func (a *archive) classNames() ([]string, error) {
	files, err := a.index()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	return names, nil
}

// JmodClassLoader loads classes from a JDK jmod file.
type JmodClassLoader struct {
	archive *archive
	cache   *classCache
}

// NewJmodClassLoader creates a loader over the jmod at path. The file is
// opened on first use.
func NewJmodClassLoader(path string, opts ...Option) *JmodClassLoader {
	o := newOptions(opts)
	return &JmodClassLoader{
		archive: &archive{path: path, kind: "jmod", prefix: "classes/"},
		cache:   newClassCache(path, o.logger),
	}
}

func (cl *JmodClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	return cl.cache.load(name, func() (*classfile.ClassFile, error) {
		return cl.archive.read(name)
	})
}

// ClassNames lists the classes the jmod contains.
func (cl *JmodClassLoader) ClassNames() ([]string, error) {
	return cl.archive.classNames()
}

// JarClassLoader loads classes from a jar file, delegating to the parent first.
type JarClassLoader struct {
	Parent  ClassLoader
	archive *archive
	cache   *classCache
}

// NewJarClassLoader creates a loader over the jar at path. parent may be nil.
func NewJarClassLoader(path string, parent ClassLoader, opts ...Option) *JarClassLoader {
	o := newOptions(opts)
	return &JarClassLoader{
		Parent:  parent,
		archive: &archive{path: path, kind: "jar"},
		cache:   newClassCache(path, o.logger),
	}
}

func (cl *JarClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, handled, err := delegate(cl.Parent, name); handled {
		return cf, err
	}
	return cl.cache.load(name, func() (*classfile.ClassFile, error) {
		return cl.archive.read(name)
	})
}

// ClassNames lists the classes the jar contains, not including the parent's.
func (cl *JarClassLoader) ClassNames() ([]string, error) {
	return cl.archive.classNames()
}
