// Package mirror builds immutable, cached structural views of JVM classes.
//
// A Mirror reads class files through a loader.ClassLoader and hands out
// TypeMirrors. For a given class file and binding context there is exactly
// one TypeMirror per Mirror; it is built once, however many goroutines ask
// for it concurrently, and forgotten when the class file becomes
// unreachable. Every error a Mirror returns is a *mirrorerrors.Error.
package mirror

import (
	"go.uber.org/zap"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// Mirror is one cache scope over a class loader.
type Mirror struct {
	loader   loader.ClassLoader
	adapter  *Adapter
	resolver *Resolver
	cache    *Cache
	logger   *zap.Logger
}

// New returns a Mirror reading classes from l.
func New(l loader.ClassLoader, opts ...Option) (*Mirror, error) {
	o := newOptions(opts)
	parser, err := signature.NewParser(o.signatureCacheSize)
	if err != nil {
		return nil, err
	}
	adapter, err := NewAdapter(WithParser(parser), WithPolicy(o.policy), WithHook(o.hook))
	if err != nil {
		return nil, err
	}
	m := &Mirror{
		loader:  l,
		adapter: adapter,
		cache:   newCache(o.logger, newObserver(o.meter, o.logger)),
		logger:  o.logger,
	}
	m.resolver = &Resolver{loader: l, describe: m.describe}
	return m, nil
}

func (m *Mirror) describe(cf *classfile.ClassFile) (*described, error) {
	return m.cache.describe(cf, m.adapter.Adapt)
}

// Cache returns the mirror cache of this scope.
func (m *Mirror) Cache() *Cache { return m.cache }

// Resolver returns the resolver of this scope.
func (m *Mirror) Resolver() *Resolver { return m.resolver }

// Purge empties the cache.
func (m *Mirror) Purge() { m.cache.Purge() }

// Reflect loads the class with the given binary name and returns its
// mirror under b.
func (m *Mirror) Reflect(name string, b Bindings) (*TypeMirror, error) {
	cf, err := m.loader.LoadClass(name)
	if err != nil {
		return nil, mirrorerrors.Wrapf(err, "loading %s", name)
	}
	return m.GetOrCreate(cf, b)
}

// ReflectType returns the mirror of a class type reference. Its type
// arguments, and those of a parameterized owner, become the bindings.
func (m *Mirror) ReflectType(ref *signature.TypeRef) (*TypeMirror, error) {
	if ref == nil || ref.Kind != signature.KindClass {
		return nil, mirrorerrors.Newf(mirrorerrors.KindReflectiveOperation, "%s is not a class type", ref)
	}
	cf, err := m.loader.LoadClass(ref.Name)
	if err != nil {
		return nil, mirrorerrors.Wrapf(err, "loading %s", ref.Name)
	}
	info, err := m.describe(cf)
	if err != nil {
		return nil, mirrorerrors.FromError(err)
	}
	b, err := m.resolver.BindingsFor(info.desc, ref)
	if err != nil {
		return nil, mirrorerrors.FromError(err)
	}
	return m.getOrCreate(cf, info, b)
}

// GetOrCreate returns the canonical mirror of cf under b. Bindings for
// names cf does not declare are dropped before lookup, unless cf is an
// inner or local class that sees enclosing type parameters.
//
// Every remaining argument must be a reference type, and any type variable
// inside it must be one cf can see. A primitive argument is a
// MalformedDescriptorError; a missing argument or a foreign type variable
// is an UnresolvedBindingError.
func (m *Mirror) GetOrCreate(cf *classfile.ClassFile, b Bindings) (*TypeMirror, error) {
	if cf == nil {
		return nil, mirrorerrors.Newf(mirrorerrors.KindReflectiveOperation, "nil class file")
	}
	info, err := m.describe(cf)
	if err != nil {
		return nil, mirrorerrors.FromError(err)
	}
	b = normalize(info.desc, b)
	if err := m.resolver.CheckBindings(info.desc, b); err != nil {
		return nil, mirrorerrors.FromError(err)
	}
	return m.getOrCreate(cf, info, b)
}

// rebuild returns the mirror of cf under bindings derived from another
// mirror. Their arguments may name variables of the type they came from.
func (m *Mirror) rebuild(cf *classfile.ClassFile, b Bindings) (*TypeMirror, error) {
	info, err := m.describe(cf)
	if err != nil {
		return nil, mirrorerrors.FromError(err)
	}
	return m.getOrCreate(cf, info, b)
}

func (m *Mirror) getOrCreate(cf *classfile.ClassFile, info *described, b Bindings) (*TypeMirror, error) {
	b = normalize(info.desc, b)
	t, err := m.cache.getOrCreate(cf, b.Key(), func() (*TypeMirror, error) {
		return m.build(cf, info, b)
	})
	if err != nil {
		return nil, mirrorerrors.FromError(err)
	}
	return t, nil
}

func normalize(d *TypeDescriptor, b Bindings) Bindings {
	if b.Len() == 0 || d.CapturesEnclosing {
		return b
	}
	declared := make(map[string]bool, len(d.TypeParams))
	for _, p := range d.TypeParams {
		declared[p.Name] = true
	}
	return b.restrict(func(name string) bool { return declared[name] })
}
