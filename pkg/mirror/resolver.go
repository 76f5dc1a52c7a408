package mirror

import (
	"slices"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// Resolver computes the facts that depend on more than one class file:
// supertype chains, type-variable scopes and bindings, and subtyping.
//
// It walks descriptors loaded through the class loader and never asks the
// mirror cache, so building one mirror never waits on another.
type Resolver struct {
	loader   loader.ClassLoader
	describe func(*classfile.ClassFile) (*described, error)
}

// Describe loads name and returns its descriptor.
func (r *Resolver) Describe(name string) (*TypeDescriptor, error) {
	cf, err := r.loader.LoadClass(name)
	if err != nil {
		return nil, mirrorerrors.Wrapf(err, "loading %s", name)
	}
	info, err := r.describe(cf)
	if err != nil {
		return nil, err
	}
	return info.desc, nil
}

func superNames(d *TypeDescriptor) []string {
	names := make([]string, 0, len(d.Interfaces)+1)
	if d.Super != nil {
		names = append(names, d.Super.Name)
	}
	for _, t := range d.Interfaces {
		names = append(names, t.Name)
	}
	return names
}

const (
	visiting = iota + 1
	visited
)

// CheckHierarchy fails with a KindCyclicHierarchy error if a supertype of
// d, direct or not, is a subtype of itself.
func (r *Resolver) CheckHierarchy(d *TypeDescriptor) error {
	state := make(map[string]int)
	var path []string
	var visit func(d *TypeDescriptor) error
	visit = func(d *TypeDescriptor) error {
		switch state[d.Name] {
		case visiting:
			i := slices.Index(path, d.Name)
			return mirrorerrors.CyclicHierarchy(append(slices.Clone(path[i:]), d.Name))
		case visited:
			return nil
		}
		state[d.Name] = visiting
		path = append(path, d.Name)
		for _, name := range superNames(d) {
			sd, err := r.Describe(name)
			if err != nil {
				return err
			}
			if err := visit(sd); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[d.Name] = visited
		return nil
	}
	return visit(d)
}

// Supertypes returns every supertype of d viewed under b, most derived
// first: the superclass chain, then the interfaces breadth-first. Each type
// appears once, identified by its erasure.
func (r *Resolver) Supertypes(d *TypeDescriptor, b Bindings) ([]*signature.TypeRef, error) {
	if err := r.CheckHierarchy(d); err != nil {
		return nil, err
	}
	return r.supertypes(d, b)
}

// supertypes assumes the hierarchy of d is acyclic.
func (r *Resolver) supertypes(d *TypeDescriptor, b Bindings) ([]*signature.TypeRef, error) {
	type level struct {
		desc     *TypeDescriptor
		bindings Bindings
	}
	var (
		out     []*signature.TypeRef
		seen    = make(map[string]bool)
		classes = []level{{d, b}}
	)
	cur := level{d, b}
	for cur.desc.Super != nil {
		sc, err := r.scopeOf(cur.desc, cur.bindings)
		if err != nil {
			return nil, err
		}
		super, err := sc.resolve(cur.desc.Super)
		if err != nil {
			return nil, err
		}
		sd, err := r.Describe(super.Name)
		if err != nil {
			return nil, err
		}
		sb, err := r.BindingsFor(sd, super)
		if err != nil {
			return nil, err
		}
		out = append(out, super)
		seen[super.Name] = true
		cur = level{sd, sb}
		classes = append(classes, cur)
	}

	var queue []level
	enqueue := func(l level) error {
		if len(l.desc.Interfaces) == 0 {
			return nil
		}
		sc, err := r.scopeOf(l.desc, l.bindings)
		if err != nil {
			return err
		}
		for _, raw := range l.desc.Interfaces {
			iface, err := sc.resolve(raw)
			if err != nil {
				return err
			}
			if seen[iface.Name] {
				continue
			}
			seen[iface.Name] = true
			id, err := r.Describe(iface.Name)
			if err != nil {
				return err
			}
			ib, err := r.BindingsFor(id, iface)
			if err != nil {
				return err
			}
			out = append(out, iface)
			queue = append(queue, level{id, ib})
		}
		return nil
	}
	for _, c := range classes {
		if err := enqueue(c); err != nil {
			return nil, err
		}
	}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if err := enqueue(next); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BindingsFor returns the bindings a parameterized reference to d implies,
// including those of a parameterized owner such as Outer<String>.Inner.
// A raw reference binds nothing.
func (r *Resolver) BindingsFor(d *TypeDescriptor, ref *signature.TypeRef) (Bindings, error) {
	m := make(map[string]*signature.TypeRef)
	if err := r.collectBindings(d, ref, m); err != nil {
		return NoBindings, err
	}
	return newBindings(m), nil
}

func (r *Resolver) collectBindings(d *TypeDescriptor, ref *signature.TypeRef, m map[string]*signature.TypeRef) error {
	if ref.Owner != nil && ref.Owner.Kind == signature.KindClass {
		od, err := r.Describe(ref.Owner.Name)
		if err != nil {
			return err
		}
		// Outer bindings first so the inner type's own names win.
		if err := r.collectBindings(od, ref.Owner, m); err != nil {
			return err
		}
	}
	if len(ref.Args) == 0 {
		return nil
	}
	if len(ref.Args) != len(d.TypeParams) {
		return mirrorerrors.Newf(mirrorerrors.KindMalformedDescriptor,
			"%s declares %d type parameters but %s supplies %d", d.Name, len(d.TypeParams), ref, len(ref.Args))
	}
	for i, p := range d.TypeParams {
		if err := checkArgument(p.Name, ref.Args[i]); err != nil {
			return err
		}
		m[p.Name] = ref.Args[i]
	}
	return nil
}

// CheckBindings reports the first argument in b that cannot stand for a
// type parameter of d. Type variables inside an argument must be visible
// in d itself, either its own or those of an enclosing declaration.
func (r *Resolver) CheckBindings(d *TypeDescriptor, b Bindings) error {
	if b.Len() == 0 {
		return nil
	}
	sc, err := r.scopeOf(d, NoBindings)
	if err != nil {
		return err
	}
	for _, name := range b.Names() {
		arg, _ := b.Lookup(name)
		if err := checkArgument(name, arg); err != nil {
			return err
		}
		_, err := arg.Map(func(v *signature.TypeRef) (*signature.TypeRef, error) {
			if _, ok := sc.declared[v.Name]; ok {
				return v, nil
			}
			return nil, mirrorerrors.Newf(mirrorerrors.KindUnresolvedBinding,
				"argument %s for %s names type variable %s, which %s does not declare", arg, name, v.Name, d.Name)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func checkArgument(name string, arg *signature.TypeRef) error {
	switch {
	case arg == nil:
		return mirrorerrors.Newf(mirrorerrors.KindUnresolvedBinding, "no argument bound to %s", name)
	case !arg.IsReference():
		return mirrorerrors.Newf(mirrorerrors.KindMalformedDescriptor,
			"%s bound to %s: type arguments must be reference types", name, arg)
	}
	return nil
}

// scopeOf collects the type variables visible in d: its own, and for
// inner and local classes those of the enclosing classes and method.
func (r *Resolver) scopeOf(d *TypeDescriptor, b Bindings) (*scope, error) {
	s := &scope{
		owner:    d.Name,
		bindings: b,
		declared: make(map[string]signature.TypeParam, len(d.TypeParams)),
	}
	declare := func(params []signature.TypeParam) {
		for _, p := range params {
			if _, ok := s.declared[p.Name]; !ok {
				s.declared[p.Name] = p
			}
		}
	}
	declare(d.TypeParams)

	seen := map[string]bool{d.Name: true}
	for cur := d; cur.CapturesEnclosing && cur.Enclosing != "" && !seen[cur.Enclosing]; {
		seen[cur.Enclosing] = true
		ed, err := r.Describe(cur.Enclosing)
		if err != nil {
			return nil, err
		}
		if em := cur.EnclosingMethod; em != nil {
			if m := ed.Method(em.Name, em.Descriptor); m != nil {
				declare(m.TypeParams)
			}
		}
		declare(ed.TypeParams)
		cur = ed
	}
	return s, nil
}

// IsSubtype reports whether the class named sub is sup or inherits from it,
// ignoring type arguments.
func (r *Resolver) IsSubtype(sub, sup string) (bool, error) {
	if sub == sup || sup == signature.ObjectName {
		return true, nil
	}
	seen := map[string]bool{sub: true}
	queue := []string{sub}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		d, err := r.Describe(name)
		if err != nil {
			return false, err
		}
		for _, s := range superNames(d) {
			if s == sup {
				return true, nil
			}
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
	return false, nil
}

// isAssignable reports whether a value of erased type from can be used
// where erased type to is expected.
func (r *Resolver) isAssignable(to, from *signature.TypeRef) (bool, error) {
	switch {
	case to.Kind == signature.KindPrimitive || from.Kind == signature.KindPrimitive:
		return to.Kind == from.Kind && to.Name == from.Name, nil
	case from.Kind == signature.KindArray:
		switch {
		case to.Kind == signature.KindArray:
			return r.isAssignable(to.Elem, from.Elem)
		case to.Kind == signature.KindClass:
			switch to.Name {
			case signature.ObjectName, "java/lang/Cloneable", "java/io/Serializable":
				return true, nil
			}
		}
		return false, nil
	case to.Kind == signature.KindClass && from.Kind == signature.KindClass:
		return r.IsSubtype(from.Name, to.Name)
	}
	return false, nil
}
