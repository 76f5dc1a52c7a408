package mirror

import (
	"iter"
	"strings"

	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// paramsOf returns the "(...)" part of a method descriptor.
func paramsOf(descriptor string) string {
	if i := strings.IndexByte(descriptor, ')'); i >= 0 {
		return descriptor[:i+1]
	}
	return descriptor
}

// overridable reports whether subclasses can override m at all.
func overridable(m *MethodMirror) bool {
	return !m.desc.Modifiers.Has(Static) && !m.desc.Modifiers.Has(Private)
}

// visibleFrom reports whether m is inherited into a class of package pkg.
func visibleFrom(m *MethodMirror, pkg string) bool {
	mods := m.desc.Modifiers
	if mods.Has(Public) || mods.Has(Protected) {
		return true
	}
	return !mods.Has(Private) && signature.PackageName(m.name) == pkg
}

// Overrides reports whether m overrides other: other is declared by a
// proper supertype of m's class, the names match, the erased parameter
// types match, and m's return type is the same primitive or a subtype.
//
// Parameters are compared against other as seen from m's class when other
// was obtained through a parameterized supertype, and against other's raw
// descriptor otherwise.
func (m *MethodMirror) Overrides(other *MethodMirror) (bool, error) {
	if other == nil || m.desc.Name != other.desc.Name || m.name == other.name {
		return false, nil
	}
	if m.desc.Modifiers.Has(Static) || !overridable(other) || !visibleFrom(other, signature.PackageName(m.name)) {
		return false, nil
	}
	params := paramsOf(m.desc.Descriptor)
	if params != other.erased && params != paramsOf(other.desc.Descriptor) {
		return false, nil
	}
	r := m.mirror.resolver
	sub, err := r.IsSubtype(m.name, other.name)
	if err != nil || !sub {
		return false, mirrorErr(err)
	}
	ok, err := r.isAssignable(other.erasedReturn, m.desc.Erased.Return)
	if err != nil || ok {
		return ok, mirrorErr(err)
	}
	// Bridges keep the erasure of the declaration they override.
	ok, err = r.isAssignable(other.desc.Erased.Return, m.desc.Erased.Return)
	return ok, mirrorErr(err)
}

// Overridden returns the supertype methods m overrides, most derived
// declarer first.
func (m *MethodMirror) Overridden() ([]*MethodMirror, error) {
	t, err := m.DeclaringType()
	if err != nil {
		return nil, err
	}
	var out []*MethodMirror
	for _, ref := range t.supertypes {
		st, err := t.mirror.ReflectType(ref)
		if err != nil {
			return nil, err
		}
		for _, sm := range st.methods {
			ok, err := m.Overrides(sm)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, sm)
			}
		}
	}
	return out, nil
}

// OverridersOf returns the methods declared by candidates that override
// method. Candidates that are not subtypes of method's class contribute
// nothing.
func (m *Mirror) OverridersOf(method *MethodMirror, candidates []*TypeMirror) ([]*MethodMirror, error) {
	var out []*MethodMirror
	for _, c := range candidates {
		viewed, ok, err := m.viewThrough(method, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, cm := range c.methods {
			ok, err := cm.Overrides(viewed)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, cm)
			}
		}
	}
	return out, nil
}

// viewThrough returns method as sub sees it, through sub's parameterized
// reference to method's class.
func (m *Mirror) viewThrough(method *MethodMirror, sub *TypeMirror) (*MethodMirror, bool, error) {
	for _, ref := range sub.supertypes {
		if ref.Name != method.name {
			continue
		}
		st, err := m.ReflectType(ref)
		if err != nil {
			return nil, false, err
		}
		if viewed, ok := st.FindMethod(method.desc.Name, method.desc.Descriptor); ok {
			return viewed, true, nil
		}
		return method, true, nil
	}
	return nil, false, nil
}

// InheritedMethod is a method a class inherits and does not override.
//
// When only interfaces declare it and none of them is more specific than
// the others, every maximally specific declarer is listed and
// MultiplyInherited is set.
type InheritedMethod struct {
	// Method is the declaration of the first listed declaring type.
	Method            *MethodMirror
	Methods           []*MethodMirror
	DeclaringTypes    []string
	MultiplyInherited bool
}

type inheritedCandidate struct {
	method        *MethodMirror
	fromInterface bool
}

// InheritedMethods returns the methods t inherits from its supertypes and
// does not itself declare, in supertype order.
func (t *TypeMirror) InheritedMethods() ([]*InheritedMethod, error) {
	own := make(map[string]bool, len(t.methods))
	for _, m := range t.methods {
		own[m.desc.Name+paramsOf(m.desc.Descriptor)] = true
	}
	pkg := signature.PackageName(t.desc.Name)

	var (
		order  []string
		groups = make(map[string][]inheritedCandidate)
	)
	for _, ref := range t.supertypes {
		st, err := t.mirror.ReflectType(ref)
		if err != nil {
			return nil, err
		}
		for _, sm := range st.methods {
			if sm.desc.Modifiers.Has(Private) || !visibleFrom(sm, pkg) {
				continue
			}
			if st.IsInterface() && sm.desc.Modifiers.Has(Static) {
				continue
			}
			key := sm.desc.Name + sm.erased
			if own[key] || own[sm.desc.Name+paramsOf(sm.desc.Descriptor)] {
				continue
			}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], inheritedCandidate{method: sm, fromInterface: st.IsInterface()})
		}
	}

	out := make([]*InheritedMethod, 0, len(order))
	for _, key := range order {
		im, err := t.mirror.pickInherited(groups[key])
		if err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, nil
}

// pickInherited applies the inheritance rules to the declarations of one
// signature: a class declaration beats every interface, and a
// subinterface beats its superinterfaces.
func (m *Mirror) pickInherited(cands []inheritedCandidate) (*InheritedMethod, error) {
	for _, c := range cands {
		if !c.fromInterface {
			return &InheritedMethod{
				Method:         c.method,
				Methods:        []*MethodMirror{c.method},
				DeclaringTypes: []string{c.method.name},
			}, nil
		}
	}
	var kept []*MethodMirror
	for i, c := range cands {
		shadowed := false
		for j, o := range cands {
			if i == j || o.method.name == c.method.name {
				continue
			}
			sub, err := m.resolver.IsSubtype(o.method.name, c.method.name)
			if err != nil {
				return nil, mirrorErr(err)
			}
			if sub {
				shadowed = true
				break
			}
		}
		if !shadowed {
			kept = append(kept, c.method)
		}
	}
	im := &InheritedMethod{
		Method:            kept[0],
		Methods:           kept,
		MultiplyInherited: len(kept) > 1,
	}
	for _, k := range kept {
		im.DeclaringTypes = append(im.DeclaringTypes, k.name)
	}
	return im, nil
}

// AllMembers yields the declared fields, constructors and methods of t,
// then the fields and methods of each supertype in Supertypes order.
// Supertypes are mirrored only as iteration reaches them. A failure is
// yielded once with a nil Member and ends the sequence. The sequence can
// be ranged over any number of times.
func (t *TypeMirror) AllMembers() iter.Seq2[Member, error] {
	return func(yield func(Member, error) bool) {
		if !yieldDeclared(t, true, yield) {
			return
		}
		for _, ref := range t.supertypes {
			st, err := t.mirror.ReflectType(ref)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yieldDeclared(st, false, yield) {
				return
			}
		}
	}
}

func yieldDeclared(t *TypeMirror, constructors bool, yield func(Member, error) bool) bool {
	for _, f := range t.fields {
		if !yield(f, nil) {
			return false
		}
	}
	if constructors {
		for _, c := range t.constructors {
			if !yield(c, nil) {
				return false
			}
		}
	}
	for _, m := range t.methods {
		if !yield(m, nil) {
			return false
		}
	}
	return true
}

// FindMember returns the first member in AllMembers order with the given
// name and raw descriptor. An empty descriptor matches any. A missing
// member is not an error.
func (t *TypeMirror) FindMember(name, descriptor string) (Member, bool, error) {
	for m, err := range t.AllMembers() {
		if err != nil {
			return nil, false, err
		}
		if m.Name() == name && (descriptor == "" || m.Descriptor() == descriptor) {
			return m, true, nil
		}
	}
	return nil, false, nil
}

// mirrorErr maps err into the taxonomy, keeping nil as an untyped nil.
func mirrorErr(err error) error {
	if err == nil {
		return nil
	}
	return mirrorerrors.FromError(err)
}
