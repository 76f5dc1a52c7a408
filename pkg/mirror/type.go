package mirror

import (
	"fmt"
	"slices"
	"strings"
	"weak"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// TypeParameter is a declared type variable with its bounds resolved in
// the declaring context.
type TypeParameter struct {
	Name   string
	Bounds []*signature.TypeRef
}

func (p TypeParameter) String() string {
	if len(p.Bounds) == 0 || (len(p.Bounds) == 1 && p.Bounds[0].IsObject()) {
		return p.Name
	}
	bounds := make([]string, len(p.Bounds))
	for i, b := range p.Bounds {
		bounds[i] = b.String()
	}
	return p.Name + " extends " + strings.Join(bounds, " & ")
}

// TypeMirror is the immutable view of one class under one binding context.
//
// Mirrors are shared by every caller that asks for the same class and
// bindings. The TypeRefs, slices and annotations they return are shared with
// them and must not be modified.
type TypeMirror struct {
	mirror   *Mirror
	handle   handle
	id       uint64
	desc     *TypeDescriptor
	bindings Bindings

	self       *signature.TypeRef
	typeParams []TypeParameter
	super      *signature.TypeRef
	interfaces []*signature.TypeRef
	supertypes []*signature.TypeRef

	fields       []*FieldMirror
	methods      []*MethodMirror
	constructors []*ConstructorMirror
}

// build constructs the mirror of cf under b. It holds cf only weakly.
func (m *Mirror) build(cf *classfile.ClassFile, info *described, b Bindings) (*TypeMirror, error) {
	d := info.desc
	r := m.resolver
	if err := r.CheckHierarchy(d); err != nil {
		return nil, err
	}
	sc, err := r.scopeOf(d, b)
	if err != nil {
		return nil, mirrorerrors.Wrapf(err, "resolving %s", d.Name)
	}
	t := &TypeMirror{
		mirror:   m,
		handle:   weak.Make(cf),
		id:       info.id,
		desc:     d,
		bindings: b,
	}
	if t.typeParams, err = sc.resolveParams(d.TypeParams); err != nil {
		return nil, mirrorerrors.Wrapf(err, "resolving %s", d.Name)
	}
	args := make([]*signature.TypeRef, len(d.TypeParams))
	for i, p := range d.TypeParams {
		if args[i], err = sc.resolve(signature.Var(p.Name)); err != nil {
			return nil, err
		}
	}
	t.self = signature.Class(d.Name, args...)
	if d.Super != nil {
		if t.super, err = sc.resolve(d.Super); err != nil {
			return nil, mirrorerrors.Wrapf(err, "resolving %s superclass", d.Name)
		}
	}
	if t.interfaces, err = sc.resolveAll(d.Interfaces); err != nil {
		return nil, mirrorerrors.Wrapf(err, "resolving %s interfaces", d.Name)
	}
	if t.supertypes, err = r.supertypes(d, b); err != nil {
		return nil, mirrorerrors.Wrapf(err, "resolving %s supertypes", d.Name)
	}

	owner := ownerRef{mirror: m, handle: t.handle, bindings: b, name: d.Name}
	for _, f := range d.Fields {
		fm, err := newFieldMirror(owner, f, sc)
		if err != nil {
			return nil, mirrorerrors.Wrapf(err, "resolving %s.%s", d.Name, f.Name)
		}
		t.fields = append(t.fields, fm)
	}
	for _, md := range d.Methods {
		mm, err := newMethodMirror(owner, md, sc)
		if err != nil {
			return nil, mirrorerrors.Wrapf(err, "resolving %s.%s%s", d.Name, md.Name, md.Descriptor)
		}
		t.methods = append(t.methods, mm)
	}
	for _, md := range d.Constructors {
		cm, err := newConstructorMirror(owner, md, sc)
		if err != nil {
			return nil, mirrorerrors.Wrapf(err, "resolving %s constructor %s", d.Name, md.Descriptor)
		}
		t.constructors = append(t.constructors, cm)
	}
	return t, nil
}

// Name returns the binary name, such as "java/util/Map$Entry".
func (t *TypeMirror) Name() string { return t.desc.Name }

// DottedName returns the name with dots, such as "java.util.Map$Entry".
func (t *TypeMirror) DottedName() string { return signature.DottedName(t.desc.Name) }

// SimpleName returns the name without package or enclosing class.
func (t *TypeMirror) SimpleName() string { return signature.SimpleName(t.desc.Name) }

func (t *TypeMirror) PackageName() string { return signature.PackageName(t.desc.Name) }

func (t *TypeMirror) Modifiers() Modifiers { return t.desc.Modifiers }

// AccessFlags returns the class-file access flags.
func (t *TypeMirror) AccessFlags() uint16 { return t.desc.AccessFlags }

func (t *TypeMirror) IsInterface() bool { return t.desc.IsInterface() }

func (t *TypeMirror) IsAnnotation() bool { return t.desc.IsAnnotation() }

func (t *TypeMirror) IsEnum() bool { return t.desc.IsEnum() }

func (t *TypeMirror) IsRecord() bool { return t.desc.Record }

// IsClass reports whether t is neither an interface nor an annotation type.
func (t *TypeMirror) IsClass() bool { return !t.desc.IsInterface() }

// Bindings returns the binding context t was built under.
func (t *TypeMirror) Bindings() Bindings { return t.bindings }

// Type returns t as a type reference: bound parameters as their bindings,
// the others as open variables.
func (t *TypeMirror) Type() *signature.TypeRef { return t.self }

func (t *TypeMirror) TypeParameters() []TypeParameter { return slices.Clone(t.typeParams) }

// TypeArgument returns the binding of a declared type parameter.
func (t *TypeMirror) TypeArgument(name string) (*signature.TypeRef, bool) {
	return t.bindings.Lookup(name)
}

// Superclass returns the direct superclass. It is absent for
// java/lang/Object and for interfaces.
func (t *TypeMirror) Superclass() (*signature.TypeRef, bool) {
	return t.super, t.super != nil
}

func (t *TypeMirror) Interfaces() []*signature.TypeRef { return slices.Clone(t.interfaces) }

// Supertypes returns every supertype, most derived first.
func (t *TypeMirror) Supertypes() []*signature.TypeRef { return slices.Clone(t.supertypes) }

// EnclosingType returns the binary name of the lexically enclosing class.
func (t *TypeMirror) EnclosingType() (string, bool) {
	return t.desc.Enclosing, t.desc.Enclosing != ""
}

// InnerTypes returns the binary names of the member classes.
func (t *TypeMirror) InnerTypes() []string { return slices.Clone(t.desc.InnerTypes) }

func (t *TypeMirror) Annotations() Annotations { return slices.Clone(t.desc.Annotations) }

// Annotation returns the annotation of the given binary type.
func (t *TypeMirror) Annotation(typeName string) (*Annotation, bool) {
	return t.desc.Annotations.Get(typeName)
}

func (t *TypeMirror) Fields() []*FieldMirror { return slices.Clone(t.fields) }

func (t *TypeMirror) Methods() []*MethodMirror { return slices.Clone(t.methods) }

func (t *TypeMirror) Constructors() []*ConstructorMirror { return slices.Clone(t.constructors) }

// FindField returns the declared field with the given name.
func (t *TypeMirror) FindField(name string) (*FieldMirror, bool) {
	for _, f := range t.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// FindMethod returns a declared method. An empty descriptor matches the
// first method of that name.
func (t *TypeMirror) FindMethod(name, descriptor string) (*MethodMirror, bool) {
	for _, m := range t.methods {
		if m.Name() == name && (descriptor == "" || m.Descriptor() == descriptor) {
			return m, true
		}
	}
	return nil, false
}

// FindConstructor returns the declared constructor with the given
// descriptor, or the first one if descriptor is empty.
func (t *TypeMirror) FindConstructor(descriptor string) (*ConstructorMirror, bool) {
	for _, c := range t.constructors {
		if descriptor == "" || c.Descriptor() == descriptor {
			return c, true
		}
	}
	return nil, false
}

// Raw returns the class file t was built from, if it is still reachable.
func (t *TypeMirror) Raw() (*classfile.ClassFile, bool) {
	cf := t.handle.Value()
	return cf, cf != nil
}

// IsAssignableFrom reports whether a reference of type other can be
// assigned to one of type t, ignoring type arguments.
func (t *TypeMirror) IsAssignableFrom(other *TypeMirror) bool {
	if other == nil {
		return false
	}
	if other.desc.Name == t.desc.Name || t.desc.Name == signature.ObjectName {
		return true
	}
	for _, s := range other.supertypes {
		if s.Name == t.desc.Name {
			return true
		}
	}
	return false
}

// Key identifies t within its Mirror: the class-file identity and the
// binding context.
func (t *TypeMirror) Key() string {
	return fmt.Sprintf("%s#%d{%s}", t.desc.Name, t.id, t.bindings.Key())
}

// Equal reports whether t and o mirror the same class file under the same
// bindings.
func (t *TypeMirror) Equal(o *TypeMirror) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.handle == o.handle && t.bindings.Equal(o.bindings)
}

func (t *TypeMirror) String() string {
	return t.self.String()
}
