package mirror

import (
	"slices"

	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// MemberKind tells fields, methods and constructors apart.
type MemberKind uint8

const (
	MemberField MemberKind = iota + 1
	MemberMethod
	MemberConstructor
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberMethod:
		return "method"
	case MemberConstructor:
		return "constructor"
	default:
		return "unknown"
	}
}

// Member is a field, method or constructor mirror.
type Member interface {
	Kind() MemberKind
	Name() string
	// Descriptor is the raw JVM descriptor.
	Descriptor() string
	Modifiers() Modifiers
	Annotations() Annotations
	// DeclaringTypeName is the binary name of the declaring class.
	DeclaringTypeName() string
	// DeclaringType looks the declaring class up again through the cache.
	DeclaringType() (*TypeMirror, error)
	String() string
}

var (
	_ Member = (*FieldMirror)(nil)
	_ Member = (*MethodMirror)(nil)
	_ Member = (*ConstructorMirror)(nil)
)

// ownerRef points from a member to its declaring type without keeping the
// type, or its class file, alive.
type ownerRef struct {
	mirror   *Mirror
	handle   handle
	bindings Bindings
	name     string
}

func (o ownerRef) DeclaringTypeName() string { return o.name }

func (o ownerRef) DeclaringType() (*TypeMirror, error) {
	cf := o.handle.Value()
	if cf == nil {
		return nil, mirrorerrors.Newf(mirrorerrors.KindReflectiveOperation, "class %s is no longer loaded", o.name)
	}
	return o.mirror.rebuild(cf, o.bindings)
}

// FieldMirror is the immutable view of one field. Its TypeRefs are shared
// with the cache and must not be modified.
type FieldMirror struct {
	ownerRef
	desc *FieldDescriptor
	typ  *signature.TypeRef
}

func newFieldMirror(owner ownerRef, f *FieldDescriptor, sc *scope) (*FieldMirror, error) {
	typ, err := sc.resolve(f.Type)
	if err != nil {
		return nil, err
	}
	return &FieldMirror{ownerRef: owner, desc: f, typ: typ}, nil
}

func (f *FieldMirror) Kind() MemberKind { return MemberField }

func (f *FieldMirror) Name() string { return f.desc.Name }

func (f *FieldMirror) Descriptor() string { return f.desc.Descriptor }

func (f *FieldMirror) Modifiers() Modifiers { return f.desc.Modifiers }

func (f *FieldMirror) AccessFlags() uint16 { return f.desc.AccessFlags }

func (f *FieldMirror) Annotations() Annotations { return slices.Clone(f.desc.Annotations) }

// Annotation returns the annotation of the given binary type.
func (f *FieldMirror) Annotation(typeName string) (*Annotation, bool) {
	return f.desc.Annotations.Get(typeName)
}

// Type returns the field type under the declaring type's bindings.
func (f *FieldMirror) Type() *signature.TypeRef { return f.typ }

// GenericType returns the field type as declared.
func (f *FieldMirror) GenericType() *signature.TypeRef { return f.desc.Type }

// ConstantValue returns the compile-time constant of a static final field.
func (f *FieldMirror) ConstantValue() (any, bool) {
	return f.desc.Constant, f.desc.HasConstant
}

func (f *FieldMirror) String() string {
	s := f.typ.String() + " " + signature.DottedName(f.name) + "." + f.desc.Name
	if mods := f.desc.Modifiers.String(); mods != "" {
		s = mods + " " + s
	}
	return s
}
