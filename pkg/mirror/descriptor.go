package mirror

import (
	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/signature"
)

// TypeDescriptor is the flat fact set the Adapter extracts from one class
// file. Type references are unresolved: type variables appear as written.
// It never refers back to the class file it came from.
type TypeDescriptor struct {
	// Name is the binary name ("java/util/Map$Entry").
	Name        string
	AccessFlags uint16
	Modifiers   Modifiers
	TypeParams  []signature.TypeParam

	// Super is nil for java/lang/Object and for interfaces.
	Super      *signature.TypeRef
	Interfaces []*signature.TypeRef

	// Enclosing is the binary name of the lexically enclosing class, or "".
	Enclosing string
	// EnclosingMethod is set for local and anonymous classes declared
	// inside a method or constructor.
	EnclosingMethod *EnclosingMethod
	// CapturesEnclosing is set for inner (non-static) member classes and
	// for local and anonymous classes, whose bodies see the type parameters
	// of the enclosing class.
	CapturesEnclosing bool

	InnerTypes  []string
	Annotations Annotations
	Record      bool

	Fields       []*FieldDescriptor
	Methods      []*MethodDescriptor
	Constructors []*MethodDescriptor
}

// EnclosingMethod names the method a local class is declared in.
type EnclosingMethod struct {
	Class      string
	Name       string
	Descriptor string
}

func (d *TypeDescriptor) IsInterface() bool { return d.AccessFlags&classfile.AccInterface != 0 }

func (d *TypeDescriptor) IsAnnotation() bool { return d.AccessFlags&classfile.AccAnnotation != 0 }

func (d *TypeDescriptor) IsEnum() bool { return d.AccessFlags&classfile.AccEnum != 0 }

// Method returns the declared method or constructor with the given name
// and raw descriptor.
func (d *TypeDescriptor) Method(name, descriptor string) *MethodDescriptor {
	methods := d.Methods
	if name == constructorName {
		methods = d.Constructors
	}
	for _, m := range methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// TypeParamNames returns the names of the declared type parameters.
func (d *TypeDescriptor) TypeParamNames() []string {
	names := make([]string, len(d.TypeParams))
	for i, p := range d.TypeParams {
		names[i] = p.Name
	}
	return names
}

// FieldDescriptor describes one declared field.
type FieldDescriptor struct {
	Name          string
	AccessFlags   uint16
	Modifiers     Modifiers
	DeclaringType string
	// Descriptor is the raw field descriptor ("I", "Ljava/lang/String;").
	Descriptor string
	// Type is the generic type if the field has a Signature, otherwise the
	// descriptor type.
	Type        *signature.TypeRef
	Annotations Annotations

	// Constant holds the ConstantValue of a static final field, converted
	// to the Go type matching the field type.
	Constant    any
	HasConstant bool
}

// MethodDescriptor describes one declared method or constructor.
type MethodDescriptor struct {
	Name          string
	AccessFlags   uint16
	Modifiers     Modifiers
	DeclaringType string
	// Descriptor is the raw method descriptor; its parameter types are the
	// erasure javac emitted.
	Descriptor  string
	Erased      *signature.MethodType
	TypeParams  []signature.TypeParam
	Params      []*ParameterDescriptor
	Return      *signature.TypeRef
	Throws      []*signature.TypeRef
	Annotations Annotations
}

// IsConstructor reports whether d is an instance initializer.
func (d *MethodDescriptor) IsConstructor() bool { return d.Name == constructorName }

// ParameterDescriptor describes one formal parameter.
type ParameterDescriptor struct {
	// Name comes from MethodParameters, or is "argN" when absent.
	Name        string
	NamePresent bool
	Modifiers   Modifiers
	Type        *signature.TypeRef
	Annotations Annotations
}

const (
	constructorName      = "<init>"
	classInitializerName = "<clinit>"
)
