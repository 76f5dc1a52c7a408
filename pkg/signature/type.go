// Package signature parses JVM field and method descriptors and the generic
// Signature attribute grammar into TypeRef trees.
//
// TypeRef values are immutable once built. Parsers hand out shared trees, so
// callers must never modify a TypeRef they did not construct themselves.
package signature

import (
	"strings"
)

// Kind classifies a TypeRef.
type Kind uint8

const (
	KindPrimitive Kind = iota + 1
	KindClass
	KindArray
	KindTypeVar
	KindWildcard
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	case KindTypeVar:
		return "typevar"
	case KindWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// TypeRef is a reference to a type as it appears in a descriptor or a
// generic signature.
type TypeRef struct {
	Kind Kind

	// Name is the Java keyword for primitives (including "void"), the
	// binary class name for classes ("java/util/Map$Entry") and the
	// variable name for type variables.
	Name string

	// Args are the type arguments of a parameterized class.
	Args []*TypeRef

	// Owner is the parameterized enclosing type of an inner class written
	// as Outer<T>.Inner in a signature.
	Owner *TypeRef

	// Elem is the component type of an array.
	Elem *TypeRef

	// Bound is the bound of a wildcard; nil for an unbounded "?".
	Bound *TypeRef
	// Super marks a "? super Bound" wildcard.
	Super bool
}

var primitives = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

var primitiveDescriptors = func() map[string]byte {
	m := make(map[string]byte, len(primitives))
	for d, n := range primitives {
		m[n] = d
	}
	return m
}()

// ObjectName is the binary name of the root class.
const ObjectName = "java/lang/Object"

// Object returns a reference to java/lang/Object.
func Object() *TypeRef { return Class(ObjectName) }

// Primitive returns the primitive type for a descriptor character such as
// 'I' or 'V'. It returns nil for any other character.
func Primitive(desc byte) *TypeRef {
	name, ok := primitives[desc]
	if !ok {
		return nil
	}
	return &TypeRef{Kind: KindPrimitive, Name: name}
}

// Class returns a class reference with optional type arguments.
func Class(name string, args ...*TypeRef) *TypeRef {
	return &TypeRef{Kind: KindClass, Name: name, Args: args}
}

// Var returns a type variable reference.
func Var(name string) *TypeRef {
	return &TypeRef{Kind: KindTypeVar, Name: name}
}

// ArrayOf returns an array of elem.
func ArrayOf(elem *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindArray, Elem: elem}
}

// Unbounded returns the "?" wildcard.
func Unbounded() *TypeRef {
	return &TypeRef{Kind: KindWildcard}
}

// Extends returns a "? extends bound" wildcard.
func Extends(bound *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindWildcard, Bound: bound}
}

// SuperOf returns a "? super bound" wildcard.
func SuperOf(bound *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindWildcard, Bound: bound, Super: true}
}

// IsVoid reports whether t is the void return type.
func (t *TypeRef) IsVoid() bool {
	return t.Kind == KindPrimitive && t.Name == "void"
}

// IsReference reports whether values of t are object references.
func (t *TypeRef) IsReference() bool {
	return t.Kind != KindPrimitive
}

// IsObject reports whether t is java/lang/Object.
func (t *TypeRef) IsObject() bool {
	return t.Kind == KindClass && t.Name == ObjectName
}

// Equal reports structural equality.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.Kind != o.Kind || t.Name != o.Name || t.Super != o.Super || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return t.Owner.Equal(o.Owner) && t.Elem.Equal(o.Elem) && t.Bound.Equal(o.Bound)
}

// Erasure returns the erased form of t. Type variables erase to
// java/lang/Object; callers that know a variable's bounds should erase it
// themselves first.
func (t *TypeRef) Erasure() *TypeRef {
	switch t.Kind {
	case KindClass:
		if len(t.Args) == 0 && t.Owner == nil {
			return t
		}
		return Class(t.Name)
	case KindArray:
		elem := t.Elem.Erasure()
		if elem == t.Elem {
			return t
		}
		return ArrayOf(elem)
	case KindWildcard:
		if t.Bound == nil || t.Super {
			return Object()
		}
		return t.Bound.Erasure()
	case KindTypeVar:
		return Object()
	default:
		return t
	}
}

// Descriptor returns the field descriptor of the erasure of t.
func (t *TypeRef) Descriptor() string {
	var sb strings.Builder
	t.Erasure().writeSignature(&sb)
	return sb.String()
}

// Signature renders t in the generic Signature attribute grammar. Two
// TypeRefs are Equal exactly when their signatures are equal.
func (t *TypeRef) Signature() string {
	var sb strings.Builder
	t.writeSignature(&sb)
	return sb.String()
}

func (t *TypeRef) writeSignature(sb *strings.Builder) {
	switch t.Kind {
	case KindPrimitive:
		sb.WriteByte(primitiveDescriptors[t.Name])
	case KindTypeVar:
		sb.WriteByte('T')
		sb.WriteString(t.Name)
		sb.WriteByte(';')
	case KindArray:
		sb.WriteByte('[')
		t.Elem.writeSignature(sb)
	case KindWildcard:
		switch {
		case t.Bound == nil:
			sb.WriteByte('*')
			return
		case t.Super:
			sb.WriteByte('-')
		default:
			sb.WriteByte('+')
		}
		t.Bound.writeSignature(sb)
	case KindClass:
		sb.WriteByte('L')
		t.writeClassBody(sb)
		sb.WriteByte(';')
	}
}

func (t *TypeRef) writeClassBody(sb *strings.Builder) {
	if t.Owner != nil {
		t.Owner.writeClassBody(sb)
		sb.WriteByte('.')
		sb.WriteString(innerSuffix(t.Name, t.Owner.Name))
	} else {
		sb.WriteString(t.Name)
	}
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for _, a := range t.Args {
			a.writeSignature(sb)
		}
		sb.WriteByte('>')
	}
}

func innerSuffix(name, owner string) string {
	if s, ok := strings.CutPrefix(name, owner+"$"); ok {
		return s
	}
	return name[strings.LastIndexAny(name, "/$")+1:]
}

// String renders t the way Java source would name it, with binary class
// names in dotted form: "java.util.Map<K, V>", "T[]", "? super T".
func (t *TypeRef) String() string {
	var sb strings.Builder
	t.writeString(&sb)
	return sb.String()
}

func (t *TypeRef) writeString(sb *strings.Builder) {
	switch t.Kind {
	case KindPrimitive, KindTypeVar:
		sb.WriteString(t.Name)
	case KindArray:
		t.Elem.writeString(sb)
		sb.WriteString("[]")
	case KindWildcard:
		sb.WriteByte('?')
		if t.Bound != nil {
			if t.Super {
				sb.WriteString(" super ")
			} else {
				sb.WriteString(" extends ")
			}
			t.Bound.writeString(sb)
		}
	case KindClass:
		if t.Owner != nil {
			t.Owner.writeString(sb)
			sb.WriteByte('.')
			sb.WriteString(innerSuffix(t.Name, t.Owner.Name))
		} else {
			sb.WriteString(DottedName(t.Name))
		}
		if len(t.Args) > 0 {
			sb.WriteByte('<')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				a.writeString(sb)
			}
			sb.WriteByte('>')
		}
	}
}

// DottedName turns an internal binary name ("java/util/Map$Entry") into
// the form Class.getName reports ("java.util.Map$Entry").
func DottedName(binary string) string {
	return strings.ReplaceAll(binary, "/", ".")
}

// InternalName is the inverse of DottedName.
func InternalName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}

// SimpleName returns the name after the last package or nesting separator.
func SimpleName(binary string) string {
	return binary[strings.LastIndexAny(binary, "/$")+1:]
}

// PackageName returns the internal package prefix of a binary name, or ""
// for the unnamed package.
func PackageName(binary string) string {
	if i := strings.LastIndexByte(binary, '/'); i >= 0 {
		return binary[:i]
	}
	return ""
}

// Map rebuilds t bottom-up, replacing every type variable with the result
// of fn. Subtrees without variables are shared, not copied.
func (t *TypeRef) Map(fn func(v *TypeRef) (*TypeRef, error)) (*TypeRef, error) {
	if t == nil {
		return nil, nil
	}
	switch t.Kind {
	case KindTypeVar:
		return fn(t)
	case KindArray:
		elem, err := t.Elem.Map(fn)
		if err != nil || elem == t.Elem {
			return t, err
		}
		return ArrayOf(elem), nil
	case KindWildcard:
		bound, err := t.Bound.Map(fn)
		if err != nil || bound == t.Bound {
			return t, err
		}
		return &TypeRef{Kind: KindWildcard, Bound: bound, Super: t.Super}, nil
	case KindClass:
		owner, err := t.Owner.Map(fn)
		if err != nil {
			return nil, err
		}
		changed := owner != t.Owner
		var args []*TypeRef
		for i, a := range t.Args {
			na, err := a.Map(fn)
			if err != nil {
				return nil, err
			}
			if na != a && args == nil {
				args = make([]*TypeRef, len(t.Args))
				copy(args, t.Args[:i])
			}
			if args != nil {
				args[i] = na
			}
		}
		if args == nil && !changed {
			return t, nil
		}
		if args == nil {
			args = t.Args
		}
		return &TypeRef{Kind: KindClass, Name: t.Name, Args: args, Owner: owner}, nil
	default:
		return t, nil
	}
}

// Substitute replaces type variables found by lookup and leaves the rest
// as they are.
func (t *TypeRef) Substitute(lookup func(name string) (*TypeRef, bool)) *TypeRef {
	out, _ := t.Map(func(v *TypeRef) (*TypeRef, error) {
		if r, ok := lookup(v.Name); ok {
			return r, nil
		}
		return v, nil
	})
	return out
}

// Vars returns the names of the type variables referenced by t, in order
// of first appearance.
func (t *TypeRef) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	_, _ = t.Map(func(v *TypeRef) (*TypeRef, error) {
		if !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
		return v, nil
	})
	return names
}

// TypeParam is a declared generic parameter.
type TypeParam struct {
	Name string
	// ClassBound is nil when the parameter declares only interface bounds.
	ClassBound      *TypeRef
	InterfaceBounds []*TypeRef
}

// Bounds returns the class bound (if any) followed by the interface bounds.
func (p TypeParam) Bounds() []*TypeRef {
	if p.ClassBound == nil {
		return p.InterfaceBounds
	}
	return append([]*TypeRef{p.ClassBound}, p.InterfaceBounds...)
}

// ClassSignature is a parsed class Signature attribute.
type ClassSignature struct {
	TypeParams []TypeParam
	Super      *TypeRef
	Interfaces []*TypeRef
}

// MethodType is a parsed method descriptor or method Signature attribute.
// Throws is only ever set by signatures.
type MethodType struct {
	TypeParams []TypeParam
	Params     []*TypeRef
	Return     *TypeRef
	Throws     []*TypeRef
}
