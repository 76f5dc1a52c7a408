package mirror

import (
	"fmt"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/signature"
)

// ValueKind classifies an annotation element value.
type ValueKind uint8

const (
	ValueConst ValueKind = iota + 1
	ValueEnum
	ValueClass
	ValueAnnotation
	ValueArray
)

// EnumConstant is an enum value used as an annotation element.
type EnumConstant struct {
	// Type is the binary name of the enum class.
	Type string
	Name string
}

// Value is an annotation element value.
type Value struct {
	kind ValueKind
	tag  byte
	// const: int8, int16, int32, int64, float32, float64, bool, rune or string
	constant   any
	enum       EnumConstant
	class      *signature.TypeRef
	annotation *Annotation
	array      []Value
}

func (v Value) Kind() ValueKind { return v.kind }

// Const returns a primitive or string value.
func (v Value) Const() (any, bool) { return v.constant, v.kind == ValueConst }

func (v Value) Enum() (EnumConstant, bool) { return v.enum, v.kind == ValueEnum }

// Class returns a class literal; void.class is the void primitive.
func (v Value) Class() (*signature.TypeRef, bool) { return v.class, v.kind == ValueClass }

func (v Value) Annotation() (*Annotation, bool) { return v.annotation, v.kind == ValueAnnotation }

func (v Value) Array() ([]Value, bool) { return v.array, v.kind == ValueArray }

func (v Value) String() string {
	switch v.kind {
	case ValueConst:
		if s, ok := v.constant.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		if r, ok := v.constant.(rune); ok && v.tag == 'C' {
			return fmt.Sprintf("%q", r)
		}
		return fmt.Sprint(v.constant)
	case ValueEnum:
		return signature.DottedName(v.enum.Type) + "." + v.enum.Name
	case ValueClass:
		return v.class.String() + ".class"
	case ValueAnnotation:
		return v.annotation.String()
	case ValueArray:
		s := "{"
		for i, e := range v.array {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "}"
	}
	return "?"
}

// Element is a named annotation element.
type Element struct {
	Name  string
	Value Value
}

// Annotation is an annotation present on a type, member or parameter.
// Only explicitly given elements are present; defaults declared by the
// annotation type are not merged in.
//
// Annotations are shared between mirrors; treat them as read-only.
type Annotation struct {
	// Type is the binary name of the annotation type.
	Type     string
	Visible  bool
	Elements []Element
}

// Element returns the value of the named element.
func (a *Annotation) Element(name string) (Value, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// constOf returns the element's constant if its element tag is tag. Tags
// keep char and int apart even though both decode to int32.
func constOf[T any](a *Annotation, name string, tag byte) (T, bool) {
	var zero T
	v, ok := a.Element(name)
	if !ok || v.kind != ValueConst || v.tag != tag {
		return zero, false
	}
	c, ok := v.constant.(T)
	return c, ok
}

func (a *Annotation) Int(name string) (int32, bool) { return constOf[int32](a, name, 'I') }

func (a *Annotation) Byte(name string) (int8, bool) { return constOf[int8](a, name, 'B') }

func (a *Annotation) Short(name string) (int16, bool) { return constOf[int16](a, name, 'S') }

func (a *Annotation) Long(name string) (int64, bool) { return constOf[int64](a, name, 'J') }

func (a *Annotation) Float(name string) (float32, bool) { return constOf[float32](a, name, 'F') }

func (a *Annotation) Double(name string) (float64, bool) { return constOf[float64](a, name, 'D') }

func (a *Annotation) Bool(name string) (bool, bool) { return constOf[bool](a, name, 'Z') }

func (a *Annotation) Char(name string) (rune, bool) { return constOf[rune](a, name, 'C') }

// Str returns a string element.
func (a *Annotation) Str(name string) (string, bool) { return constOf[string](a, name, 's') }

// Enum returns an enum element.
func (a *Annotation) Enum(name string) (EnumConstant, bool) {
	v, ok := a.Element(name)
	if !ok {
		return EnumConstant{}, false
	}
	return v.Enum()
}

// Class returns a class literal element.
func (a *Annotation) Class(name string) (*signature.TypeRef, bool) {
	v, ok := a.Element(name)
	if !ok {
		return nil, false
	}
	return v.Class()
}

// Nested returns an annotation-valued element.
func (a *Annotation) Nested(name string) (*Annotation, bool) {
	v, ok := a.Element(name)
	if !ok {
		return nil, false
	}
	return v.Annotation()
}

// Strings returns a string array element. A single string is accepted as
// a one-element array, as Java source allows.
func (a *Annotation) Strings(name string) ([]string, bool) {
	return arrayOf[string](a, name, 's')
}

// Ints returns an int array element.
func (a *Annotation) Ints(name string) ([]int32, bool) {
	return arrayOf[int32](a, name, 'I')
}

func arrayOf[T any](a *Annotation, name string, tag byte) ([]T, bool) {
	v, ok := a.Element(name)
	if !ok {
		return nil, false
	}
	if v.kind == ValueConst && v.tag == tag {
		c, ok := v.constant.(T)
		return []T{c}, ok
	}
	if v.kind != ValueArray {
		return nil, false
	}
	out := make([]T, len(v.array))
	for i, e := range v.array {
		c, ok := e.constant.(T)
		if !ok || e.kind != ValueConst || e.tag != tag {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

// String renders the annotation as Java source would write it.
func (a *Annotation) String() string {
	s := "@" + signature.DottedName(a.Type)
	if len(a.Elements) == 0 {
		return s
	}
	s += "("
	for i, e := range a.Elements {
		if i > 0 {
			s += ", "
		}
		s += e.Name + "=" + e.Value.String()
	}
	return s + ")"
}

// Annotations is the list of annotations on one element.
type Annotations []*Annotation

// Has reports whether an annotation of the given binary type is present.
func (as Annotations) Has(typeName string) bool {
	_, ok := as.Get(typeName)
	return ok
}

// Get returns the annotation of the given binary type.
func (as Annotations) Get(typeName string) (*Annotation, bool) {
	for _, a := range as {
		if a.Type == typeName {
			return a, true
		}
	}
	return nil, false
}

// Types returns the binary names of the annotation types present.
func (as Annotations) Types() []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Type
	}
	return out
}

// convertAnnotations reports every failure as a *classfile.FormatError.
func convertAnnotations(raw []classfile.Annotation) (Annotations, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Annotations, len(raw))
	for i := range raw {
		a, err := convertAnnotation(&raw[i])
		if err != nil {
			return nil, &classfile.FormatError{Err: err}
		}
		out[i] = a
	}
	return out, nil
}

func convertAnnotation(raw *classfile.Annotation) (*Annotation, error) {
	typ, err := classNameOf(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("annotation type: %w", err)
	}
	a := &Annotation{Type: typ, Visible: raw.Visible, Elements: make([]Element, len(raw.Elements))}
	for i, e := range raw.Elements {
		v, err := convertValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("annotation %s element %s: %w", typ, e.Name, err)
		}
		a.Elements[i] = Element{Name: e.Name, Value: v}
	}
	return a, nil
}

func convertValue(raw classfile.ElementValue) (Value, error) {
	switch raw.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		return Value{kind: ValueConst, tag: raw.Tag, constant: raw.Const}, nil
	case 'e':
		typ, err := classNameOf(raw.EnumType)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: ValueEnum, enum: EnumConstant{Type: typ, Name: raw.EnumConst}}, nil
	case 'c':
		var (
			t   *signature.TypeRef
			err error
		)
		if raw.Class == "V" {
			t = signature.Primitive('V')
		} else {
			t, err = signature.ParseFieldDescriptor(raw.Class)
		}
		if err != nil {
			return Value{}, err
		}
		return Value{kind: ValueClass, class: t}, nil
	case '@':
		a, err := convertAnnotation(raw.Annotation)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: ValueAnnotation, annotation: a}, nil
	case '[':
		vs := make([]Value, len(raw.Array))
		for i, e := range raw.Array {
			v, err := convertValue(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = v
		}
		return Value{kind: ValueArray, array: vs}, nil
	}
	return Value{}, fmt.Errorf("unknown element tag %q", raw.Tag)
}

// classNameOf turns a class field descriptor ("Lp/Named;") into its binary name.
func classNameOf(desc string) (string, error) {
	t, err := signature.ParseFieldDescriptor(desc)
	if err != nil {
		return "", err
	}
	if t.Kind != signature.KindClass {
		return "", fmt.Errorf("%s is not a class type", desc)
	}
	return t.Name, nil
}
