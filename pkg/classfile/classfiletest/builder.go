// Package classfiletest assembles class files in memory so tests can build
// host data, including shapes javac would never emit (supertype cycles,
// signatures that disagree with the class header, and so on).
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/daimatz/mirror/pkg/classfile"
)

// Java 17.
const defaultMajorVersion = 61

// Builder accumulates the parts of one class file.
type Builder struct {
	name       string
	flags      uint16
	super      string
	interfaces []string
	fields     []member
	methods    []member
	attrs      []attr

	pool    [][]byte
	indexes map[string]uint16
}

type member struct {
	flags uint16
	name  string
	desc  string
	attrs []attr
}

type attr struct {
	name string
	body func(b *Builder) []byte
}

// MemberOption decorates a field or method.
type MemberOption func(*member)

// ClassOption decorates the class itself.
type ClassOption func(*Builder)

// New starts a public class extending java/lang/Object.
func New(name string, opts ...ClassOption) *Builder {
	b := &Builder{
		name:    name,
		flags:   classfile.AccPublic | classfile.AccSuper,
		super:   "java/lang/Object",
		indexes: make(map[string]uint16),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Flags replaces the class access flags.
func Flags(flags uint16) ClassOption {
	return func(b *Builder) { b.flags = flags }
}

// Interface marks the class as a public abstract interface.
func Interface() ClassOption {
	return func(b *Builder) {
		b.flags = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
	}
}

// Extends sets the superclass. An empty name writes super_class = 0.
func Extends(name string) ClassOption {
	return func(b *Builder) { b.super = name }
}

// Implements appends direct superinterfaces.
func Implements(names ...string) ClassOption {
	return func(b *Builder) { b.interfaces = append(b.interfaces, names...) }
}

// ClassSignature attaches a generic Signature attribute to the class.
func ClassSignature(sig string) ClassOption {
	return func(b *Builder) { b.attrs = append(b.attrs, signatureAttr(sig)) }
}

// ClassAnnotation attaches a runtime-visible annotation to the class.
func ClassAnnotation(a Annotation) ClassOption {
	return func(b *Builder) { b.attrs = append(b.attrs, annotationsAttr([]Annotation{a})) }
}

// InnerClass adds an InnerClasses entry. Pass an empty outer for local classes.
func InnerClass(inner, outer, simpleName string, flags uint16) ClassOption {
	return func(b *Builder) {
		for i := range b.attrs {
			if b.attrs[i].name == classfile.AttrInnerClasses {
				prev := b.attrs[i].body
				b.attrs[i].body = func(b *Builder) []byte {
					body := prev(b)
					n := binary.BigEndian.Uint16(body[:2]) + 1
					binary.BigEndian.PutUint16(body[:2], n)
					return append(body, innerEntry(b, inner, outer, simpleName, flags)...)
				}
				return
			}
		}
		b.attrs = append(b.attrs, attr{
			name: classfile.AttrInnerClasses,
			body: func(b *Builder) []byte {
				return append(u2(1), innerEntry(b, inner, outer, simpleName, flags)...)
			},
		})
	}
}

func innerEntry(b *Builder, inner, outer, simpleName string, flags uint16) []byte {
	var out []byte
	out = append(out, u2(b.classRef(inner))...)
	if outer == "" {
		out = append(out, u2(0)...)
	} else {
		out = append(out, u2(b.classRef(outer))...)
	}
	if simpleName == "" {
		out = append(out, u2(0)...)
	} else {
		out = append(out, u2(b.utf8(simpleName))...)
	}
	return append(out, u2(flags)...)
}

// EnclosingMethod marks a local or anonymous class. An empty name means the
// class is declared in an initializer.
func EnclosingMethod(class, name, desc string) ClassOption {
	return func(b *Builder) {
		b.attrs = append(b.attrs, attr{
			name: classfile.AttrEnclosingMethod,
			body: func(b *Builder) []byte {
				out := u2(b.classRef(class))
				if name == "" {
					return append(out, u2(0)...)
				}
				return append(out, u2(b.nameAndType(name, desc))...)
			},
		})
	}
}

// Record marks the class as a record by adding an empty Record attribute.
func Record() ClassOption {
	return func(b *Builder) {
		b.attrs = append(b.attrs, attr{name: classfile.AttrRecord, body: func(*Builder) []byte { return u2(0) }})
	}
}

// Field appends a field.
func (b *Builder) Field(flags uint16, name, desc string, opts ...MemberOption) *Builder {
	m := member{flags: flags, name: name, desc: desc}
	for _, opt := range opts {
		opt(&m)
	}
	b.fields = append(b.fields, m)
	return b
}

// Method appends a method. Constructors use the name "<init>".
func (b *Builder) Method(flags uint16, name, desc string, opts ...MemberOption) *Builder {
	m := member{flags: flags, name: name, desc: desc}
	for _, opt := range opts {
		opt(&m)
	}
	b.methods = append(b.methods, m)
	return b
}

// Signature attaches a generic Signature attribute to a member.
func Signature(sig string) MemberOption {
	return func(m *member) { m.attrs = append(m.attrs, signatureAttr(sig)) }
}

// Throws attaches an Exceptions attribute.
func Throws(classes ...string) MemberOption {
	return func(m *member) {
		m.attrs = append(m.attrs, attr{
			name: classfile.AttrExceptions,
			body: func(b *Builder) []byte {
				out := u2(uint16(len(classes)))
				for _, c := range classes {
					out = append(out, u2(b.classRef(c))...)
				}
				return out
			},
		})
	}
}

// ParameterNames attaches a MethodParameters attribute.
func ParameterNames(names ...string) MemberOption {
	return func(m *member) {
		m.attrs = append(m.attrs, attr{
			name: classfile.AttrMethodParameters,
			body: func(b *Builder) []byte {
				out := []byte{byte(len(names))}
				for _, n := range names {
					out = append(out, u2(b.utf8(n))...)
					out = append(out, u2(0)...)
				}
				return out
			},
		})
	}
}

// ConstantInt attaches a ConstantValue attribute holding an int.
func ConstantInt(v int32) MemberOption {
	return func(m *member) {
		m.attrs = append(m.attrs, attr{
			name: classfile.AttrConstantValue,
			body: func(b *Builder) []byte { return u2(b.integer(v)) },
		})
	}
}

// ConstantString attaches a ConstantValue attribute holding a string.
func ConstantString(v string) MemberOption {
	return func(m *member) {
		m.attrs = append(m.attrs, attr{
			name: classfile.AttrConstantValue,
			body: func(b *Builder) []byte { return u2(b.str(v)) },
		})
	}
}

// Annotated attaches runtime-visible annotations to a member.
func Annotated(anns ...Annotation) MemberOption {
	return func(m *member) { m.attrs = append(m.attrs, annotationsAttr(anns)) }
}

// ParameterAnnotations attaches runtime-visible parameter annotations, one
// slice per parameter.
func ParameterAnnotations(params ...[]Annotation) MemberOption {
	return func(m *member) {
		m.attrs = append(m.attrs, attr{
			name: classfile.AttrRuntimeVisibleParameterAnnotations,
			body: func(b *Builder) []byte {
				out := []byte{byte(len(params))}
				for _, anns := range params {
					out = append(out, u2(uint16(len(anns)))...)
					for _, a := range anns {
						out = append(out, a.encode(b)...)
					}
				}
				return out
			},
		})
	}
}

// Annotation describes an annotation to encode. Type is a binary class name.
type Annotation struct {
	Type     string
	Elements []Element
}

// Element is a named annotation element.
type Element struct {
	Name  string
	Value Value
}

// Value is an encodable element value.
type Value struct {
	tag   byte
	i32   int32
	i64   int64
	f64   float64
	f32   float32
	str   string
	str2  string
	ann   *Annotation
	array []Value
}

func Int(v int32) Value             { return Value{tag: 'I', i32: v} }
func Bool(v bool) Value             { return Value{tag: 'Z', i32: boolInt(v)} }
func Long(v int64) Value            { return Value{tag: 'J', i64: v} }
func Double(v float64) Value        { return Value{tag: 'D', f64: v} }
func Float(v float32) Value         { return Value{tag: 'F', f32: v} }
func String(v string) Value         { return Value{tag: 's', str: v} }
func Class(descriptor string) Value { return Value{tag: 'c', str: descriptor} }
func Nested(a Annotation) Value     { return Value{tag: '@', ann: &a} }
func Array(vs ...Value) Value       { return Value{tag: '[', array: vs} }

// Enum encodes an enum constant; enumType is a binary class name.
func Enum(enumType, constant string) Value {
	return Value{tag: 'e', str: "L" + enumType + ";", str2: constant}
}

func boolInt(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

func (a Annotation) encode(b *Builder) []byte {
	out := u2(b.utf8("L" + a.Type + ";"))
	out = append(out, u2(uint16(len(a.Elements)))...)
	for _, e := range a.Elements {
		out = append(out, u2(b.utf8(e.Name))...)
		out = append(out, e.Value.encode(b)...)
	}
	return out
}

func (v Value) encode(b *Builder) []byte {
	out := []byte{v.tag}
	switch v.tag {
	case 'I', 'Z':
		return append(out, u2(b.integer(v.i32))...)
	case 'J':
		return append(out, u2(b.long(v.i64))...)
	case 'D':
		return append(out, u2(b.double(v.f64))...)
	case 'F':
		return append(out, u2(b.float(v.f32))...)
	case 's', 'c':
		return append(out, u2(b.utf8(v.str))...)
	case 'e':
		out = append(out, u2(b.utf8(v.str))...)
		return append(out, u2(b.utf8(v.str2))...)
	case '@':
		return append(out, v.ann.encode(b)...)
	case '[':
		out = append(out, u2(uint16(len(v.array)))...)
		for _, e := range v.array {
			out = append(out, e.encode(b)...)
		}
		return out
	}
	panic("classfiletest: unknown value tag " + string(v.tag))
}

func signatureAttr(sig string) attr {
	return attr{
		name: classfile.AttrSignature,
		body: func(b *Builder) []byte { return u2(b.utf8(sig)) },
	}
}

func annotationsAttr(anns []Annotation) attr {
	return attr{
		name: classfile.AttrRuntimeVisibleAnnotations,
		body: func(b *Builder) []byte {
			out := u2(uint16(len(anns)))
			for _, a := range anns {
				out = append(out, a.encode(b)...)
			}
			return out
		},
	}
}

// Bytes encodes the class file.
func (b *Builder) Bytes() []byte {
	b.pool = nil
	b.indexes = make(map[string]uint16)

	// Encode everything after the constant pool first so that every pool
	// entry it needs has been interned.
	var body bytes.Buffer
	body.Write(u2(b.flags))
	body.Write(u2(b.classRef(b.name)))
	if b.super == "" {
		body.Write(u2(0))
	} else {
		body.Write(u2(b.classRef(b.super)))
	}
	body.Write(u2(uint16(len(b.interfaces))))
	for _, i := range b.interfaces {
		body.Write(u2(b.classRef(i)))
	}
	for _, members := range [][]member{b.fields, b.methods} {
		body.Write(u2(uint16(len(members))))
		for _, m := range members {
			body.Write(u2(m.flags))
			body.Write(u2(b.utf8(m.name)))
			body.Write(u2(b.utf8(m.desc)))
			b.writeAttrs(&body, m.attrs)
		}
	}
	b.writeAttrs(&body, b.attrs)

	var out bytes.Buffer
	out.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	out.Write(u2(0))
	out.Write(u2(defaultMajorVersion))
	out.Write(u2(uint16(b.poolCount())))
	for _, e := range b.pool {
		out.Write(e)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

// Build encodes and parses the class, failing the test on parse errors.
func (b *Builder) Build(t testing.TB) *classfile.ClassFile {
	t.Helper()
	cf, err := classfile.ParseBytes(b.Bytes())
	if err != nil {
		t.Fatalf("classfiletest: parsing %s: %v", b.name, err)
	}
	return cf
}

func (b *Builder) writeAttrs(w *bytes.Buffer, attrs []attr) {
	w.Write(u2(uint16(len(attrs))))
	for _, a := range attrs {
		body := a.body(b)
		w.Write(u2(b.utf8(a.name)))
		w.Write(u4(uint32(len(body))))
		w.Write(body)
	}
}

func (b *Builder) poolCount() int {
	n := 1
	for _, e := range b.pool {
		n++
		if e[0] == classfile.TagLong || e[0] == classfile.TagDouble {
			n++
		}
	}
	return n
}

func (b *Builder) intern(key string, entry []byte) uint16 {
	if idx, ok := b.indexes[key]; ok {
		return idx
	}
	idx := uint16(b.poolCount())
	b.pool = append(b.pool, entry)
	b.indexes[key] = idx
	return idx
}

func (b *Builder) utf8(s string) uint16 {
	entry := append([]byte{classfile.TagUtf8}, u2(uint16(len(s)))...)
	return b.intern("u:"+s, append(entry, s...))
}

func (b *Builder) classRef(name string) uint16 {
	nameIdx := b.utf8(name)
	return b.intern("c:"+name, append([]byte{classfile.TagClass}, u2(nameIdx)...))
}

func (b *Builder) nameAndType(name, desc string) uint16 {
	entry := append([]byte{classfile.TagNameAndType}, u2(b.utf8(name))...)
	return b.intern("nt:"+name+":"+desc, append(entry, u2(b.utf8(desc))...))
}

func (b *Builder) str(s string) uint16 {
	idx := b.utf8(s)
	return b.intern("s:"+s, append([]byte{classfile.TagString}, u2(idx)...))
}

func (b *Builder) integer(v int32) uint16 {
	return b.intern("i:"+string(u4(uint32(v))), append([]byte{classfile.TagInteger}, u4(uint32(v))...))
}

func (b *Builder) float(v float32) uint16 {
	bits := u4(math.Float32bits(v))
	return b.intern("f:"+string(bits), append([]byte{classfile.TagFloat}, bits...))
}

func (b *Builder) long(v int64) uint16 {
	bits := u8(uint64(v))
	return b.intern("j:"+string(bits), append([]byte{classfile.TagLong}, bits...))
}

func (b *Builder) double(v float64) uint16 {
	bits := u8(math.Float64bits(v))
	return b.intern("d:"+string(bits), append([]byte{classfile.TagDouble}, bits...))
}

func u2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func u4(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func u8(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
