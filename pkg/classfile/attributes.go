package classfile

import (
	"encoding/binary"
	"fmt"
)

// attrReader walks the body of a single attribute.
type attrReader struct {
	name string
	data []byte
	off  int
}

func (r *attrReader) u1() (uint8, error) {
	if r.off+1 > len(r.data) {
		return 0, fmt.Errorf("%s attribute truncated at offset %d", r.name, r.off)
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *attrReader) u2() (uint16, error) {
	if r.off+2 > len(r.data) {
		return 0, fmt.Errorf("%s attribute truncated at offset %d", r.name, r.off)
	}
	v := binary.BigEndian.Uint16(r.data[r.off : r.off+2])
	r.off += 2
	return v, nil
}

// utf8 reads a u2 constant pool index that must point at a Utf8 entry.
func (r *attrReader) utf8(pool []ConstantPoolEntry) (string, error) {
	idx, err := r.u2()
	if err != nil {
		return "", err
	}
	return GetUtf8(pool, idx)
}

// optionalClass reads a u2 Class index where 0 means "absent".
func (r *attrReader) optionalClass(pool []ConstantPoolEntry) (string, error) {
	idx, err := r.u2()
	if err != nil || idx == 0 {
		return "", err
	}
	return GetClassName(pool, idx)
}

func decodeClassAttributes(cf *ClassFile) error {
	pool := cf.ConstantPool
	for _, attr := range cf.Attributes {
		r := &attrReader{name: attr.Name, data: attr.Data}
		var err error
		switch attr.Name {
		case AttrSignature:
			cf.Signature, err = r.utf8(pool)
		case AttrInnerClasses:
			cf.InnerClasses, err = decodeInnerClasses(r, pool)
		case AttrEnclosingMethod:
			cf.EnclosingMethod, err = decodeEnclosingMethod(r, pool)
		case AttrRecord:
			cf.IsRecord = true
		case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
			var anns []Annotation
			anns, err = decodeAnnotations(r, pool, attr.Name == AttrRuntimeVisibleAnnotations)
			cf.Annotations = append(cf.Annotations, anns...)
		}
		if err != nil {
			return fmt.Errorf("decoding %s: %w", attr.Name, err)
		}
	}
	return nil
}

func decodeFieldAttributes(pool []ConstantPoolEntry, f *FieldInfo) error {
	for _, attr := range f.Attributes {
		r := &attrReader{name: attr.Name, data: attr.Data}
		var err error
		switch attr.Name {
		case AttrSignature:
			f.Signature, err = r.utf8(pool)
		case AttrConstantValue:
			var idx uint16
			if idx, err = r.u2(); err == nil {
				if int(idx) >= len(pool) || pool[idx] == nil {
					err = fmt.Errorf("invalid constant pool index %d", idx)
				} else {
					f.ConstantValue = pool[idx]
				}
			}
		case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
			var anns []Annotation
			anns, err = decodeAnnotations(r, pool, attr.Name == AttrRuntimeVisibleAnnotations)
			f.Annotations = append(f.Annotations, anns...)
		}
		if err != nil {
			return fmt.Errorf("decoding %s: %w", attr.Name, err)
		}
	}
	return nil
}

func decodeMethodAttributes(pool []ConstantPoolEntry, m *MethodInfo) error {
	for _, attr := range m.Attributes {
		r := &attrReader{name: attr.Name, data: attr.Data}
		var err error
		switch attr.Name {
		case AttrSignature:
			m.Signature, err = r.utf8(pool)
		case AttrExceptions:
			m.Exceptions, err = decodeExceptions(r, pool)
		case AttrMethodParameters:
			m.Parameters, err = decodeMethodParameters(r, pool)
		case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
			var anns []Annotation
			anns, err = decodeAnnotations(r, pool, attr.Name == AttrRuntimeVisibleAnnotations)
			m.Annotations = append(m.Annotations, anns...)
		case AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations:
			var params [][]Annotation
			params, err = decodeParameterAnnotations(r, pool, attr.Name == AttrRuntimeVisibleParameterAnnotations)
			m.ParameterAnnotations = mergeParameterAnnotations(m.ParameterAnnotations, params)
		}
		if err != nil {
			return fmt.Errorf("decoding %s: %w", attr.Name, err)
		}
	}
	return nil
}

func decodeInnerClasses(r *attrReader, pool []ConstantPoolEntry) ([]InnerClass, error) {
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]InnerClass, n)
	for i := range out {
		inner, err := r.optionalClass(pool)
		if err != nil {
			return nil, fmt.Errorf("inner class %d: %w", i, err)
		}
		outer, err := r.optionalClass(pool)
		if err != nil {
			return nil, fmt.Errorf("outer class %d: %w", i, err)
		}
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		var name string
		if nameIdx != 0 {
			if name, err = GetUtf8(pool, nameIdx); err != nil {
				return nil, fmt.Errorf("inner name %d: %w", i, err)
			}
		}
		flags, err := r.u2()
		if err != nil {
			return nil, err
		}
		out[i] = InnerClass{InnerClass: inner, OuterClass: outer, InnerName: name, AccessFlags: flags}
	}
	return out, nil
}

func decodeEnclosingMethod(r *attrReader, pool []ConstantPoolEntry) (*EnclosingMethod, error) {
	class, err := r.optionalClass(pool)
	if err != nil {
		return nil, err
	}
	em := &EnclosingMethod{Class: class}
	natIdx, err := r.u2()
	if err != nil || natIdx == 0 {
		return em, err
	}
	if int(natIdx) >= len(pool) || pool[natIdx] == nil {
		return nil, fmt.Errorf("invalid NameAndType index %d", natIdx)
	}
	nat, ok := pool[natIdx].(*ConstantNameAndType)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not NameAndType", natIdx)
	}
	if em.Name, err = GetUtf8(pool, nat.NameIndex); err != nil {
		return nil, err
	}
	if em.Descriptor, err = GetUtf8(pool, nat.DescriptorIndex); err != nil {
		return nil, err
	}
	return em, nil
}

func decodeExceptions(r *attrReader, pool []ConstantPoolEntry) ([]string, error) {
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		if out[i], err = GetClassName(pool, idx); err != nil {
			return nil, fmt.Errorf("exception %d: %w", i, err)
		}
	}
	return out, nil
}

func decodeMethodParameters(r *attrReader, pool []ConstantPoolEntry) ([]MethodParameter, error) {
	n, err := r.u1()
	if err != nil {
		return nil, err
	}
	out := make([]MethodParameter, n)
	for i := range out {
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		if nameIdx != 0 {
			if out[i].Name, err = GetUtf8(pool, nameIdx); err != nil {
				return nil, fmt.Errorf("parameter %d: %w", i, err)
			}
		}
		if out[i].AccessFlags, err = r.u2(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeAnnotations(r *attrReader, pool []ConstantPoolEntry, visible bool) ([]Annotation, error) {
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, n)
	for i := range out {
		a, err := decodeAnnotation(r, pool, visible)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out[i] = *a
	}
	return out, nil
}

func decodeParameterAnnotations(r *attrReader, pool []ConstantPoolEntry, visible bool) ([][]Annotation, error) {
	n, err := r.u1()
	if err != nil {
		return nil, err
	}
	out := make([][]Annotation, n)
	for i := range out {
		if out[i], err = decodeAnnotations(r, pool, visible); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
	}
	return out, nil
}

// mergeParameterAnnotations combines visible and invisible parameter
// annotation tables, which may have different lengths.
func mergeParameterAnnotations(a, b [][]Annotation) [][]Annotation {
	if len(b) > len(a) {
		a, b = b, a
	}
	out := make([][]Annotation, len(a))
	for i := range a {
		out[i] = append(out[i], a[i]...)
		if i < len(b) {
			out[i] = append(out[i], b[i]...)
		}
	}
	return out
}

func decodeAnnotation(r *attrReader, pool []ConstantPoolEntry, visible bool) (*Annotation, error) {
	typ, err := r.utf8(pool)
	if err != nil {
		return nil, err
	}
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	a := &Annotation{Type: typ, Visible: visible, Elements: make([]ElementValuePair, n)}
	for i := range a.Elements {
		name, err := r.utf8(pool)
		if err != nil {
			return nil, err
		}
		v, err := decodeElementValue(r, pool, visible)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", name, err)
		}
		a.Elements[i] = ElementValuePair{Name: name, Value: v}
	}
	return a, nil
}

func decodeElementValue(r *attrReader, pool []ConstantPoolEntry, visible bool) (ElementValue, error) {
	tag, err := r.u1()
	if err != nil {
		return ElementValue{}, err
	}
	ev := ElementValue{Tag: tag}
	switch tag {
	case 'B', 'C', 'I', 'S', 'Z':
		idx, err := r.u2()
		if err != nil {
			return ev, err
		}
		if int(idx) >= len(pool) || pool[idx] == nil {
			return ev, fmt.Errorf("invalid constant pool index %d", idx)
		}
		c, ok := pool[idx].(*ConstantInteger)
		if !ok {
			return ev, fmt.Errorf("element tag %c needs Integer constant at %d", tag, idx)
		}
		switch tag {
		case 'B':
			ev.Const = int8(c.Value)
		case 'C':
			ev.Const = rune(uint16(c.Value))
		case 'S':
			ev.Const = int16(c.Value)
		case 'Z':
			ev.Const = c.Value != 0
		default:
			ev.Const = c.Value
		}
	case 'D', 'F', 'J', 's':
		idx, err := r.u2()
		if err != nil {
			return ev, err
		}
		if ev.Const, err = GetConstant(pool, idx); err != nil {
			return ev, err
		}
	case 'e':
		if ev.EnumType, err = r.utf8(pool); err != nil {
			return ev, err
		}
		if ev.EnumConst, err = r.utf8(pool); err != nil {
			return ev, err
		}
	case 'c':
		if ev.Class, err = r.utf8(pool); err != nil {
			return ev, err
		}
	case '@':
		if ev.Annotation, err = decodeAnnotation(r, pool, visible); err != nil {
			return ev, err
		}
	case '[':
		n, err := r.u2()
		if err != nil {
			return ev, err
		}
		ev.Array = make([]ElementValue, n)
		for i := range ev.Array {
			if ev.Array[i], err = decodeElementValue(r, pool, visible); err != nil {
				return ev, err
			}
		}
	default:
		return ev, fmt.Errorf("unknown element value tag %q", tag)
	}
	return ev, nil
}
