package classfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// FormatError reports bytes that do not form a valid class file.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string { return "classfile: " + e.Err.Error() }

func (e *FormatError) Unwrap() error { return e.Err }

// ParseFile opens and parses a .class file from the given path. Errors
// opening the file are returned unchanged so callers can inspect them with
// errors.Is (for example fs.ErrNotExist or fs.ErrPermission).
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(bufio.NewReader(f))
}

// ParseBytes parses an in-memory .class file.
func ParseBytes(data []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads a .class file from the given reader and returns a ClassFile.
// Any failure is reported as a *FormatError.
func Parse(r io.Reader) (*ClassFile, error) {
	cf, err := parse(r)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	return cf, nil
}

// classHeader is everything in front of the constant pool entries.
type classHeader struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	PoolCount    uint16
}

// classInfo sits between the constant pool and the interface table.
type classInfo struct {
	AccessFlags     uint16
	ThisClass       uint16
	SuperClass      uint16
	InterfacesCount uint16
}

type memberHeader struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
}

// member is a field_info or method_info before its attributes are decoded.
type member struct {
	flags      uint16
	name, desc string
	attrs      []AttributeInfo
}

func parse(r io.Reader) (*ClassFile, error) {
	var hdr classHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if hdr.Magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", hdr.Magic)
	}
	pool, err := parseConstantPool(r, hdr.PoolCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}

	var info classInfo
	if err := binary.Read(r, binary.BigEndian, &info); err != nil {
		return nil, fmt.Errorf("reading class info: %w", err)
	}
	cf := &ClassFile{
		MinorVersion: hdr.MinorVersion,
		MajorVersion: hdr.MajorVersion,
		ConstantPool: pool,
		AccessFlags:  info.AccessFlags,
		ThisClass:    info.ThisClass,
		SuperClass:   info.SuperClass,
		Interfaces:   make([]uint16, info.InterfacesCount),
	}
	if err := binary.Read(r, binary.BigEndian, cf.Interfaces); err != nil {
		return nil, fmt.Errorf("reading interfaces: %w", err)
	}

	fields, err := readMembers(r, pool, "field")
	if err != nil {
		return nil, err
	}
	cf.Fields = make([]FieldInfo, len(fields))
	for i, m := range fields {
		cf.Fields[i] = FieldInfo{AccessFlags: m.flags, Name: m.name, Descriptor: m.desc, Attributes: m.attrs}
		if err := decodeFieldAttributes(pool, &cf.Fields[i]); err != nil {
			return nil, fmt.Errorf("decoding field %s attributes: %w", m.name, err)
		}
	}

	methods, err := readMembers(r, pool, "method")
	if err != nil {
		return nil, err
	}
	cf.Methods = make([]MethodInfo, len(methods))
	for i, m := range methods {
		cf.Methods[i] = MethodInfo{AccessFlags: m.flags, Name: m.name, Descriptor: m.desc, Attributes: m.attrs}
		if err := decodeMethodAttributes(pool, &cf.Methods[i]); err != nil {
			return nil, fmt.Errorf("decoding method %s attributes: %w", m.name, err)
		}
	}

	if cf.Attributes, err = readAttributes(r, pool); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}
	if err := decodeClassAttributes(cf); err != nil {
		return nil, fmt.Errorf("decoding class attributes: %w", err)
	}
	return cf, nil
}

// readMembers reads a u2 count followed by that many field_info or
// method_info structures.
func readMembers(r io.Reader, pool []ConstantPoolEntry, kind string) ([]member, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading %ss count: %w", kind, err)
	}
	members := make([]member, count)
	for i := range members {
		var h memberHeader
		if err := binary.Read(r, binary.BigEndian, &h); err != nil {
			return nil, fmt.Errorf("reading %s %d: %w", kind, i, err)
		}
		name, err := GetUtf8(pool, h.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving %s %d name: %w", kind, i, err)
		}
		desc, err := GetUtf8(pool, h.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving %s %s descriptor: %w", kind, name, err)
		}
		attrs, err := readAttributes(r, pool)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %s attributes: %w", kind, name, err)
		}
		members[i] = member{flags: h.AccessFlags, name: name, desc: desc, attrs: attrs}
	}
	return members, nil
}

// readAttributes reads a u2 count followed by that many attribute_info
// structures, keeping each body undecoded.
func readAttributes(r io.Reader, pool []ConstantPoolEntry) ([]AttributeInfo, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading attributes count: %w", err)
	}
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		var h struct {
			NameIndex uint16
			Length    uint32
		}
		if err := binary.Read(r, binary.BigEndian, &h); err != nil {
			return nil, fmt.Errorf("reading attribute %d header: %w", i, err)
		}
		name, err := GetUtf8(pool, h.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}
		// The buffer grows with the bytes actually read, never with the
		// claimed length.
		var data bytes.Buffer
		if _, err := io.CopyN(&data, r, int64(h.Length)); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("reading attribute %s (%d bytes): %w", name, h.Length, err)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data.Bytes()}
	}
	return attrs, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}
