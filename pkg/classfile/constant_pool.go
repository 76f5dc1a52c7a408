package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// skipSizes gives the body length of the entries a mirror never looks
// inside.
var skipSizes = map[uint8]int{
	TagMethodHandle:  3, // reference_kind, reference_index
	TagMethodType:    2, // descriptor_index
	TagModule:        2, // name_index
	TagPackage:       2, // name_index
	TagDynamic:       4, // bootstrap_method_attr_index, name_and_type_index
	TagInvokeDynamic: 4,
}

// parseConstantPool reads count-1 entries. The pool is indexed from 1; slot
// 0 and the slot after each long or double stay nil.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)
	for i := uint16(1); i < count; i++ {
		entry, wide, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant pool index %d: %w", i, err)
		}
		pool[i] = entry
		if wide {
			i++
		}
	}
	return pool, nil
}

// readConstant reads one cp_info. wide reports an entry that takes two
// slots.
func readConstant(r io.Reader) (entry ConstantPoolEntry, wide bool, err error) {
	read := func(v any) error { return binary.Read(r, binary.BigEndian, v) }

	var tag uint8
	if err := read(&tag); err != nil {
		return nil, false, fmt.Errorf("reading tag: %w", err)
	}

	var ref struct{ First, Second uint16 }
	switch tag {
	case TagUtf8:
		var length uint16
		if err := read(&length); err != nil {
			return nil, false, fmt.Errorf("reading Utf8 length: %w", err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, false, fmt.Errorf("reading Utf8 bytes: %w", err)
		}
		return &ConstantUtf8{Value: string(data)}, false, nil

	case TagInteger:
		c := &ConstantInteger{}
		return c, false, read(&c.Value)

	case TagFloat:
		var bits uint32
		err := read(&bits)
		return &ConstantFloat{Value: math.Float32frombits(bits)}, false, err

	case TagLong:
		c := &ConstantLong{}
		return c, true, read(&c.Value)

	case TagDouble:
		var bits uint64
		err := read(&bits)
		return &ConstantDouble{Value: math.Float64frombits(bits)}, true, err

	case TagClass:
		c := &ConstantClass{}
		return c, false, read(&c.NameIndex)

	case TagString:
		c := &ConstantString{}
		return c, false, read(&c.StringIndex)

	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType:
		if err := read(&ref); err != nil {
			return nil, false, fmt.Errorf("reading tag %d: %w", tag, err)
		}
		switch tag {
		case TagFieldref:
			return &ConstantFieldref{ClassIndex: ref.First, NameAndTypeIndex: ref.Second}, false, nil
		case TagMethodref:
			return &ConstantMethodref{ClassIndex: ref.First, NameAndTypeIndex: ref.Second}, false, nil
		case TagInterfaceMethodref:
			return &ConstantInterfaceMethodref{ClassIndex: ref.First, NameAndTypeIndex: ref.Second}, false, nil
		default:
			return &ConstantNameAndType{NameIndex: ref.First, DescriptorIndex: ref.Second}, false, nil
		}
	}

	size, ok := skipSizes[tag]
	if !ok {
		return nil, false, fmt.Errorf("unknown tag %d", tag)
	}
	if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
		return nil, false, fmt.Errorf("reading tag %d: %w", tag, err)
	}
	return &constantPlaceholder{tag: tag}, false, nil
}

// constantPlaceholder stands for an entry whose body was skipped.
type constantPlaceholder struct {
	tag uint8
}

func (c *constantPlaceholder) Tag() uint8 { return c.tag }

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", index)
	}
	utf8, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	if int(classIndex) >= len(pool) || pool[classIndex] == nil {
		return "", fmt.Errorf("invalid constant pool index %d", classIndex)
	}
	class, ok := pool[classIndex].(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// GetConstant returns the Go value of a loadable constant: int32, float32,
// int64, float64 or string.
func GetConstant(pool []ConstantPoolEntry, index uint16) (any, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	switch c := pool[index].(type) {
	case *ConstantInteger:
		return c.Value, nil
	case *ConstantFloat:
		return c.Value, nil
	case *ConstantLong:
		return c.Value, nil
	case *ConstantDouble:
		return c.Value, nil
	case *ConstantString:
		return GetUtf8(pool, c.StringIndex)
	case *ConstantUtf8:
		return c.Value, nil
	default:
		return nil, fmt.Errorf("constant pool index %d is not a constant (tag=%d)", index, c.Tag())
	}
}
