package classfile

import "fmt"

// Access flags. Several bits are shared between classes, fields and methods
// and mean different things depending on where they appear.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020 // class
	AccSynchronized = 0x0020 // method
	AccVolatile     = 0x0040 // field
	AccBridge       = 0x0040 // method
	AccTransient    = 0x0080 // field
	AccVarargs      = 0x0080 // method
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
)

// Attribute names decoded by the parser.
const (
	AttrSignature                            = "Signature"
	AttrExceptions                           = "Exceptions"
	AttrInnerClasses                         = "InnerClasses"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrMethodParameters                     = "MethodParameters"
	AttrConstantValue                        = "ConstantValue"
	AttrRecord                               = "Record"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
)

// ClassFile represents a parsed .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []AttributeInfo

	// Decoded class-level attributes. Zero values mean the attribute is absent.
	Signature       string
	InnerClasses    []InnerClass
	EnclosingMethod *EnclosingMethod
	Annotations     []Annotation
	IsRecord        bool
}

// SuperClassName returns the fully qualified name of the super class.
// Returns "" if this is java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := GetClassName(cf.ConstantPool, cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// InterfaceNames resolves the direct superinterface names in declaration order.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		name, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, fmt.Errorf("resolving interface %d: %w", i, err)
		}
		names[i] = name
	}
	return names, nil
}

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct {
	Value string
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct {
	Value int32
}

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct {
	Value float32
}

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct {
	Value int64
}

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct {
	Value float64
}

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// MethodInfo represents a method in a class file.
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo

	Signature            string
	Exceptions           []string
	Parameters           []MethodParameter
	Annotations          []Annotation
	ParameterAnnotations [][]Annotation
}

// IsConstructor reports whether the method is an instance initializer.
func (m *MethodInfo) IsConstructor() bool { return m.Name == "<init>" }

// IsClassInitializer reports whether the method is the static initializer.
func (m *MethodInfo) IsClassInitializer() bool { return m.Name == "<clinit>" }

// FieldInfo represents a field in a class file.
type FieldInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo

	Signature string
	// ConstantValue is the ConstantValue attribute's pool entry, or nil.
	ConstantValue ConstantPoolEntry
	Annotations   []Annotation
}

// AttributeInfo represents a raw attribute.
type AttributeInfo struct {
	Name string
	Data []byte
}

// InnerClass is one entry of the InnerClasses attribute. OuterClass and
// InnerName are empty for local and anonymous classes.
type InnerClass struct {
	InnerClass  string
	OuterClass  string
	InnerName   string
	AccessFlags uint16
}

// EnclosingMethod is the EnclosingMethod attribute of a local or anonymous class.
type EnclosingMethod struct {
	Class      string
	Name       string
	Descriptor string
}

// MethodParameter is one entry of the MethodParameters attribute.
type MethodParameter struct {
	Name        string
	AccessFlags uint16
}

// Annotation is a decoded annotation structure. Type is a field descriptor
// such as "Ljava/lang/Deprecated;".
type Annotation struct {
	Type     string
	Visible  bool
	Elements []ElementValuePair
}

// ElementValuePair is a named annotation element.
type ElementValuePair struct {
	Name  string
	Value ElementValue
}

// ElementValue is an annotation element value. Which fields are set depends
// on Tag: B C D F I J S Z s use Const, e uses EnumType and EnumConst, c uses
// Class, @ uses Annotation and [ uses Array.
type ElementValue struct {
	Tag        byte
	Const      any
	EnumType   string
	EnumConst  string
	Class      string
	Annotation *Annotation
	Array      []ElementValue
}
