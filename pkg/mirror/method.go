package mirror

import (
	"slices"
	"strings"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/signature"
)

// executable holds what methods and constructors share.
type executable struct {
	ownerRef
	desc       *MethodDescriptor
	typeParams []TypeParameter
	params     []*ParameterMirror
	throws     []*signature.TypeRef
	// erased is the parameter list "(...)" erased under the owner's
	// bindings, which differs from the raw descriptor when a supertype's
	// method is viewed through a parameterized subtype.
	erased string
}

func newExecutable(owner ownerRef, d *MethodDescriptor, sc *scope) (executable, *scope, error) {
	msc := sc.withMethod(d.TypeParams)
	e := executable{ownerRef: owner, desc: d}
	var err error
	if e.typeParams, err = msc.resolveParams(d.TypeParams); err != nil {
		return e, nil, err
	}
	types := make([]*signature.TypeRef, len(d.Params))
	e.params = make([]*ParameterMirror, len(d.Params))
	for i, p := range d.Params {
		if types[i], err = msc.resolve(p.Type); err != nil {
			return e, nil, err
		}
		e.params[i] = &ParameterMirror{desc: p, index: i, typ: types[i]}
	}
	if e.throws, err = msc.resolveAll(d.Throws); err != nil {
		return e, nil, err
	}
	e.erased = msc.erasedDescriptor(types)
	return e, msc, nil
}

func (e *executable) Name() string { return e.desc.Name }

func (e *executable) Descriptor() string { return e.desc.Descriptor }

func (e *executable) Modifiers() Modifiers { return e.desc.Modifiers }

func (e *executable) AccessFlags() uint16 { return e.desc.AccessFlags }

func (e *executable) Annotations() Annotations { return slices.Clone(e.desc.Annotations) }

// Annotation returns the annotation of the given binary type.
func (e *executable) Annotation(typeName string) (*Annotation, bool) {
	return e.desc.Annotations.Get(typeName)
}

func (e *executable) TypeParameters() []TypeParameter { return slices.Clone(e.typeParams) }

func (e *executable) Parameters() []*ParameterMirror { return slices.Clone(e.params) }

// ParameterTypes returns the parameter types under the owner's bindings.
func (e *executable) ParameterTypes() []*signature.TypeRef {
	types := make([]*signature.TypeRef, len(e.params))
	for i, p := range e.params {
		types[i] = p.typ
	}
	return types
}

// ExceptionTypes returns the declared thrown types.
func (e *executable) ExceptionTypes() []*signature.TypeRef { return slices.Clone(e.throws) }

func (e *executable) IsVarargs() bool { return e.desc.AccessFlags&classfile.AccVarargs != 0 }

func (e *executable) IsSynthetic() bool { return e.desc.AccessFlags&classfile.AccSynthetic != 0 }

func (e *executable) paramString() string {
	parts := make([]string, len(e.params))
	for i, p := range e.params {
		parts[i] = p.typ.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (e *executable) prefix() string {
	var sb strings.Builder
	if mods := e.desc.Modifiers.String(); mods != "" {
		sb.WriteString(mods)
		sb.WriteByte(' ')
	}
	if len(e.typeParams) > 0 {
		parts := make([]string, len(e.typeParams))
		for i, p := range e.typeParams {
			parts[i] = p.String()
		}
		sb.WriteString("<" + strings.Join(parts, ", ") + "> ")
	}
	return sb.String()
}

// MethodMirror is the immutable view of one method.
type MethodMirror struct {
	executable
	returns *signature.TypeRef
	// erasedReturn is the return type erased under the owner's bindings.
	erasedReturn *signature.TypeRef
}

func newMethodMirror(owner ownerRef, d *MethodDescriptor, sc *scope) (*MethodMirror, error) {
	e, msc, err := newExecutable(owner, d, sc)
	if err != nil {
		return nil, err
	}
	returns, err := msc.resolve(d.Return)
	if err != nil {
		return nil, err
	}
	return &MethodMirror{executable: e, returns: returns, erasedReturn: msc.erase(returns)}, nil
}

func (m *MethodMirror) Kind() MemberKind { return MemberMethod }

// ReturnType returns the return type under the owner's bindings.
func (m *MethodMirror) ReturnType() *signature.TypeRef { return m.returns }

// GenericReturnType returns the return type as declared.
func (m *MethodMirror) GenericReturnType() *signature.TypeRef { return m.desc.Return }

func (m *MethodMirror) IsBridge() bool { return m.desc.AccessFlags&classfile.AccBridge != 0 }

func (m *MethodMirror) IsDefault() bool { return m.desc.Modifiers.Has(Default) }

func (m *MethodMirror) IsStatic() bool { return m.desc.Modifiers.Has(Static) }

func (m *MethodMirror) IsAbstract() bool { return m.desc.Modifiers.Has(Abstract) }

func (m *MethodMirror) String() string {
	return m.prefix() + m.returns.String() + " " + signature.DottedName(m.name) + "." + m.desc.Name + m.paramString()
}

// ConstructorMirror is the immutable view of one constructor.
type ConstructorMirror struct {
	executable
}

func newConstructorMirror(owner ownerRef, d *MethodDescriptor, sc *scope) (*ConstructorMirror, error) {
	e, _, err := newExecutable(owner, d, sc)
	if err != nil {
		return nil, err
	}
	return &ConstructorMirror{executable: e}, nil
}

func (c *ConstructorMirror) Kind() MemberKind { return MemberConstructor }

func (c *ConstructorMirror) String() string {
	return c.prefix() + signature.DottedName(c.name) + c.paramString()
}

// ParameterMirror is the immutable view of one formal parameter.
type ParameterMirror struct {
	desc  *ParameterDescriptor
	index int
	typ   *signature.TypeRef
}

// Name returns the parameter name, or "argN" if the class file does not
// record names.
func (p *ParameterMirror) Name() string { return p.desc.Name }

// NamePresent reports whether Name came from the class file.
func (p *ParameterMirror) NamePresent() bool { return p.desc.NamePresent }

func (p *ParameterMirror) Index() int { return p.index }

// Type returns the parameter type under the owner's bindings.
func (p *ParameterMirror) Type() *signature.TypeRef { return p.typ }

func (p *ParameterMirror) Modifiers() Modifiers { return p.desc.Modifiers }

func (p *ParameterMirror) Annotations() Annotations { return slices.Clone(p.desc.Annotations) }

func (p *ParameterMirror) Annotation(typeName string) (*Annotation, bool) {
	return p.desc.Annotations.Get(typeName)
}

func (p *ParameterMirror) String() string {
	return p.typ.String() + " " + p.desc.Name
}
