package mirror

import (
	"fmt"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// AdaptHook observes every adaptation. err is nil on success. name is ""
// when the class name itself could not be read.
type AdaptHook func(name string, err error)

// Adapter turns one class file into a TypeDescriptor. It reads only the
// class file it is given and never loads other classes.
type Adapter struct {
	parser *signature.Parser
	policy loader.Policy
	hook   AdaptHook
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithParser shares a signature parser between adapters.
func WithParser(p *signature.Parser) AdapterOption {
	return func(a *Adapter) { a.parser = p }
}

// WithPolicy makes Adapt refuse the classes policy denies.
func WithPolicy(p loader.Policy) AdapterOption {
	return func(a *Adapter) { a.policy = p }
}

// WithHook installs an AdaptHook.
func WithHook(h AdaptHook) AdapterOption {
	return func(a *Adapter) { a.hook = h }
}

// NewAdapter returns an Adapter with its own signature parser unless one
// is given.
func NewAdapter(opts ...AdapterOption) (*Adapter, error) {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	if a.parser == nil {
		p, err := signature.NewParser(signature.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		a.parser = p
	}
	return a, nil
}

// Adapt extracts the descriptor of cf. Failures are *mirrorerrors.Error of
// kind KindInaccessibleDescriptor or KindMalformedDescriptor.
func (a *Adapter) Adapt(cf *classfile.ClassFile) (*TypeDescriptor, error) {
	d, e := a.adapt(cf)
	var err error
	if e != nil {
		err = e
	}
	if a.hook != nil {
		name := ""
		if d != nil {
			name = d.Name
		} else if cf != nil {
			name, _ = cf.ClassName()
		}
		a.hook(name, err)
	}
	return d, err
}

func (a *Adapter) adapt(cf *classfile.ClassFile) (*TypeDescriptor, *mirrorerrors.Error) {
	if cf == nil {
		return nil, mirrorerrors.Newf(mirrorerrors.KindReflectiveOperation, "nil class file")
	}
	name, err := cf.ClassName()
	if err != nil {
		return nil, mirrorerrors.Wrapf(&classfile.FormatError{Err: err}, "reading class name")
	}
	if a.policy != nil {
		if reason := a.policy(name); reason != "" {
			return nil, mirrorerrors.Wrapf(&loader.AccessDeniedError{Name: name, Reason: reason}, "adapting %s", name)
		}
	}

	d := &TypeDescriptor{
		Name:        name,
		AccessFlags: cf.AccessFlags,
		Modifiers:   typeModifiers(cf.AccessFlags),
		Record:      cf.IsRecord,
	}
	if err := a.adaptHeader(cf, d); err != nil {
		return nil, mirrorerrors.Wrapf(err, "adapting %s", name)
	}
	a.adaptNesting(cf, d)

	if d.Annotations, err = convertAnnotations(cf.Annotations); err != nil {
		return nil, mirrorerrors.Wrapf(err, "adapting %s", name)
	}
	for i := range cf.Fields {
		f, err := a.adaptField(cf, &cf.Fields[i], name)
		if err != nil {
			return nil, mirrorerrors.Wrapf(err, "adapting %s field %s", name, cf.Fields[i].Name)
		}
		d.Fields = append(d.Fields, f)
	}
	for i := range cf.Methods {
		mi := &cf.Methods[i]
		if mi.IsClassInitializer() {
			continue
		}
		m, err := a.adaptMethod(mi, name, d.IsInterface())
		if err != nil {
			return nil, mirrorerrors.Wrapf(err, "adapting %s method %s%s", name, mi.Name, mi.Descriptor)
		}
		if m.IsConstructor() {
			d.Constructors = append(d.Constructors, m)
		} else {
			d.Methods = append(d.Methods, m)
		}
	}
	return d, nil
}

// adaptHeader reads the supertypes and, when present, reconciles them with
// the class Signature.
func (a *Adapter) adaptHeader(cf *classfile.ClassFile, d *TypeDescriptor) error {
	superName := ""
	if cf.SuperClass != 0 {
		n, err := classfile.GetClassName(cf.ConstantPool, cf.SuperClass)
		if err != nil {
			return &classfile.FormatError{Err: fmt.Errorf("super_class: %w", err)}
		}
		superName = n
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil {
		return &classfile.FormatError{Err: err}
	}
	if d.IsInterface() && superName != signature.ObjectName {
		return fmt.Errorf("interface must extend %s, not %q: %w", signature.ObjectName, superName, errInconsistent)
	}
	if superName == "" && d.Name != signature.ObjectName {
		return fmt.Errorf("missing super_class: %w", errInconsistent)
	}

	if cf.Signature == "" {
		if superName != "" && !d.IsInterface() {
			d.Super = signature.Class(superName)
		}
		for _, n := range ifaces {
			d.Interfaces = append(d.Interfaces, signature.Class(n))
		}
		return nil
	}

	sig, err := a.parser.ClassSignature(cf.Signature)
	if err != nil {
		return err
	}
	if err := checkTypeParams(sig.TypeParams); err != nil {
		return err
	}
	switch {
	case sig.Super == nil:
		if superName != "" {
			return fmt.Errorf("signature omits superclass %s: %w", superName, errInconsistent)
		}
	case superName == "":
		if !sig.Super.IsObject() {
			return fmt.Errorf("signature superclass %s without super_class: %w", sig.Super, errInconsistent)
		}
	case sig.Super.Kind != signature.KindClass || sig.Super.Name != superName:
		return fmt.Errorf("signature superclass %s disagrees with super_class %s: %w", sig.Super, superName, errInconsistent)
	}
	if len(sig.Interfaces) != len(ifaces) {
		return fmt.Errorf("signature lists %d interfaces, class file %d: %w", len(sig.Interfaces), len(ifaces), errInconsistent)
	}
	for i, t := range sig.Interfaces {
		if t.Kind != signature.KindClass || t.Name != ifaces[i] {
			return fmt.Errorf("signature interface %s disagrees with %s: %w", t, ifaces[i], errInconsistent)
		}
	}
	d.TypeParams = sig.TypeParams
	if superName != "" && !d.IsInterface() {
		d.Super = sig.Super
	}
	d.Interfaces = sig.Interfaces
	return nil
}

// errInconsistent marks class-file facts that contradict each other.
var errInconsistent = &classfile.FormatError{Err: fmt.Errorf("inconsistent class file")}

func checkTypeParams(params []signature.TypeParam) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name] {
			return fmt.Errorf("type parameter %s declared twice: %w", p.Name, errInconsistent)
		}
		seen[p.Name] = true
		if len(p.Bounds()) == 0 {
			return fmt.Errorf("type parameter %s has no bounds: %w", p.Name, errInconsistent)
		}
	}
	return nil
}

// adaptNesting fills in enclosing and inner types from InnerClasses and
// EnclosingMethod.
func (a *Adapter) adaptNesting(cf *classfile.ClassFile, d *TypeDescriptor) {
	for _, ic := range cf.InnerClasses {
		switch {
		case ic.InnerClass == d.Name:
			// Member classes carry their source modifiers here.
			d.Modifiers = typeModifiers(ic.AccessFlags)
			if ic.OuterClass != "" {
				d.Enclosing = ic.OuterClass
				d.CapturesEnclosing = ic.AccessFlags&(classfile.AccStatic|classfile.AccInterface) == 0
			}
		case ic.OuterClass == d.Name && ic.InnerName != "":
			d.InnerTypes = append(d.InnerTypes, ic.InnerClass)
		}
	}
	if em := cf.EnclosingMethod; em != nil {
		d.Enclosing = em.Class
		d.CapturesEnclosing = true
		if em.Name != "" {
			d.EnclosingMethod = &EnclosingMethod{Class: em.Class, Name: em.Name, Descriptor: em.Descriptor}
		}
	}
}

func (a *Adapter) adaptField(cf *classfile.ClassFile, fi *classfile.FieldInfo, owner string) (*FieldDescriptor, error) {
	typ, err := a.parser.FieldDescriptor(fi.Descriptor)
	if err != nil {
		return nil, err
	}
	f := &FieldDescriptor{
		Name:          fi.Name,
		AccessFlags:   fi.AccessFlags,
		Modifiers:     fieldModifiers(fi.AccessFlags),
		DeclaringType: owner,
		Descriptor:    fi.Descriptor,
		Type:          typ,
	}
	if fi.Signature != "" {
		generic, err := a.parser.FieldSignature(fi.Signature)
		if err != nil {
			return nil, err
		}
		if generic.Kind == signature.KindClass && typ.Kind == signature.KindClass && generic.Name != typ.Name {
			return nil, fmt.Errorf("signature type %s disagrees with descriptor %s: %w", generic, fi.Descriptor, errInconsistent)
		}
		f.Type = generic
	}
	if f.Annotations, err = convertAnnotations(fi.Annotations); err != nil {
		return nil, err
	}
	if fi.ConstantValue != nil {
		v, err := constantOf(cf.ConstantPool, fi.ConstantValue, fi.Descriptor)
		if err != nil {
			return nil, err
		}
		f.Constant, f.HasConstant = v, true
	}
	return f, nil
}

// constantOf converts a ConstantValue entry to the Go type of the field.
func constantOf(pool []classfile.ConstantPoolEntry, entry classfile.ConstantPoolEntry, desc string) (any, error) {
	switch c := entry.(type) {
	case *classfile.ConstantInteger:
		switch desc {
		case "Z":
			return c.Value != 0, nil
		case "B":
			return int8(c.Value), nil
		case "C":
			return rune(uint16(c.Value)), nil
		case "S":
			return int16(c.Value), nil
		case "I":
			return c.Value, nil
		}
	case *classfile.ConstantLong:
		if desc == "J" {
			return c.Value, nil
		}
	case *classfile.ConstantFloat:
		if desc == "F" {
			return c.Value, nil
		}
	case *classfile.ConstantDouble:
		if desc == "D" {
			return c.Value, nil
		}
	case *classfile.ConstantString:
		if desc == "Ljava/lang/String;" {
			s, err := classfile.GetUtf8(pool, c.StringIndex)
			if err != nil {
				return nil, &classfile.FormatError{Err: err}
			}
			return s, nil
		}
	}
	return nil, fmt.Errorf("constant %T does not fit field type %s: %w", entry, desc, errInconsistent)
}

func (a *Adapter) adaptMethod(mi *classfile.MethodInfo, owner string, inInterface bool) (*MethodDescriptor, error) {
	erased, err := a.parser.MethodDescriptor(mi.Descriptor)
	if err != nil {
		return nil, err
	}
	m := &MethodDescriptor{
		Name:          mi.Name,
		AccessFlags:   mi.AccessFlags,
		Modifiers:     methodModifiers(mi.AccessFlags, inInterface),
		DeclaringType: owner,
		Descriptor:    mi.Descriptor,
		Erased:        erased,
		Return:        erased.Return,
	}
	params := erased.Params
	if mi.Signature != "" {
		sig, err := a.parser.MethodSignature(mi.Signature)
		if err != nil {
			return nil, err
		}
		if err := checkTypeParams(sig.TypeParams); err != nil {
			return nil, err
		}
		switch {
		case len(sig.Params) == len(params):
			params = sig.Params
		case m.IsConstructor() && len(sig.Params) < len(params):
			// Constructor signatures leave out synthetic leading parameters
			// such as the outer instance or an enum's name and ordinal.
			merged := append([]*signature.TypeRef(nil), params[:len(params)-len(sig.Params)]...)
			params = append(merged, sig.Params...)
		default:
			return nil, fmt.Errorf("signature has %d parameters, descriptor %d: %w", len(sig.Params), len(params), errInconsistent)
		}
		m.TypeParams = sig.TypeParams
		m.Return = sig.Return
		m.Throws = sig.Throws
	}
	if len(m.Throws) == 0 {
		for _, e := range mi.Exceptions {
			m.Throws = append(m.Throws, signature.Class(e))
		}
	}
	if m.Annotations, err = convertAnnotations(mi.Annotations); err != nil {
		return nil, err
	}

	if len(mi.ParameterAnnotations) > len(params) {
		return nil, fmt.Errorf("%d parameter annotation lists for %d parameters: %w", len(mi.ParameterAnnotations), len(params), errInconsistent)
	}
	annotated := len(params) - len(mi.ParameterAnnotations)
	named := len(mi.Parameters) == len(params)
	m.Params = make([]*ParameterDescriptor, len(params))
	for i, t := range params {
		p := &ParameterDescriptor{Name: fmt.Sprintf("arg%d", i), Type: t}
		if named && mi.Parameters[i].Name != "" {
			p.Name = mi.Parameters[i].Name
			p.NamePresent = true
		}
		if named {
			p.Modifiers = parameterModifiers(mi.Parameters[i].AccessFlags)
		}
		if i >= annotated {
			if p.Annotations, err = convertAnnotations(mi.ParameterAnnotations[i-annotated]); err != nil {
				return nil, err
			}
		}
		m.Params[i] = p
	}
	return m, nil
}
