package signature

import (
	"fmt"
	"strings"
)

// SyntaxError reports input that does not match the descriptor or
// signature grammar.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("signature: %s at offset %d in %q", e.Msg, e.Offset, e.Input)
}

// ParseFieldDescriptor parses a field descriptor such as "[Ljava/lang/String;".
func ParseFieldDescriptor(s string) (*TypeRef, error) {
	p := &scanner{input: s}
	t, err := p.fieldType()
	if err != nil {
		return nil, err
	}
	return t, p.end()
}

// ParseMethodDescriptor parses a method descriptor such as "(IJ)V".
func ParseMethodDescriptor(s string) (*MethodType, error) {
	p := &scanner{input: s}
	m, err := p.methodType()
	if err != nil {
		return nil, err
	}
	return m, p.end()
}

// ParseFieldSignature parses a field Signature attribute, which is always
// a reference type.
func ParseFieldSignature(s string) (*TypeRef, error) {
	p := &scanner{input: s, generic: true}
	t, err := p.referenceType()
	if err != nil {
		return nil, err
	}
	return t, p.end()
}

// ParseMethodSignature parses a method Signature attribute.
func ParseMethodSignature(s string) (*MethodType, error) {
	p := &scanner{input: s, generic: true}
	m, err := p.methodType()
	if err != nil {
		return nil, err
	}
	return m, p.end()
}

// ParseClassSignature parses a class Signature attribute.
func ParseClassSignature(s string) (*ClassSignature, error) {
	p := &scanner{input: s, generic: true}
	cs := &ClassSignature{}
	var err error
	if p.peek() == '<' {
		if cs.TypeParams, err = p.typeParams(); err != nil {
			return nil, err
		}
	}
	if p.peek() != 'L' {
		return nil, p.errorf("superclass must be a class type")
	}
	if cs.Super, err = p.referenceType(); err != nil {
		return nil, err
	}
	for !p.eof() {
		if p.peek() != 'L' {
			return nil, p.errorf("superinterface must be a class type")
		}
		iface, err := p.referenceType()
		if err != nil {
			return nil, err
		}
		cs.Interfaces = append(cs.Interfaces, iface)
	}
	return cs, nil
}

type scanner struct {
	input string
	pos   int
	// generic enables the signature grammar: type variables, type
	// arguments, type parameters, inner class owners and throws clauses.
	generic bool
}

func (p *scanner) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.input, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *scanner) eof() bool { return p.pos >= len(p.input) }

func (p *scanner) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *scanner) expect(c byte) error {
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *scanner) end() error {
	if !p.eof() {
		return p.errorf("unexpected trailing %q", p.input[p.pos:])
	}
	return nil
}

// identifier reads up to (not including) the first byte in stop.
func (p *scanner) identifier(stop string) (string, error) {
	start := p.pos
	for !p.eof() && strings.IndexByte(stop, p.input[p.pos]) < 0 {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected identifier")
	}
	return p.input[start:p.pos], nil
}

func (p *scanner) fieldType() (*TypeRef, error) {
	switch c := p.peek(); c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.pos++
		return Primitive(c), nil
	default:
		return p.referenceType()
	}
}

func (p *scanner) referenceType() (*TypeRef, error) {
	switch c := p.peek(); c {
	case 'L':
		p.pos++
		return p.classType()
	case '[':
		p.pos++
		elem, err := p.fieldType()
		if err != nil {
			return nil, err
		}
		return ArrayOf(elem), nil
	case 'T':
		if !p.generic {
			break
		}
		p.pos++
		name, err := p.identifier(";<>.:/[")
		if err != nil {
			return nil, err
		}
		if err := p.expect(';'); err != nil {
			return nil, err
		}
		return Var(name), nil
	case 0:
		return nil, p.errorf("expected type, got end of input")
	}
	return nil, p.errorf("unexpected %q", p.peek())
}

// classType parses the rest of a class type after its leading 'L'.
func (p *scanner) classType() (*TypeRef, error) {
	if !p.generic {
		name, err := p.identifier(";<>.[")
		if err != nil {
			return nil, err
		}
		if err := p.expect(';'); err != nil {
			return nil, err
		}
		return Class(name), nil
	}

	name, err := p.identifier(";<>.:[")
	if err != nil {
		return nil, err
	}
	t := Class(name)
	if p.peek() == '<' {
		if t.Args, err = p.typeArgs(); err != nil {
			return nil, err
		}
	}
	for p.peek() == '.' {
		p.pos++
		inner, err := p.identifier(";<>.:/[")
		if err != nil {
			return nil, err
		}
		next := &TypeRef{Kind: KindClass, Name: t.Name + "$" + inner, Owner: t}
		if p.peek() == '<' {
			if next.Args, err = p.typeArgs(); err != nil {
				return nil, err
			}
		}
		t = next
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *scanner) typeArgs() ([]*TypeRef, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var args []*TypeRef
	for p.peek() != '>' {
		var arg *TypeRef
		var err error
		switch p.peek() {
		case '*':
			p.pos++
			arg = Unbounded()
		case '+':
			p.pos++
			var b *TypeRef
			if b, err = p.referenceType(); err == nil {
				arg = Extends(b)
			}
		case '-':
			p.pos++
			var b *TypeRef
			if b, err = p.referenceType(); err == nil {
				arg = SuperOf(b)
			}
		default:
			arg, err = p.referenceType()
		}
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		return nil, p.errorf("empty type argument list")
	}
	p.pos++
	return args, nil
}

func (p *scanner) typeParams() ([]TypeParam, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var params []TypeParam
	for p.peek() != '>' {
		name, err := p.identifier(":;<>./[")
		if err != nil {
			return nil, err
		}
		tp := TypeParam{Name: name}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		if c := p.peek(); c == 'L' || c == 'T' || c == '[' {
			if tp.ClassBound, err = p.referenceType(); err != nil {
				return nil, err
			}
		}
		for p.peek() == ':' {
			p.pos++
			b, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			tp.InterfaceBounds = append(tp.InterfaceBounds, b)
		}
		params = append(params, tp)
	}
	if len(params) == 0 {
		return nil, p.errorf("empty type parameter list")
	}
	p.pos++
	return params, nil
}

func (p *scanner) methodType() (*MethodType, error) {
	m := &MethodType{}
	var err error
	if p.generic && p.peek() == '<' {
		if m.TypeParams, err = p.typeParams(); err != nil {
			return nil, err
		}
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	for p.peek() != ')' {
		if p.eof() {
			return nil, p.errorf("unterminated parameter list")
		}
		param, err := p.fieldType()
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, param)
	}
	p.pos++
	if p.peek() == 'V' {
		p.pos++
		m.Return = Primitive('V')
	} else if m.Return, err = p.fieldType(); err != nil {
		return nil, err
	}
	for p.generic && p.peek() == '^' {
		p.pos++
		if c := p.peek(); c != 'L' && c != 'T' {
			return nil, p.errorf("thrown type must be a class or type variable")
		}
		t, err := p.referenceType()
		if err != nil {
			return nil, err
		}
		m.Throws = append(m.Throws, t)
	}
	return m, nil
}
