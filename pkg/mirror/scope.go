package mirror

import (
	"github.com/daimatz/mirror/pkg/mirrorerrors"
	"github.com/daimatz/mirror/pkg/signature"
)

// scope is the set of type variables visible inside one type, optionally
// narrowed to one generic method.
//
// Method type parameters are never bound and shadow everything else.
// Otherwise a variable resolves to its binding, stays open if declared by
// the type or an enclosing declaration, and is an error if neither.
type scope struct {
	owner    string
	bindings Bindings
	declared map[string]signature.TypeParam
	method   map[string]signature.TypeParam
}

func (s *scope) withMethod(params []signature.TypeParam) *scope {
	if len(params) == 0 {
		return s
	}
	ms := *s
	ms.method = make(map[string]signature.TypeParam, len(params))
	for _, p := range params {
		ms.method[p.Name] = p
	}
	return &ms
}

// resolve substitutes the bindings into t.
func (s *scope) resolve(t *signature.TypeRef) (*signature.TypeRef, error) {
	return t.Map(func(v *signature.TypeRef) (*signature.TypeRef, error) {
		if _, ok := s.method[v.Name]; ok {
			return v, nil
		}
		if arg, ok := s.bindings.Lookup(v.Name); ok {
			return arg, nil
		}
		if _, ok := s.declared[v.Name]; ok {
			return v, nil
		}
		return nil, mirrorerrors.Newf(mirrorerrors.KindUnresolvedBinding,
			"type variable %s is neither declared in nor bound for %s", v.Name, s.owner)
	})
}

func (s *scope) resolveAll(ts []*signature.TypeRef) ([]*signature.TypeRef, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	out := make([]*signature.TypeRef, len(ts))
	for i, t := range ts {
		r, err := s.resolve(t)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// resolveParams resolves the bounds of declared type parameters.
func (s *scope) resolveParams(params []signature.TypeParam) ([]TypeParameter, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make([]TypeParameter, len(params))
	for i, p := range params {
		bounds, err := s.resolveAll(p.Bounds())
		if err != nil {
			return nil, err
		}
		out[i] = TypeParameter{Name: p.Name, Bounds: bounds}
	}
	return out, nil
}

// maxEraseDepth bounds chains like <A extends B, B extends A>.
const maxEraseDepth = 32

// erase returns the erasure of a resolved type. Open variables erase to
// the erasure of their leftmost bound.
func (s *scope) erase(t *signature.TypeRef) *signature.TypeRef {
	return s.eraseDepth(t, 0)
}

func (s *scope) eraseDepth(t *signature.TypeRef, depth int) *signature.TypeRef {
	switch t.Kind {
	case signature.KindPrimitive:
		return t
	case signature.KindArray:
		return signature.ArrayOf(s.eraseDepth(t.Elem, depth))
	case signature.KindClass:
		if len(t.Args) == 0 && t.Owner == nil {
			return t
		}
		return signature.Class(t.Name)
	case signature.KindWildcard:
		if t.Bound != nil && !t.Super {
			return s.eraseDepth(t.Bound, depth+1)
		}
		return signature.Object()
	case signature.KindTypeVar:
		p, ok := s.method[t.Name]
		if !ok {
			if arg, bound := s.bindings.Lookup(t.Name); bound && depth < maxEraseDepth {
				return s.eraseDepth(arg, depth+1)
			}
			p, ok = s.declared[t.Name]
		}
		bounds := p.Bounds()
		if !ok || len(bounds) == 0 || depth >= maxEraseDepth {
			return signature.Object()
		}
		return s.eraseDepth(bounds[0], depth+1)
	default:
		return signature.Object()
	}
}

// erasedDescriptor renders the erased parameter list as "(...)".
func (s *scope) erasedDescriptor(params []*signature.TypeRef) string {
	desc := "("
	for _, p := range params {
		desc += s.erase(p).Descriptor()
	}
	return desc + ")"
}
