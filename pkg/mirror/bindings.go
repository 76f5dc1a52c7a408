package mirror

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/daimatz/mirror/pkg/signature"
)

// Bindings is an immutable assignment of type arguments to type parameter
// names. The zero value binds nothing.
//
// Arguments are kept by reference and Key is computed once, so a TypeRef
// must not be modified after it is bound. Nil and primitive arguments are
// accepted here and rejected when a mirror is built.
type Bindings struct {
	m   map[string]*signature.TypeRef
	key string
}

// NoBindings is the empty binding context.
var NoBindings = Bindings{}

// Bind returns bindings holding a single assignment.
func Bind(name string, arg *signature.TypeRef) Bindings {
	return NoBindings.With(name, arg)
}

// BindingsOf copies m into a Bindings.
func BindingsOf(m map[string]*signature.TypeRef) Bindings {
	if len(m) == 0 {
		return NoBindings
	}
	return newBindings(maps.Clone(m))
}

func newBindings(m map[string]*signature.TypeRef) Bindings {
	if len(m) == 0 {
		return NoBindings
	}
	names := slices.Sorted(maps.Keys(m))
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		if arg := m[name]; arg != nil {
			sb.WriteString(arg.Signature())
		}
	}
	return Bindings{m: m, key: sb.String()}
}

// With returns a copy of b with name bound to arg.
func (b Bindings) With(name string, arg *signature.TypeRef) Bindings {
	m := make(map[string]*signature.TypeRef, len(b.m)+1)
	maps.Copy(m, b.m)
	m[name] = arg
	return newBindings(m)
}

// Lookup returns the argument bound to name.
func (b Bindings) Lookup(name string) (*signature.TypeRef, bool) {
	t, ok := b.m[name]
	return t, ok
}

// Len returns the number of bound names.
func (b Bindings) Len() int { return len(b.m) }

// Names returns the bound names in sorted order.
func (b Bindings) Names() []string {
	return slices.Sorted(maps.Keys(b.m))
}

// Key is the canonical form of b. Two Bindings are equal exactly when
// their keys are.
func (b Bindings) Key() string { return b.key }

// Equal reports whether b and o bind the same names to equal types.
func (b Bindings) Equal(o Bindings) bool { return b.key == o.key }

func (b Bindings) String() string {
	names := b.Names()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=<nil>"
		if arg := b.m[name]; arg != nil {
			parts[i] = name + "=" + arg.String()
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// restrict keeps only the names keep accepts.
func (b Bindings) restrict(keep func(name string) bool) Bindings {
	var m map[string]*signature.TypeRef
	for name, arg := range b.m {
		if keep(name) {
			if m == nil {
				m = make(map[string]*signature.TypeRef, len(b.m))
			}
			m[name] = arg
		}
	}
	if len(m) == len(b.m) {
		return b
	}
	return newBindings(m)
}

// ParseBindings parses "NAME=TYPE" assignments. TYPE is either a dotted
// class name ("java.lang.String") or a reference type in signature syntax
// ("Ljava/util/List<Ljava/lang/String;>;").
func ParseBindings(specs []string) (Bindings, error) {
	m := make(map[string]*signature.TypeRef, len(specs))
	for _, spec := range specs {
		name, typ, ok := strings.Cut(spec, "=")
		name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
		if !ok || name == "" || typ == "" {
			return NoBindings, fmt.Errorf("binding %q: want NAME=TYPE", spec)
		}
		arg, err := parseBindingType(typ)
		if err != nil {
			return NoBindings, fmt.Errorf("binding %q: %w", spec, err)
		}
		m[name] = arg
	}
	return newBindings(m), nil
}

func parseBindingType(s string) (*signature.TypeRef, error) {
	if strings.HasSuffix(s, ";") {
		return signature.ParseFieldSignature(s)
	}
	switch s {
	case "boolean", "byte", "char", "short", "int", "long", "float", "double", "void":
		return nil, fmt.Errorf("type arguments must be reference types, got %s", s)
	}
	if strings.ContainsAny(s, "<>[];") {
		return nil, fmt.Errorf("use signature syntax for %q", s)
	}
	return signature.Class(signature.InternalName(s)), nil
}
