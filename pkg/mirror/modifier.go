package mirror

import (
	"strings"

	"github.com/daimatz/mirror/pkg/classfile"
)

// Modifier is a Java language modifier.
type Modifier uint16

const (
	Public Modifier = 1 << iota
	Private
	Protected
	Static
	Final
	Synchronized
	Volatile
	Transient
	Native
	Abstract
	Strictfp
	Default
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{Public, "public"},
	{Private, "private"},
	{Protected, "protected"},
	{Static, "static"},
	{Final, "final"},
	{Synchronized, "synchronized"},
	{Volatile, "volatile"},
	{Transient, "transient"},
	{Native, "native"},
	{Abstract, "abstract"},
	{Strictfp, "strictfp"},
	{Default, "default"},
}

func (m Modifier) String() string {
	for _, n := range modifierNames {
		if n.mod == m {
			return n.name
		}
	}
	return "unknown"
}

// Modifiers is a set of modifiers.
type Modifiers uint16

// Has reports whether every modifier in mods is present.
func (s Modifiers) Has(mods ...Modifier) bool {
	for _, m := range mods {
		if uint16(s)&uint16(m) == 0 {
			return false
		}
	}
	return true
}

// List returns the modifiers in canonical order.
func (s Modifiers) List() []Modifier {
	var out []Modifier
	for _, n := range modifierNames {
		if s.Has(n.mod) {
			out = append(out, n.mod)
		}
	}
	return out
}

// String joins the modifiers the way Java source orders them.
func (s Modifiers) String() string {
	mods := s.List()
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.String()
	}
	return strings.Join(names, " ")
}

func modifiersOf(flags uint16, bits map[uint16]Modifier) Modifiers {
	var s Modifiers
	for bit, mod := range bits {
		if flags&bit != 0 {
			s |= Modifiers(mod)
		}
	}
	return s
}

var (
	// InnerClasses flags of a member type carry private, protected and
	// static, which the class header cannot express.
	typeModifierBits = map[uint16]Modifier{
		classfile.AccPublic:    Public,
		classfile.AccPrivate:   Private,
		classfile.AccProtected: Protected,
		classfile.AccStatic:    Static,
		classfile.AccFinal:     Final,
		classfile.AccAbstract:  Abstract,
	}
	fieldModifierBits = map[uint16]Modifier{
		classfile.AccPublic:    Public,
		classfile.AccPrivate:   Private,
		classfile.AccProtected: Protected,
		classfile.AccStatic:    Static,
		classfile.AccFinal:     Final,
		classfile.AccVolatile:  Volatile,
		classfile.AccTransient: Transient,
	}
	methodModifierBits = map[uint16]Modifier{
		classfile.AccPublic:       Public,
		classfile.AccPrivate:      Private,
		classfile.AccProtected:    Protected,
		classfile.AccStatic:       Static,
		classfile.AccFinal:        Final,
		classfile.AccSynchronized: Synchronized,
		classfile.AccNative:       Native,
		classfile.AccAbstract:     Abstract,
		classfile.AccStrict:       Strictfp,
	}
	parameterModifierBits = map[uint16]Modifier{
		classfile.AccFinal: Final,
	}
)

func typeModifiers(flags uint16) Modifiers {
	return modifiersOf(flags, typeModifierBits)
}

func fieldModifiers(flags uint16) Modifiers {
	return modifiersOf(flags, fieldModifierBits)
}

// methodModifiers also derives "default" for non-abstract, non-static
// instance methods of interfaces.
func methodModifiers(flags uint16, inInterface bool) Modifiers {
	s := modifiersOf(flags, methodModifierBits)
	if inInterface && flags&(classfile.AccAbstract|classfile.AccStatic|classfile.AccPrivate) == 0 {
		s |= Modifiers(Default)
	}
	return s
}

func parameterModifiers(flags uint16) Modifiers {
	return modifiersOf(flags, parameterModifierBits)
}
