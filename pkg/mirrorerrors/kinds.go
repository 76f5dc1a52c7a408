package mirrorerrors

import (
	"fmt"
	"strings"
)

// Kind is the category of a mirror failure. The set of kinds is closed.
type Kind int

const (
	// KindNone means no error.
	KindNone Kind = iota

	// KindInaccessibleDescriptor means the host refused to let the raw
	// metadata of a type be read, for example because a loader policy denies
	// its package or the class file is not readable.
	KindInaccessibleDescriptor

	// KindMalformedDescriptor means the host metadata is internally
	// inconsistent: broken class-file structure, unparsable descriptors or
	// signatures, or generic signatures that disagree with the class header.
	KindMalformedDescriptor

	// KindCyclicHierarchy means a type is its own supertype.
	KindCyclicHierarchy

	// KindUnresolvedBinding means a type refers to a type variable that is
	// neither declared in scope nor bound.
	KindUnresolvedBinding

	// KindReflectiveOperation is every other failure, including classes that
	// cannot be found.
	KindReflectiveOperation
)

var (
	_kindToString = map[Kind]string{
		KindNone:                   "none",
		KindInaccessibleDescriptor: "inaccessible-descriptor",
		KindMalformedDescriptor:    "malformed-descriptor",
		KindCyclicHierarchy:        "cyclic-hierarchy",
		KindUnresolvedBinding:      "unresolved-binding",
		KindReflectiveOperation:    "reflective-operation",
	}
	_stringToKind = map[string]Kind{
		"none":                    KindNone,
		"inaccessible-descriptor": KindInaccessibleDescriptor,
		"malformed-descriptor":    KindMalformedDescriptor,
		"cyclic-hierarchy":        KindCyclicHierarchy,
		"unresolved-binding":      KindUnresolvedBinding,
		"reflective-operation":    KindReflectiveOperation,
	}
	_kindToTypeName = map[Kind]string{
		KindInaccessibleDescriptor: "InaccessibleDescriptorError",
		KindMalformedDescriptor:    "MalformedDescriptorError",
		KindCyclicHierarchy:        "CyclicHierarchyError",
		KindUnresolvedBinding:      "UnresolvedBindingError",
		KindReflectiveOperation:    "ReflectiveOperationError",
	}
)

// Kinds returns every failure kind, KindNone excluded.
func Kinds() []Kind {
	return []Kind{
		KindInaccessibleDescriptor,
		KindMalformedDescriptor,
		KindCyclicHierarchy,
		KindUnresolvedBinding,
		KindReflectiveOperation,
	}
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	if s, ok := _kindToString[k]; ok {
		return s
	}
	return fmt.Sprintf("%d", int(k))
}

// TypeName returns the name the kind is known by in error listings, such as
// "CyclicHierarchyError".
func (k Kind) TypeName() string {
	return _kindToTypeName[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := _kindToString[k]
	if !ok {
		return nil, fmt.Errorf("unknown kind: %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, ok := _stringToKind[strings.ToLower(string(text))]
	if !ok {
		return fmt.Errorf("unknown kind string: %s", string(text))
	}
	*k = kind
	return nil
}
