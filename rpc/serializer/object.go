package serializer

import (
	"fmt"
	"reflect"
)

// Tuple is a fixed size sequence. It is encoded as (a, b) instead of [a, b].
type Tuple []any

// Kind tells whether a value is encoded as a literal or as a type name plus field mapping
type Kind uint8

const (
	KindPlain      Kind = iota // string, numbers, bool, nil, []byte, slices, maps, Tuple
	KindStructured             // structs (and pointers to structs)
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Object is a value tagged with its Kind.
// For structured values TypeName holds the name the value is encoded with.
type Object struct {
	Kind     Kind
	TypeName string
	Value    any

	registry *Registry
}

// Text returns the literal form of the wrapped value, as Encode of a literal serializer
// over the registry the object was wrapped with.
func (o Object) Text() (string, error) {
	registry := o.registry
	if registry == nil {
		registry = NewRegistry()
	}
	s := &literalSerializerImpl{registry: registry}
	if o.Kind == KindStructured && o.TypeName == "" {
		o.TypeName = registry.nameOf(indirectType(reflect.TypeOf(o.Value)))
	}
	return s.encodeObject(o)
}

// String returns Text, or a Go representation of the value if it has no literal form.
func (o Object) String() string {
	text, err := o.Text()
	if err != nil {
		return fmt.Sprintf("<%s %#v>", o.Kind, o.Value)
	}
	return text
}

// Classify returns the Kind of v.
// Pointers are followed, a nil pointer is plain (it encodes to None).
func Classify(v any) Kind {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return KindPlain
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return KindStructured
	}
	return KindPlain
}

// Wrap wraps v into an Object, resolving the type name of structured values in the registry.
func (r *Registry) Wrap(v any) Object {
	obj := Object{Kind: Classify(v), Value: v, registry: r}
	if obj.Kind == KindStructured {
		obj.TypeName = r.nameOf(indirectType(reflect.TypeOf(v)))
	}
	return obj
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
