package serializer

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// IValueSerializer is the interface for all value serializers.
// A value serializer turns an arbitrary in-memory value into a text form and back.
type IValueSerializer interface {
	// Encode serializes a value into its text form.
	// It returns ErrUnsupportedType if the value (or a nested value) cannot be represented.
	// This includes strings that are not valid UTF-8 and values nested deeper than 512
	// levels, cyclic values among them.
	Encode(v any) (string, error)
	// Decode deserializes a text form back into a value.
	// Text that is neither a structured value nor a valid literal is returned unchanged.
	// An unregistered type name results in an *UnknownTypeError, a malformed field mapping
	// of a structured value in a *MalformedLiteralError.
	Decode(text string) (any, error)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrUnsupportedType is returned if a value has a kind that has no text form (chan, func, complex, ...)
var ErrUnsupportedType = errors.New("unsupported type")

// UnknownTypeError is returned if a structured value names a type that is not registered
type UnknownTypeError struct {
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q: not registered", e.TypeName)
}

// MalformedLiteralError is returned if the field mapping of a structured value can not be parsed
type MalformedLiteralError struct {
	Literal string
	Pos     int
	Reason  string
}

func (e *MalformedLiteralError) Error() string {
	return fmt.Sprintf("malformed literal at offset %d: %s", e.Pos, e.Reason)
}
