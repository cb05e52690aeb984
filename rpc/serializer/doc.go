// Package serializer provides the value encoding used by the cKV store.
// Values of arbitrary runtime type are turned into a reversible text form that is
// safe to embed in a URL query string once it is escaped.
//
// The package focuses on:
//   - Encoding plain values (strings, numbers, bools, nil, bytes, slices, maps, tuples)
//     as literal expressions
//   - Encoding structs as `TypeName({'field': value, ...})`
//   - Decoding with a small recursive descent parser, never with an evaluator
//   - Escaping the reserved characters of the query string format
//
// Key Components:
//
//   - IValueSerializer: Core interface with Encode and Decode.
//
//   - literalSerializerImpl: The literal text implementation created by NewLiteralSerializer.
//     Decoding text that is no valid literal returns the text itself, so callers must not
//     assume Decode always changes the type.
//
//   - Registry: Explicit mapping of type names to constructors. Structured values can only
//     be decoded if their type name was registered (Register, RegisterConstructor), unknown
//     names result in an *UnknownTypeError.
//
//   - Escape / Unescape: Replace the reserved characters `" ' space [ ] , = + : ; @ $ { }`
//     with their percent codes and back.
//
// Canonical decoded types:
//
//	string, int64 (uint64 above MaxInt64), float64, bool, nil, []byte, []any,
//	map[string]any (map[any]any if a key is no string), Tuple, registered structs
//
// Thread Safety:
//
//	Serializers and registries are safe for concurrent use across multiple goroutines.
//
// Usage:
//
//	registry := serializer.NewRegistry()
//	_ = serializer.Register[Point](registry, "Point")
//	s := serializer.NewLiteralSerializer(registry)
//
//	text, _ := s.Encode(Point{X: 1, Y: 2}) // Point({'X': 1, 'Y': 2})
//	v, _ := s.Decode(text)                 // Point{X: 1, Y: 2}
package serializer
