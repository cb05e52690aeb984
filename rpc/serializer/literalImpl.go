package serializer

import (
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("serializer")

// structuredPattern splits `Name(inner)` into the type name and the inner field mapping
var structuredPattern = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\((.*)\)$`)

var tupleType = reflect.TypeOf(Tuple(nil))

// NewLiteralSerializer creates a serializer that encodes values as literal expressions:
//
//	"text", 42, 1.5, True, None, b'raw', [1, 2], (1,), {'a': 1}, Point({'x': 1, 'y': 2})
//
// Structured values are decoded with the constructors of the given registry.
// A nil registry is treated as an empty one.
func NewLiteralSerializer(registry *Registry) IValueSerializer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &literalSerializerImpl{registry: registry}
}

type literalSerializerImpl struct {
	registry *Registry
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IValueSerializer)
// --------------------------------------------------------------------------

func (s *literalSerializerImpl) Encode(v any) (string, error) {
	return s.encodeObject(s.registry.Wrap(v))
}

func (s *literalSerializerImpl) Decode(text string) (any, error) {
	// Case structured value -> the registry decides
	if m := structuredPattern.FindStringSubmatch(text); m != nil {
		return s.decodeStructured(m[1], m[2], text)
	}

	// Case plain value -> fall back to the raw text if it is no valid literal
	p := &parser{src: text, registry: s.registry}
	v, err := p.parseAll()
	if err != nil {
		var malformed *MalformedLiteralError
		if errors.As(err, &malformed) {
			return text, nil
		}
		return nil, err
	}
	return v, nil
}

// --------------------------------------------------------------------------
// Decoding helpers
// --------------------------------------------------------------------------

func (s *literalSerializerImpl) decodeStructured(name, inner, text string) (any, error) {
	ctor, ok := s.registry.Lookup(name)
	if !ok {
		return nil, &UnknownTypeError{TypeName: name}
	}

	fields := map[string]any{}
	if strings.TrimSpace(inner) != "" {
		p := &parser{src: inner, registry: s.registry}
		v, err := p.parseAll()
		if err != nil {
			var malformed *MalformedLiteralError
			if errors.As(err, &malformed) {
				malformed.Literal = text
				malformed.Pos += len(name) + 1
			}
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, &MalformedLiteralError{Literal: text, Pos: len(name) + 1, Reason: "expected a field mapping with string keys"}
		}
		fields = m
	}

	obj, err := ctor(fields)
	if err != nil {
		return nil, &MalformedLiteralError{Literal: text, Pos: len(name) + 1, Reason: err.Error()}
	}
	return obj, nil
}

// --------------------------------------------------------------------------
// Encoding helpers
// --------------------------------------------------------------------------

// encodeObject writes plain values as literal and structured values as `Name({...})`
func (s *literalSerializerImpl) encodeObject(obj Object) (string, error) {
	var sb strings.Builder
	var err error
	switch obj.Kind {
	case KindStructured:
		v := reflect.ValueOf(obj.Value)
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		err = s.writeStruct(&sb, obj.TypeName, v, 0)
	default:
		err = s.encode(&sb, reflect.ValueOf(obj.Value), true, 0)
	}
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// encode writes v. depth counts pointer hops and nesting levels. A cyclic value
// exceeds maxDepth and is reported as unsupported.
func (s *literalSerializerImpl) encode(sb *strings.Builder, v reflect.Value, top bool, depth int) error {
	if depth > maxDepth {
		return errors.Wrapf(ErrUnsupportedType, "value nested deeper than %d levels", maxDepth)
	}
	if !v.IsValid() {
		sb.WriteString("None")
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			sb.WriteString("None")
			return nil
		}
		if v.Kind() == reflect.Pointer {
			depth++
		}
		return s.encode(sb, v.Elem(), top, depth)
	case reflect.Bool:
		if v.Bool() {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32:
		sb.WriteString(formatFloat(v.Float(), 32))
	case reflect.Float64:
		sb.WriteString(formatFloat(v.Float(), 64))
	case reflect.String:
		quote := byte('\'')
		if top {
			quote = '"'
		}
		if !utf8.ValidString(v.String()) {
			return errors.Wrap(ErrUnsupportedType, "string is not valid UTF-8, use []byte for raw bytes")
		}
		writeString(sb, v.String(), quote)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			writeBytes(sb, v.Bytes())
			return nil
		}
		if v.Type() == tupleType {
			return s.encodeTuple(sb, v, depth)
		}
		return s.encodeList(sb, v, depth)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			writeBytes(sb, b)
			return nil
		}
		return s.encodeList(sb, v, depth)
	case reflect.Map:
		return s.encodeMap(sb, v, depth)
	case reflect.Struct:
		return s.writeStruct(sb, s.registry.nameOf(v.Type()), v, depth)
	default:
		return errors.Wrapf(ErrUnsupportedType, "can not encode %s", v.Type())
	}
	return nil
}

func (s *literalSerializerImpl) encodeList(sb *strings.Builder, v reflect.Value, depth int) error {
	sb.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := s.encode(sb, v.Index(i), false, depth+1); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}

func (s *literalSerializerImpl) encodeTuple(sb *strings.Builder, v reflect.Value, depth int) error {
	sb.WriteByte('(')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := s.encode(sb, v.Index(i), false, depth+1); err != nil {
			return err
		}
	}
	if v.Len() == 1 {
		sb.WriteByte(',')
	}
	sb.WriteByte(')')
	return nil
}

func (s *literalSerializerImpl) encodeMap(sb *strings.Builder, v reflect.Value, depth int) error {
	type entry struct{ key, value string }
	entries := make([]entry, 0, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		if err := s.encode(&kb, iter.Key(), false, depth+1); err != nil {
			return err
		}
		if err := s.encode(&vb, iter.Value(), false, depth+1); err != nil {
			return err
		}
		entries = append(entries, entry{kb.String(), vb.String()})
	}

	// map iteration order is random, sort for a stable text form
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sb.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.key)
		sb.WriteString(": ")
		sb.WriteString(e.value)
	}
	sb.WriteByte('}')
	return nil
}

// writeStruct writes `name({field: value, ...})`. The call and its field mapping are two
// levels when parsed, so fields are encoded two levels deeper.
func (s *literalSerializerImpl) writeStruct(sb *strings.Builder, name string, v reflect.Value, depth int) error {
	sb.WriteString(name)
	sb.WriteString("({")
	for i, f := range fieldsOf(v.Type()) {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeString(sb, f.name, '\'')
		sb.WriteString(": ")
		if err := s.encode(sb, v.Field(f.index), false, depth+2); err != nil {
			return errors.Wrapf(err, "field %s.%s", v.Type(), f.name)
		}
	}
	sb.WriteString("})")
	return nil
}

// formatFloat always produces a text that is parsed back as float (1 -> 1.0)
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	out := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(out, ".e") {
		out += ".0"
	}
	return out
}

// writeString writes a quoted string literal. The output is printable ASCII only:
// control characters, non ASCII runes and the characters & # % (which are structural
// in query strings) are written as escape sequences.
func writeString(sb *strings.Builder, str string, quote byte) {
	sb.WriteByte(quote)
	for _, r := range str {
		switch {
		case r == '\\' || r == rune(quote):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '&' || r == '#' || r == '%' || r < 0x20 || r == 0x7f:
			writeHex(sb, 'x', uint32(r), 2)
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r <= 0xffff:
			writeHex(sb, 'u', uint32(r), 4)
		default:
			writeHex(sb, 'U', uint32(r), 8)
		}
	}
	sb.WriteByte(quote)
}

// writeBytes writes a bytes literal (b'...')
func writeBytes(sb *strings.Builder, b []byte) {
	sb.WriteString("b'")
	for _, c := range b {
		switch {
		case c == '\\' || c == '\'':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '&' || c == '#' || c == '%' || c < 0x20 || c >= 0x7f:
			writeHex(sb, 'x', uint32(c), 2)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
}

func writeHex(sb *strings.Builder, prefix byte, v uint32, digits int) {
	const hex = "0123456789abcdef"
	sb.WriteByte('\\')
	sb.WriteByte(prefix)
	for i := digits - 1; i >= 0; i-- {
		sb.WriteByte(hex[(v>>(uint(i)*4))&0xf])
	}
}
