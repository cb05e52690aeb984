package serializer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxDepth bounds the nesting of lists, dicts, tuples and calls. Deeper literals are
// malformed on decode and unsupported on encode.
const maxDepth = 512

var simpleEscapes = map[byte]byte{
	'\\': '\\', '\'': '\'', '"': '"', 'n': '\n', 'r': '\r', 't': '\t',
	'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v', '0': 0,
}

// parser is a recursive descent parser for the restricted literal grammar:
//
//	value  = string | bytes | number | "True" | "False" | "None"
//	       | list | dict | tuple | call
//	list   = "[" [ value { "," value } [","] ] "]"
//	dict   = "{" [ value ":" value { "," value ":" value } [","] ] "}"
//	tuple  = "(" ")" | "(" value ")" | "(" value "," [ value { "," value } [","] ] ")"
//	call   = name "(" [ dict ] ")"      (name must be registered)
//
// It never evaluates anything, names other than True, False, None, inf and nan are
// only accepted as the type name of a call.
type parser struct {
	src      string
	pos      int
	depth    int
	registry *Registry
}

// parseAll parses a single value that must span the whole input
func (p *parser) parseAll() (any, error) {
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

func (p *parser) parseValue() (any, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, p.errorf("nesting deeper than %d levels", maxDepth)
	}

	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	c := p.src[p.pos]
	switch {
	case c == '\'' || c == '"':
		return p.parseString()
	case (c == 'b' || c == 'B') && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '\'' || p.src[p.pos+1] == '"'):
		p.pos++
		return p.parseBytes()
	case c == '[':
		return p.parseList()
	case c == '{':
		return p.parseDict()
	case c == '(':
		return p.parseTuple()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.parseNumber()
	case isNameStart(c):
		return p.parseName()
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

// --------------------------------------------------------------------------
// Scalars
// --------------------------------------------------------------------------

func (p *parser) parseString() (string, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			if err := p.parseEscape(&sb, false); err != nil {
				return "", err
			}
		case c == '\n':
			return "", p.errorf("newline in string literal")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
	p.pos = start
	return "", p.errorf("unterminated string literal")
}

func (p *parser) parseBytes() ([]byte, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return []byte(sb.String()), nil
		case c == '\\':
			if err := p.parseEscape(&sb, true); err != nil {
				return nil, err
			}
		case c >= utf8.RuneSelf:
			return nil, p.errorf("bytes can only contain ASCII characters")
		case c == '\n':
			return nil, p.errorf("newline in bytes literal")
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	p.pos = start
	return nil, p.errorf("unterminated bytes literal")
}

// parseEscape parses one backslash escape sequence and writes the result to sb.
// In bytes mode \xNN is a raw byte and \u, \U are no escapes.
func (p *parser) parseEscape(sb *strings.Builder, bytesMode bool) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape sequence")
	}
	c := p.src[p.pos]
	p.pos++

	if out, ok := simpleEscapes[c]; ok {
		sb.WriteByte(out)
		return nil
	}

	digits := 0
	switch c {
	case '\n':
		return nil // line continuation
	case 'x':
		digits = 2
	case 'u':
		digits = 4
	case 'U':
		digits = 8
	}
	if digits == 0 || (bytesMode && c != 'x') {
		// unknown escapes keep the backslash
		sb.WriteByte('\\')
		sb.WriteByte(c)
		return nil
	}

	if p.pos+digits > len(p.src) {
		return p.errorf("truncated \\%c escape", c)
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid \\%c escape", c)
	}
	p.pos += digits

	switch {
	case bytesMode:
		sb.WriteByte(byte(v))
	case v > utf8.MaxRune:
		return p.errorf("invalid code point %x", v)
	default:
		sb.WriteRune(rune(v))
	}
	return nil
}

func (p *parser) parseNumber() (any, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
	}

	// special floats
	for _, special := range []string{"inf", "nan"} {
		if strings.HasPrefix(p.src[p.pos:], special) && !p.nameContinues(p.pos+len(special)) {
			p.pos += len(special)
			if special == "nan" {
				return math.NaN(), nil
			}
			if p.src[start] == '-' {
				return math.Inf(-1), nil
			}
			return math.Inf(1), nil
		}
	}

	isFloat := false
	digits := 0
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
			digits++
		case c == '.':
			isFloat = true
		case c == 'e' || c == 'E':
			isFloat = true
			if p.pos+1 < len(p.src) && (p.src[p.pos+1] == '+' || p.src[p.pos+1] == '-') {
				p.pos++
			}
		default:
			break scan
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if digits == 0 {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}

	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.pos = start
			return nil, p.errorf("invalid float %q", text)
		}
		return f, nil
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	// values above MaxInt64 are kept as unsigned
	if n, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 64); err == nil {
		return n, nil
	}
	p.pos = start
	return nil, p.errorf("integer %q out of range", text)
}

// parseName parses the keywords True, False, None, inf, nan and calls of registered types
func (p *parser) parseName() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (p.nameContinues(p.pos) || (p.src[p.pos] == '.' && p.nameContinues(p.pos+1))) {
		p.pos++
	}
	name := p.src[start:p.pos]

	switch name {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	case "inf":
		return math.Inf(1), nil
	case "nan":
		return math.NaN(), nil
	}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		return p.parseCall(name, start)
	}
	p.pos = start
	return nil, p.errorf("unexpected name %q", name)
}

// --------------------------------------------------------------------------
// Collections
// --------------------------------------------------------------------------

func (p *parser) parseList() (any, error) {
	items, err := p.parseItems('[', ']')
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) parseTuple() (any, error) {
	p.pos++ // (
	p.skipSpace()
	if p.consume(')') {
		return Tuple{}, nil
	}

	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.consume(')') {
		// parenthesized expression, no tuple
		return first, nil
	}
	if !p.consume(',') {
		return nil, p.errorf("expected ',' or ')'")
	}

	items := Tuple{first}
	for {
		p.skipSpace()
		if p.consume(')') {
			return items, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.consume(')') {
			return items, nil
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or ')'")
		}
	}
}

// parseItems parses a comma separated sequence enclosed in open and close
func (p *parser) parseItems(open, close byte) ([]any, error) {
	if !p.consume(open) {
		return nil, p.errorf("expected %q", open)
	}
	items := []any{}
	for {
		p.skipSpace()
		if p.consume(close) {
			return items, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.consume(close) {
			return items, nil
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or %q", close)
		}
	}
}

func (p *parser) parseDict() (any, error) {
	p.pos++ // {
	keys := []any{}
	values := []any{}
	allStrings := true

	for {
		p.skipSpace()
		if p.consume('}') {
			break
		}

		keyPos := p.pos
		k, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if !hashable(k) {
			p.pos = keyPos
			return nil, p.errorf("unhashable dict key of type %T", k)
		}
		if _, ok := k.(string); !ok {
			allStrings = false
		}

		p.skipSpace()
		if !p.consume(':') {
			return nil, p.errorf("expected ':'")
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		values = append(values, v)

		p.skipSpace()
		if p.consume('}') {
			break
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or '}'")
		}
	}

	if allStrings {
		m := make(map[string]any, len(keys))
		for i, k := range keys {
			m[k.(string)] = values[i]
		}
		return m, nil
	}
	m := make(map[any]any, len(keys))
	for i, k := range keys {
		m[k] = values[i]
	}
	return m, nil
}

// parseCall parses `Name({...})` for a registered type name
func (p *parser) parseCall(name string, start int) (any, error) {
	ctor, ok := p.registry.Lookup(name)
	if !ok {
		return nil, &UnknownTypeError{TypeName: name}
	}
	p.pos++ // (

	fields := map[string]any{}
	p.skipSpace()
	if !p.consume(')') {
		argPos := p.pos
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			p.pos = argPos
			return nil, p.errorf("expected a field mapping with string keys for %s", name)
		}
		fields = m
		p.skipSpace()
		if !p.consume(')') {
			return nil, p.errorf("expected ')'")
		}
	}

	obj, err := ctor(fields)
	if err != nil {
		p.pos = start
		return nil, p.errorf("can not construct %s: %v", name, err)
	}
	return obj, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) nameContinues(pos int) bool {
	if pos >= len(p.src) {
		return false
	}
	c := p.src[pos]
	return isNameStart(c) || isDigit(c)
}

func (p *parser) errorf(format string, args ...any) error {
	return &MalformedLiteralError{
		Literal: p.src,
		Pos:     p.pos,
		Reason:  fmt.Sprintf(format, args...),
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// hashable reports whether a decoded value can be used as a map key
func hashable(v any) bool {
	switch v.(type) {
	case nil, string, int64, uint64, float64, bool:
		return true
	default:
		return false
	}
}
