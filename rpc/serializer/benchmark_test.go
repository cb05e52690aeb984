package serializer

import (
	"strings"
	"testing"
)

// benchmarkValues returns a set of values for targeted benchmarking
func benchmarkValues() map[string]any {
	return map[string]any{
		"SmallString":  "v",
		"MediumString": "medium length value for testing serialization",
		"LargeString":  strings.Repeat("x", 1024),
		"Int":          int64(1234567890),
		"Float":        3.14159,
		"List":         []any{int64(1), "two", 3.0, true, nil},
		"Dict": map[string]any{
			"name": "complete-test-key",
			"tags": []any{"a", "b", "c"},
			"meta": map[string]any{"created": int64(1700000000), "ok": true},
		},
		"LargeBytes": make([]byte, 1024*16),
		"Structured": user{
			Name:  "ann",
			Age:   30,
			Tags:  []string{"a", "b"},
			Home:  &point{X: 1, Y: 2},
			Extra: map[string]int{"visits": 3},
		},
	}
}

func BenchmarkEncode(b *testing.B) {
	r := NewRegistry()
	_ = Register[point](r, "Point")
	_ = Register[user](r, "User")
	s := NewLiteralSerializer(r)

	for name, value := range benchmarkValues() {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := s.Encode(value); err != nil {
					b.Fatalf("Failed to encode: %v", err)
				}
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	r := NewRegistry()
	_ = Register[point](r, "Point")
	_ = Register[user](r, "User")
	s := NewLiteralSerializer(r)

	for name, value := range benchmarkValues() {
		text, err := s.Encode(value)
		if err != nil {
			b.Fatalf("Failed to encode %s: %v", name, err)
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, err := s.Decode(text); err != nil {
					b.Fatalf("Failed to decode: %v", err)
				}
			}
		})
	}
}

func BenchmarkEscape(b *testing.B) {
	text := `{'name': 'complete test key', "tags": ['a', 'b'], 'n': 1+2}`
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Unescape(Escape(text))
	}
}
