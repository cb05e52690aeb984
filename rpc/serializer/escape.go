package serializer

import "strings"

// reserved lists every character that must not appear literally in a query value
// together with its percent code (upper case hex of the code point).
var reserved = []string{
	`"`, "%22",
	`'`, "%27",
	" ", "%20",
	"[", "%5B",
	"]", "%5D",
	",", "%2C",
	"=", "%3D",
	"+", "%2B",
	":", "%3A",
	";", "%3B",
	"@", "%40",
	"$", "%24",
	"{", "%7B",
	"}", "%7D",
}

var (
	escaper   = strings.NewReplacer(reserved...)
	unescaper = strings.NewReplacer(reversePairs(reserved)...)
)

// Escape replaces every reserved character in text with its percent code.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Unescape reverses Escape.
// Text that already contained one of the percent codes before escaping is not
// restored verbatim, the code is turned into its character as well.
func Unescape(text string) string {
	return unescaper.Replace(text)
}

func reversePairs(pairs []string) []string {
	out := make([]string, len(pairs))
	for i := 0; i < len(pairs); i += 2 {
		out[i], out[i+1] = pairs[i+1], pairs[i]
	}
	return out
}
