package util

import (
	"strings"
	"unicode"
)

// PascalCase drops every rune that is not a letter or digit and upper-cases
// the first rune of each remaining word.
func PascalCase(s string) string {
	var builder strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			builder.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}
