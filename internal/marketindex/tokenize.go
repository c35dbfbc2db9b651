package marketindex

import "strings"

// tokenize lowercases and splits on anything that isn't a letter or
// digit, discarding empty tokens.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}
