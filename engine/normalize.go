package engine

import (
	"strings"
	"unicode"
)

// NormalizeGroupCode reduces a raw group code to its canonical comparison
// form: full-width and half-width parentheses and all whitespace (including
// full-width spaces) are removed. Empty input normalizes to "".
//
// The function is idempotent: NormalizeGroupCode(NormalizeGroupCode(x)) ==
// NormalizeGroupCode(x) for every x, so stored normalized codes can be fed
// back through it safely.
func NormalizeGroupCode(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '（', '）':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}
