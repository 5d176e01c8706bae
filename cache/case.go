package cache

import (
	"strings"
	"unicode"
)

// toSnake folds a parameter or kind name to lower snake_case so that
// "pageSize", "PageSize", "page-size" and "page_size" name the same thing.
// Punctuation collapses into a single underscore: ':' '*' and '&' must never
// reach a key segment, they would break prefix invalidation and the canonical
// parameter encoding.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	pendingSep := false
	sep := func() {
		if b.Len() > 0 {
			pendingSep = true
		}
	}
	emit := func(r rune) {
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			emit(unicode.ToLower(r))
		case unicode.IsLower(r), unicode.IsDigit(r):
			emit(r)
		default:
			sep()
		}
	}

	return b.String()
}
