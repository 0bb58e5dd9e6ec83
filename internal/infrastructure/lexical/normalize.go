package lexical

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var bracketReplacer = strings.NewReplacer(
	"　", " ",
	"［", "[",
	"］", "]",
	"【", "[",
	"】", "]",
	"〔", "(",
	"〕", ")",
)

// NormalizeKey builds the lookup key for exact-name and alias indices:
// width-folded, lowercased, parentheses unified, whitespace trimmed and collapsed.
func NormalizeKey(s string) string {
	s = fold(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	var last rune
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 && !isBracket(r) && last != '(' && last != '[' {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

func isBracket(r rune) bool {
	return r == '(' || r == ')' || r == '[' || r == ']'
}

// NormalizeSearch prepares free text for substring search. Internal
// whitespace is preserved.
func NormalizeSearch(s string) string {
	return strings.TrimSpace(fold(s))
}

func fold(s string) string {
	s = width.Fold.String(s)
	s = bracketReplacer.Replace(s)
	return strings.ToLower(s)
}
