package temporal

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// normalize returns the canonical matching form of a phrase: NFC, lower-case,
// trimmed, with internal whitespace collapsed to single spaces. The input is
// never modified.
func normalize(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_'
}

// wordIndex returns the byte offset of the first occurrence of phrase in text
// that sits on word boundaries, or -1. Boundaries are Unicode-aware, so
// "thứ 2" does not match inside "thứ 20" and "thứ tư" matches at the end of a
// string.
func wordIndex(text, phrase string) int {
	if phrase == "" {
		return -1
	}
	from := 0
	for from <= len(text)-len(phrase) {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return start
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return -1
}

func containsWord(text, phrase string) bool {
	return wordIndex(text, phrase) >= 0
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// removeWord deletes the first whole-word occurrence of phrase and re-collapses
// whitespace.
func removeWord(text, phrase string) string {
	i := wordIndex(text, phrase)
	if i < 0 {
		return text
	}
	return strings.Join(strings.Fields(text[:i]+" "+text[i+len(phrase):]), " ")
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if isWordRune(r) {
			return true
		}
	}
	return false
}

// Normalize exposes the matching form used by the resolver so other
// keyword tables can share it.
func Normalize(s string) string {
	return normalize(s)
}

// ContainsWord reports whether phrase occurs in text on Unicode word
// boundaries. Both arguments should already be normalized.
func ContainsWord(text, phrase string) bool {
	return containsWord(text, phrase)
}
