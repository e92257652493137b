// Package transcript normalizes recognized speech before grading submission.
package transcript

import (
	"strings"
	"unicode"
)

// Clean collapses whitespace runs and trims the transcript edges.
func Clean(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}

// CapitalizeFirst upper-cases the first letter and leaves the rest untouched.
// Graded answers must otherwise reach the backend exactly as spoken.
func CapitalizeFirst(text string) string {
	runes := []rune(text)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	return string(runes)
}

// Normalize applies the submission normalization rule to a raw transcript.
func Normalize(raw string) string {
	return CapitalizeFirst(Clean(raw))
}

// Join merges finalized recognition segments into one transcript.
func Join(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return Clean(strings.Join(segments, " "))
}
