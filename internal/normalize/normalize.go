// Package normalize folds free-text department names and codes into the
// canonical forms used for exact-match lookups.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Apostrophes (straight and typographic) and hyphens become word breaks.
	separators = strings.NewReplacer("'", " ", "’", " ", "-", " ")

	shortCode = regexp.MustCompile(`^\d{1,2}$`)
	validCode = regexp.MustCompile(`^(\d{2}|\d{3}|2A|2B)$`)
)

// Key returns the canonical lookup key for a department name:
// "Côte-d'Or" -> "cote d or".
func Key(s string) string {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return ""
	}
	// A chain holds buffers and is not safe for concurrent use.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, str)
	if err != nil {
		folded = str
	}
	folded = separators.Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// DeptCode returns the canonical department code. One- and two-digit codes
// are zero-padded, "2A"/"2B" and three-digit overseas codes pass through.
// Anything else is returned upper-cased, which never matches a valid code.
func DeptCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if c == "2A" || c == "2B" {
		return c
	}
	if shortCode.MatchString(c) {
		if len(c) == 1 {
			return "0" + c
		}
		return c
	}
	return c
}

// IsDeptCode reports whether c already has the shape of a canonical code.
func IsDeptCode(c string) bool {
	return validCode.MatchString(c)
}
