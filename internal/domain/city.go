package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCity returns the canonical form of a free-text city name.
//
// Whitespace is collapsed, every comma is followed by exactly one space and
// words are title-cased. Two-letter parts after the first comma are treated
// as region codes and upper-cased ("brandon,mb" -> "Brandon, MB").
// The result is used as cache and lookup key, so every component must go
// through this function before comparing or storing a city.
func NormalizeCity(s string) string {
	parts := strings.Split(s, ",")
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return ""
	}

	// cases.Caser keeps state between calls and must not be shared.
	caser := cases.Title(language.Und)
	for i, p := range clean {
		p = caser.String(p)
		if i > 0 && len(p) == 2 {
			p = strings.ToUpper(p)
		}
		clean[i] = p
	}

	return strings.Join(clean, ", ")
}

// SameCity reports whether a and b refer to the same canonical city.
func SameCity(a, b string) bool {
	na := NormalizeCity(a)
	return na != "" && na == NormalizeCity(b)
}
