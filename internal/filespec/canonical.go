package filespec

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// stripAccents removes combining marks after NFD decomposition, so that
// "Été" becomes "Ete".
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Canonicalize normalizes a raw column label: accents stripped, lowercased,
// runs of non-alphanumerics collapsed to one space, trimmed, interior spaces
// replaced by underscores. Applying it twice yields the same result as once.
func Canonicalize(h string) string {
	s := strings.ToLower(stripAccents(h))
	s = nonAlnum.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "_")
}

// monthNames maps canonical French month names to 1..12.
var monthNames = map[string]int{
	"janvier": 1, "fevrier": 2, "mars": 3, "avril": 4,
	"mai": 5, "juin": 6, "juillet": 7, "aout": 8,
	"septembre": 9, "octobre": 10, "novembre": 11, "decembre": 12,
}

var monthOrder = []string{
	"janvier", "fevrier", "mars", "avril", "mai", "juin",
	"juillet", "aout", "septembre", "octobre", "novembre", "decembre",
}

// MonthNumber resolves a French month name (accent- and case-insensitive)
// to 1..12. Unknown names fail before any warehouse work happens.
func MonthNumber(name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(stripAccents(name)))
	m, ok := monthNames[key]
	if !ok {
		return 0, fmt.Errorf("mois invalide: %q (attendu: janvier, fevrier, ...)", name)
	}
	return m, nil
}

// MonthKey returns the canonical (unaccented, lowercase) form of a month
// name, or an error for unknown names.
func MonthKey(name string) (string, error) {
	m, err := MonthNumber(name)
	if err != nil {
		return "", err
	}
	return monthOrder[m-1], nil
}

// MonthName returns the canonical French name for a month number 1..12.
func MonthName(m int) (string, error) {
	if m < 1 || m > 12 {
		return "", fmt.Errorf("mois invalide: %d", m)
	}
	return monthOrder[m-1], nil
}
