// Package namematch computes similarity and match decisions between two
// person names. It is a pure function library with no dependencies on the
// rest of the pipeline; discovery uses it as the correctness gate before
// accepting a candidate identity.
package namematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// abbreviations expands common Brazilian given-name and honorific
// abbreviations. Keys are matched against whole tokens after uppercasing.
var abbreviations = map[string]string{
	"M.":    "MARIA",
	"MA.":   "MARIA",
	"FCO.":  "FRANCISCO",
	"FCA.":  "FRANCISCA",
	"ANT.":  "ANTONIO",
	"J.":    "JOSE",
	"JR.":   "JUNIOR",
	"PROF.": "",
	"DR.":   "",
	"DRA.":  "",
	"SR.":   "",
	"SRA.":  "",
}

// generational suffixes carry no identity signal and differ between
// registries for the same person.
var suffixes = map[string]bool{
	"JUNIOR": true,
	"FILHO":  true,
	"NETO":   true,
	"JR":     true,
	"II":     true,
	"III":    true,
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a person name: uppercase, diacritics stripped,
// abbreviations expanded, generational suffixes removed, whitespace
// collapsed. Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return ""
	}

	if stripped, _, err := transform.String(deaccent, upper); err == nil {
		upper = stripped
	}

	tokens := strings.Fields(upper)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if expanded, ok := abbreviations[token]; ok {
			token = expanded
		} else {
			token = strings.TrimRight(token, ".")
		}
		if token == "" || suffixes[token] {
			continue
		}
		out = append(out, token)
	}

	return strings.Join(out, " ")
}
