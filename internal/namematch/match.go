package namematch

import "strings"

// Method identifies which rule of the match ladder accepted (or rejected)
// a pair of names.
type Method string

const (
	MethodExact              Method = "exact"
	MethodFuzzyFull          Method = "fuzzy-full"
	MethodFirstNameOnly      Method = "first-name-only"
	MethodFirstExactLastFuzz Method = "first-exact-last-fuzzy"
	MethodLastExactFirstFuzz Method = "last-exact-first-fuzzy"
	MethodContains           Method = "contains"
	MethodAbbreviation       Method = "abbreviation"
	MethodInitials           Method = "initials"
	MethodInitialsLastname   Method = "initials-lastname"
	MethodNoValidation       Method = "no-validation"
	MethodNone               Method = "none"
)

// DefaultThreshold is the whole-string similarity bar for a fuzzy-full
// match. Name-based discovery tiers apply their own, slightly lower
// acceptance bar on the resulting score.
const DefaultThreshold = 0.75

const (
	lastTokenSimMin  = 0.6
	containsRatioMin = 0.3
	initialsLastSim  = 0.7
	minFirstTokenLen = 3
)

// MatchResult is the outcome of comparing two names. Never persisted;
// always recomputed.
type MatchResult struct {
	Matches bool
	Score   float64
	Method  Method
}

// MatchNames compares two person names with the default threshold.
func MatchNames(input, candidate string) MatchResult {
	return MatchNamesThreshold(input, candidate, DefaultThreshold)
}

// MatchNamesThreshold runs the match ladder. Rules are ordered so the
// specific, cheap checks fire before the broader heuristics; the first rule
// that fires wins. Ambiguous short inputs would otherwise be mis-scored by
// the weaker containment and initials rules.
func MatchNamesThreshold(input, candidate string, threshold float64) MatchResult {
	a := Normalize(input)
	b := Normalize(candidate)

	if a == "" || b == "" {
		return MatchResult{Matches: false, Score: 0, Method: MethodNone}
	}

	// Rule 2: exact after normalization.
	if a == b {
		return MatchResult{Matches: true, Score: 1.0, Method: MethodExact}
	}

	// Rule 3: whole-string similarity.
	fullSim := Similarity(a, b)
	if fullSim >= threshold {
		return MatchResult{Matches: true, Score: fullSim, Method: MethodFuzzyFull}
	}

	ta := strings.Fields(a)
	tb := strings.Fields(b)
	firstA, lastA := ta[0], ta[len(ta)-1]
	firstB, lastB := tb[0], tb[len(tb)-1]

	// Rule 4: identical first names.
	if firstA == firstB && len(firstA) >= minFirstTokenLen {
		if len(ta) == 1 {
			// Only a first name was given; accept on that alone.
			return MatchResult{Matches: true, Score: 0.85, Method: MethodFirstNameOnly}
		}
		if lastSim := Similarity(lastA, lastB); lastSim >= lastTokenSimMin {
			return MatchResult{Matches: true, Score: (1 + lastSim) / 2, Method: MethodFirstExactLastFuzz}
		}
	}

	// Rule 5: identical last names, similar first names.
	if lastA == lastB && len(lastA) >= minFirstTokenLen {
		if firstSim := Similarity(firstA, firstB); firstSim >= lastTokenSimMin {
			return MatchResult{Matches: true, Score: (1 + firstSim) / 2, Method: MethodLastExactFirstFuzz}
		}
	}

	// Rule 6: substring containment in either direction.
	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		ratio := float64(shorter) / float64(longer)
		if ratio >= containsRatioMin {
			return MatchResult{Matches: true, Score: 0.7 + 0.3*ratio, Method: MethodContains}
		}
	}

	// Rule 7: abbreviated surname, e.g. "MARIA S" vs "MARIA SILVA".
	if firstA == firstB && lastA != lastB {
		short, long := lastA, lastB
		if len(short) > len(long) {
			short, long = long, short
		}
		if len(short) <= 2 && strings.HasPrefix(long, short) {
			return MatchResult{Matches: true, Score: 0.8, Method: MethodAbbreviation}
		}
	}

	// Rule 8: bare initials, e.g. "JS" vs "JOAO SILVA".
	if matchesInitials(a, tb) || matchesInitials(b, ta) {
		return MatchResult{Matches: true, Score: 0.85, Method: MethodInitials}
	}

	// Rule 9: initials plus last name, e.g. "JC SILVA" vs "JOAO CARLOS SILVA".
	if matchesInitialsLastname(ta, tb) || matchesInitialsLastname(tb, ta) {
		return MatchResult{Matches: true, Score: 0.9, Method: MethodInitialsLastname}
	}

	return MatchResult{Matches: false, Score: fullSim, Method: MethodNone}
}

// matchesInitials reports whether compact is a 2-3 letter string equal to
// the concatenated first letters of the candidate tokens.
func matchesInitials(compact string, tokens []string) bool {
	if strings.ContainsRune(compact, ' ') {
		return false
	}
	if len(compact) < 2 || len(compact) > 3 || len(tokens) != len(compact) {
		return false
	}
	for i, token := range tokens {
		if token[0] != compact[i] {
			return false
		}
	}
	return true
}

// matchesInitialsLastname reports whether a's first token spells the
// initials of b's leading tokens and the last tokens are similar enough.
func matchesInitialsLastname(ta, tb []string) bool {
	if len(ta) < 2 {
		return false
	}
	initials := ta[0]
	if len(initials) < 2 || len(initials) > 3 {
		return false
	}
	if len(tb) < len(initials)+1 {
		return false
	}
	for i := 0; i < len(initials); i++ {
		if tb[i][0] != initials[i] {
			return false
		}
	}
	return Similarity(ta[len(ta)-1], tb[len(tb)-1]) >= initialsLastSim
}

// BestMatch is a scored candidate returned by FindBestMatch.
type BestMatch struct {
	Candidate string
	Result    MatchResult
}

// FindBestMatch runs the ladder against every candidate and returns the
// highest-scoring accepted one, or ok=false when none is accepted.
func FindBestMatch(input string, candidates []string) (BestMatch, bool) {
	var best BestMatch
	found := false
	for _, candidate := range candidates {
		result := MatchNames(input, candidate)
		if !result.Matches {
			continue
		}
		if !found || result.Score > best.Result.Score {
			best = BestMatch{Candidate: candidate, Result: result}
			found = true
		}
	}
	return best, found
}
