package enrichment

import (
	"strings"

	"enrichment_backend/internal/discovery"
	disccli "enrichment_backend/internal/discovery/client"
	"enrichment_backend/internal/enrichment/client"
	"enrichment_backend/internal/namematch"
)

// Quality grades how much an enrichment actually told us about the person.
// The score is deterministic over the outcome fields so re-running the same
// enrichment yields the same grade.
type Quality struct {
	Score   int      `json:"score"`
	Tier    string   `json:"tier"`
	Signals []string `json:"signals,omitempty"`
}

const (
	tierAMin = 70
	tierBMin = 50
	tierCMin = 30

	confidentIdentityPoints = 10
	addressPoints           = 12
	occupationPoints        = 6
	emailPoints             = 4
	phonePoints             = 4
	companyPoints           = 6
	companyPointsCap        = 18
	rareSurnamePoints       = 12

	incomeHighPoints = 30
	incomeMidPoints  = 22
	incomeLowPoints  = 14
	incomeAnyPoints  = 6

	incomeHighBar = 20000
	incomeMidBar  = 10000
	incomeLowBar  = 5000
)

// rareSurnames holds family names that by themselves raise the commercial
// interest of a profile. Checked against the normalized last token of the
// resolved display name.
var rareSurnames = map[string]bool{
	"SETUBAL":  true,
	"SAFRA":    true,
	"LEMANN":   true,
	"TELLES":   true,
	"SICUPIRA": true,
	"TRAJANO":  true,
	"DINIZ":    true,
	"ERMIRIO":  true,
	"SALLES":   true,
	"VILLELA":  true,
	"MARINHO":  true,
	"FEFFER":   true,
	"KLABIN":   true,
	"LAFER":    true,
	"GERDAU":   true,
}

// ScoreOutcome grades a finished enrichment. It tolerates a nil profile and
// an empty company list; a resolution alone still earns a grade.
func ScoreOutcome(resolution *discovery.Result, profile *client.PersonProfile, companies []disccli.CompanyAffiliation) Quality {
	var score int
	var signals []string

	if resolution != nil && resolution.NameMatches {
		score += confidentIdentityPoints
		signals = append(signals, "confident-identity")
	}

	if resolution != nil && hasRareSurname(resolution.Identity.DisplayName) {
		score += rareSurnamePoints
		signals = append(signals, "rare-surname")
	}

	if profile != nil {
		if pts := incomePoints(profile.MonthlyIncome); pts > 0 {
			score += pts
			signals = append(signals, "income")
		}
		if len(profile.Addresses) > 0 {
			score += addressPoints
			signals = append(signals, "address")
		}
		if profile.Occupation != "" {
			score += occupationPoints
			signals = append(signals, "occupation")
		}
		if len(profile.Emails) > 0 {
			score += emailPoints
			signals = append(signals, "emails")
		}
		if len(profile.Phones) > 0 {
			score += phonePoints
			signals = append(signals, "phones")
		}
	}

	if len(companies) > 0 {
		pts := len(companies) * companyPoints
		if pts > companyPointsCap {
			pts = companyPointsCap
		}
		score += pts
		signals = append(signals, "company-affiliations")
	}

	return Quality{Score: score, Tier: tierFor(score), Signals: signals}
}

func incomePoints(income float64) int {
	switch {
	case income >= incomeHighBar:
		return incomeHighPoints
	case income >= incomeMidBar:
		return incomeMidPoints
	case income >= incomeLowBar:
		return incomeLowPoints
	case income > 0:
		return incomeAnyPoints
	default:
		return 0
	}
}

func tierFor(score int) string {
	switch {
	case score >= tierAMin:
		return "A"
	case score >= tierBMin:
		return "B"
	case score >= tierCMin:
		return "C"
	default:
		return "D"
	}
}

func hasRareSurname(displayName string) bool {
	tokens := strings.Fields(namematch.Normalize(displayName))
	if len(tokens) < 2 {
		return false
	}
	return rareSurnames[tokens[len(tokens)-1]]
}
