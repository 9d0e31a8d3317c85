package enrichment

import (
	"reflect"
	"testing"

	disccli "enrichment_backend/internal/discovery/client"
	"enrichment_backend/internal/enrichment/client"
)

func TestScoreOutcomeFullProfile(t *testing.T) {
	resolution := resolvedMaria()
	profile := &client.PersonProfile{
		CPF:           "52998224725",
		Name:          "Maria Silva",
		MonthlyIncome: 25000,
		Occupation:    "Engenheira",
		Addresses:     []client.Address{{City: "Sao Paulo", State: "SP"}},
		Emails:        []string{"maria@example.com"},
		Phones:        []string{"+5511999990000"},
	}
	companies := []disccli.CompanyAffiliation{{CNPJ: "11222333000181", RazaoSocial: "Silva Comercio LTDA"}}

	q := ScoreOutcome(&resolution, profile, companies)
	// 10 identity + 30 income + 12 address + 6 occupation + 4 emails + 4 phones + 6 company.
	if q.Score != 72 {
		t.Fatalf("expected score 72, got %d", q.Score)
	}
	if q.Tier != "A" {
		t.Fatalf("expected tier A, got %s", q.Tier)
	}
}

func TestScoreOutcomeIdentityOnly(t *testing.T) {
	resolution := resolvedMaria()
	q := ScoreOutcome(&resolution, nil, nil)
	if q.Score != confidentIdentityPoints {
		t.Fatalf("expected identity points only, got %d", q.Score)
	}
	if q.Tier != "D" {
		t.Fatalf("expected tier D, got %s", q.Tier)
	}
}

func TestScoreOutcomeUnvalidatedIdentityEarnsNothing(t *testing.T) {
	resolution := resolvedMaria()
	resolution.NameMatches = false

	q := ScoreOutcome(&resolution, nil, nil)
	if q.Score != 0 {
		t.Fatalf("a flagged mismatch must not earn identity points, got %d", q.Score)
	}
}

func TestScoreOutcomeCompanyPointsCapped(t *testing.T) {
	resolution := resolvedMaria()
	companies := make([]disccli.CompanyAffiliation, 10)

	q := ScoreOutcome(&resolution, nil, companies)
	if q.Score != confidentIdentityPoints+companyPointsCap {
		t.Fatalf("expected the company contribution capped, got %d", q.Score)
	}
}

func TestScoreOutcomeRareSurname(t *testing.T) {
	resolution := resolvedMaria()
	resolution.Identity.DisplayName = "Maria Setúbal"

	q := ScoreOutcome(&resolution, nil, nil)
	if q.Score != confidentIdentityPoints+rareSurnamePoints {
		t.Fatalf("expected the rare surname bonus, got %d", q.Score)
	}

	single := resolvedMaria()
	single.Identity.DisplayName = "Setubal"
	if got := ScoreOutcome(&single, nil, nil); got.Score != confidentIdentityPoints {
		t.Fatalf("a single-token name is not a surname signal, got %d", got.Score)
	}
}

func TestIncomeBanding(t *testing.T) {
	cases := []struct {
		income float64
		want   int
	}{
		{0, 0},
		{1200, incomeAnyPoints},
		{5000, incomeLowPoints},
		{10000, incomeMidPoints},
		{20000, incomeHighPoints},
		{100000, incomeHighPoints},
	}
	for _, tc := range cases {
		if got := incomePoints(tc.income); got != tc.want {
			t.Errorf("incomePoints(%.0f) = %d, want %d", tc.income, got, tc.want)
		}
	}
}

func TestScoreOutcomeDeterministic(t *testing.T) {
	resolution := resolvedMaria()
	profile := mariaProfile()
	companies := []disccli.CompanyAffiliation{{CNPJ: "11222333000181"}}

	first := ScoreOutcome(&resolution, profile, companies)
	second := ScoreOutcome(&resolution, profile, companies)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scoring must be deterministic: %+v vs %+v", first, second)
	}
}
