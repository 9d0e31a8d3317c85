package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"enrichment_backend/internal/namematch"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/logger"
)

const (
	meiliHTTPTimeout  = 15 * time.Second
	meiliPeopleIndex  = "people"
	meiliCompanyIndex = "companies"
	meiliNameHitLimit = 10
	meiliCompanyLimit = 20
)

// Meili searches the person and company indexes. The person index is the
// name-based tier: lower confidence because it searches rather than keys on
// an exact contact. The company index carries partner CPFs (socios) used as
// a quality signal during enrichment.
type Meili struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewMeili creates a Meilisearch client.
func NewMeili(baseURL, apiKey string, log *logger.Logger) *Meili {
	return &Meili{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: meiliHTTPTimeout},
		log:        log,
	}
}

type meiliSearchRequest struct {
	Q                  string   `json:"q"`
	Limit              int      `json:"limit"`
	AttributesToSearch []string `json:"attributesToSearchOn,omitempty"`
}

type meiliPersonHit struct {
	CPF  string `json:"cpf"`
	Nome string `json:"nome"`
}

type meiliPersonResponse struct {
	Hits []meiliPersonHit `json:"hits"`
}

// CompanyAffiliation is one company a person appears in as a partner.
type CompanyAffiliation struct {
	CNPJ        string `json:"cnpj"`
	RazaoSocial string `json:"razao_social"`
}

type meiliCompanyResponse struct {
	Hits []CompanyAffiliation `json:"hits"`
}

func (c *Meili) headers() map[string]string {
	h := map[string]string{}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

// ByName searches the person index and returns the hit whose name best
// matches the query, per the match ladder. Hits that fail the ladder
// entirely are not returned.
func (c *Meili) ByName(ctx context.Context, name string) (Person, error) {
	endpoint := fmt.Sprintf("%s/indexes/%s/search", c.baseURL, meiliPeopleIndex)
	payload := meiliSearchRequest{Q: name, Limit: meiliNameHitLimit}

	var resp meiliPersonResponse
	if err := postJSON(ctx, c.httpClient, "meili", endpoint, c.headers(), payload, &resp); err != nil {
		return Person{}, err
	}
	if len(resp.Hits) == 0 {
		return Person{}, apperr.NotFound("no hits").WithOp("meili")
	}

	names := make([]string, len(resp.Hits))
	for i, hit := range resp.Hits {
		names[i] = hit.Nome
	}
	best, ok := namematch.FindBestMatch(name, names)
	if !ok {
		return Person{}, apperr.NotFound("no hit matched the name").WithOp("meili")
	}

	for _, hit := range resp.Hits {
		if hit.Nome == best.Candidate {
			return Person{CPF: hit.CPF, Name: hit.Nome}, nil
		}
	}
	return Person{}, apperr.NotFound("no hit matched the name").WithOp("meili")
}

// CompaniesByPartnerCPF returns companies where the CPF appears among the
// partners (socios_cpfs attribute).
func (c *Meili) CompaniesByPartnerCPF(ctx context.Context, cpf string) ([]CompanyAffiliation, error) {
	endpoint := fmt.Sprintf("%s/indexes/%s/search", c.baseURL, meiliCompanyIndex)
	payload := meiliSearchRequest{
		Q:                  cpf,
		Limit:              meiliCompanyLimit,
		AttributesToSearch: []string{"socios_cpfs"},
	}

	var resp meiliCompanyResponse
	if err := postJSON(ctx, c.httpClient, "meili", endpoint, c.headers(), payload, &resp); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}
