// Package client provides the HTTP client for the profile enrichment
// provider. Like the discovery clients it classifies failures into the
// shared taxonomy at this boundary; the orchestrator decides what a partial
// profile is worth.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/logger"
)

const (
	profileHTTPTimeout = 60 * time.Second
	profileDatasets    = "basic_data,emails_extended,phones_extended,addresses_extended,occupation_data"
)

// Address is one registered address from the profile provider.
type Address struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

// PersonProfile is the enriched view of a resolved identity. Every field
// beyond CPF and Name is optional; providers return whatever their datasets
// hold.
type PersonProfile struct {
	CPF           string    `json:"cpf"`
	Name          string    `json:"name"`
	BirthDate     string    `json:"birthDate,omitempty"`
	MonthlyIncome float64   `json:"monthlyIncome,omitempty"`
	Occupation    string    `json:"occupation,omitempty"`
	Addresses     []Address `json:"addresses,omitempty"`
	Emails        []string  `json:"emails,omitempty"`
	Phones        []string  `json:"phones,omitempty"`
}

// Profile fetches person profiles by CPF from the paid enrichment provider.
type Profile struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewProfile creates a profile provider client. The outer HTTP timeout is a
// safety net; the orchestrator applies the real deadline through the
// context.
func NewProfile(baseURL, apiKey string, log *logger.Logger) *Profile {
	return &Profile{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: profileHTTPTimeout},
		log:        log,
	}
}

type profileRequest struct {
	Query    string `json:"q"`
	Datasets string `json:"Datasets"`
}

type profileResponse struct {
	Result []struct {
		BasicData struct {
			TaxIDNumber string `json:"TaxIdNumber"`
			Name        string `json:"Name"`
			BirthDate   string `json:"BirthDate"`
		} `json:"BasicData"`
		OccupationData struct {
			Profession string  `json:"Profession"`
			Income     float64 `json:"IncomeEstimate"`
		} `json:"OccupationData"`
		Addresses []struct {
			AddressMain  string `json:"AddressMain"`
			Neighborhood string `json:"Neighborhood"`
			City         string `json:"City"`
			State        string `json:"State"`
			ZipCode      string `json:"ZipCode"`
		} `json:"ExtendedAddresses"`
		Emails []struct {
			EmailAddress string `json:"EmailAddress"`
		} `json:"ExtendedEmails"`
		Phones []struct {
			Number string `json:"Number"`
		} `json:"ExtendedPhones"`
	} `json:"Result"`
}

// FetchProfile retrieves the profile for a canonical CPF. A provider answer
// with no result rows is a definitive miss.
func (c *Profile) FetchProfile(ctx context.Context, cpf string) (*PersonProfile, error) {
	endpoint := c.baseURL + "/pessoas"
	payload := profileRequest{
		Query:    fmt.Sprintf("doc{%s}", cpf),
		Datasets: profileDatasets,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnrecoverable, "encoding request", err).WithOp("profile")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnrecoverable, "building request", err).WithOp("profile")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("AccessToken", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "request failed", err).WithOp("profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, classifyStatus(resp.StatusCode)
	}

	var decoded profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperr.Wrap(apperr.KindUnrecoverable, "undecodable response", err).WithOp("profile")
	}
	if len(decoded.Result) == 0 {
		return nil, apperr.NotFound("no profile for document").WithOp("profile")
	}

	return mapProfile(cpf, decoded), nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperr.NotFound("no profile for document").WithOp("profile")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Credential("credentials rejected").WithOp("profile")
	case status == http.StatusTooManyRequests:
		return apperr.RateLimited("rate limited").WithOp("profile")
	case status >= 500:
		return apperr.Unavailable(fmt.Sprintf("upstream returned %d", status)).WithOp("profile")
	default:
		return apperr.Unrecoverable(fmt.Sprintf("unexpected status %d", status)).WithOp("profile")
	}
}

func mapProfile(cpf string, decoded profileResponse) *PersonProfile {
	row := decoded.Result[0]
	profile := &PersonProfile{
		CPF:           cpf,
		Name:          row.BasicData.Name,
		BirthDate:     row.BasicData.BirthDate,
		MonthlyIncome: row.OccupationData.Income,
		Occupation:    row.OccupationData.Profession,
	}
	for _, a := range row.Addresses {
		profile.Addresses = append(profile.Addresses, Address{
			Street:       a.AddressMain,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			State:        a.State,
			ZipCode:      a.ZipCode,
		})
	}
	for _, e := range row.Emails {
		if e.EmailAddress != "" {
			profile.Emails = append(profile.Emails, e.EmailAddress)
		}
	}
	for _, p := range row.Phones {
		if p.Number != "" {
			profile.Phones = append(profile.Phones, p.Number)
		}
	}
	return profile
}
