package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/logger"
)

const deskdataHTTPTimeout = 30 * time.Second

// Deskdata looks people up by exact phone or email.
type Deskdata struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewDeskdata creates a Deskdata client.
func NewDeskdata(baseURL, apiKey string, log *logger.Logger) *Deskdata {
	return &Deskdata{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: deskdataHTTPTimeout},
		log:        log,
	}
}

type deskdataResponse struct {
	CPF  string `json:"cpf"`
	Nome string `json:"nome"`
}

// ByPhone looks up the person registered to a phone number (digits, E.164
// without the plus).
func (c *Deskdata) ByPhone(ctx context.Context, phoneDigits string) (Person, error) {
	endpoint := fmt.Sprintf("%s/v1/pessoa/telefone?telefone=%s", c.baseURL, url.QueryEscape(phoneDigits))
	return c.fetch(ctx, "deskdata", endpoint)
}

// ByEmail looks up the person registered to an email address.
func (c *Deskdata) ByEmail(ctx context.Context, email string) (Person, error) {
	endpoint := fmt.Sprintf("%s/v1/pessoa/email?email=%s", c.baseURL, url.QueryEscape(email))
	return c.fetch(ctx, "deskdata", endpoint)
}

func (c *Deskdata) fetch(ctx context.Context, provider, endpoint string) (Person, error) {
	var payload deskdataResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := getJSON(ctx, c.httpClient, provider, endpoint, headers, &payload); err != nil {
		return Person{}, err
	}

	// Some plans answer 200 with an empty body for a miss.
	if payload.CPF == "" {
		return Person{}, apperr.NotFound("empty result").WithOp(provider)
	}

	return Person{CPF: payload.CPF, Name: payload.Nome}, nil
}
