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

const directdHTTPTimeout = 30 * time.Second

// Directd is the secondary paid phone lookup provider.
type Directd struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewDirectd creates a Directd client.
func NewDirectd(baseURL, apiKey string, log *logger.Logger) *Directd {
	return &Directd{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: directdHTTPTimeout},
		log:        log,
	}
}

type directdResponse struct {
	Retorno struct {
		CPF  string `json:"cpf"`
		Nome string `json:"nome"`
	} `json:"retorno"`
}

// ByPhone looks up the person registered to a phone number.
func (c *Directd) ByPhone(ctx context.Context, phoneDigits string) (Person, error) {
	endpoint := fmt.Sprintf("%s/api/v1/pessoa/telefone?telefone=%s&token=%s",
		c.baseURL, url.QueryEscape(phoneDigits), url.QueryEscape(c.apiKey))

	var payload directdResponse
	if err := getJSON(ctx, c.httpClient, "directd", endpoint, nil, &payload); err != nil {
		return Person{}, err
	}

	if payload.Retorno.CPF == "" {
		return Person{}, apperr.NotFound("empty result").WithOp("directd")
	}

	return Person{CPF: payload.Retorno.CPF, Name: payload.Retorno.Nome}, nil
}
