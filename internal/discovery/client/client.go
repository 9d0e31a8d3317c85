// Package client provides HTTP clients for the upstream identity lookup
// providers. Each client translates its provider's response shape and
// error codes into the shared taxonomy at this boundary: a definitive miss
// becomes KindNotFound, connectivity failure KindUnavailable, and nothing
// transport-specific leaks upward.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"enrichment_backend/platform/apperr"
)

// Person is a raw provider hit: the tax ID and the registered name.
type Person struct {
	CPF  string `json:"cpf"`
	Name string `json:"name"`
}

// classifyStatus maps a non-2xx provider status onto the error taxonomy.
func classifyStatus(provider string, status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperr.NotFound("no record").WithOp(provider)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Credential("credentials rejected").WithOp(provider)
	case status == http.StatusTooManyRequests:
		return apperr.RateLimited("rate limited").WithOp(provider)
	case status >= 500:
		return apperr.Unavailable(fmt.Sprintf("upstream returned %d", status)).WithOp(provider)
	default:
		return apperr.Unrecoverable(fmt.Sprintf("unexpected status %d", status)).WithOp(provider)
	}
}

// doJSON performs the request and decodes a 2xx body into out. Transport
// failures classify as unavailable unless the context itself expired.
func doJSON(httpClient *http.Client, provider string, req *http.Request, out interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return apperr.Wrap(apperr.KindUnavailable, "request failed", err).WithOp(provider)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return classifyStatus(provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindUnrecoverable, "undecodable response", err).WithOp(provider)
	}
	return nil
}

func getJSON(ctx context.Context, httpClient *http.Client, provider, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindUnrecoverable, "building request", err).WithOp(provider)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(httpClient, provider, req, out)
}

func postJSON(ctx context.Context, httpClient *http.Client, provider, url string, headers map[string]string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindUnrecoverable, "encoding request", err).WithOp(provider)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return apperr.Wrap(apperr.KindUnrecoverable, "building request", err).WithOp(provider)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(httpClient, provider, req, out)
}
