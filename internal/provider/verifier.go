package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// VerifierClient requests domain/SSL verification. Hosted subdomains verify
// inline; custom domains resolve later through the domain-verification
// callback.
type VerifierClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewVerifierClient(baseURL string, logger zerolog.Logger) *VerifierClient {
	return &VerifierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "verifier-client").Logger(),
	}
}

type verifyRequest struct {
	Domain      string `json:"domain"`
	Hosted      bool   `json:"hosted"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

func (c *VerifierClient) RequestVerification(ctx context.Context, domain string, hosted bool, callbackURL string) (bool, error) {
	body, err := json.Marshal(verifyRequest{Domain: domain, Hosted: hosted, CallbackURL: callbackURL})
	if err != nil {
		return false, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/verifications", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("verify %s: HTTP %d", domain, resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}

	c.logger.Info().Str("domain", domain).Bool("verified", vr.Verified).Msg("verification requested")
	return vr.Verified, nil
}
