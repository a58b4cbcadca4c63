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

// DeployClient submits builds to the hosting platform. The platform reports
// the build outcome asynchronously via the deploy-result callback.
type DeployClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

func NewDeployClient(baseURL, token string, logger zerolog.Logger) *DeployClient {
	return &DeployClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "deploy-client").Logger(),
	}
}

func (c *DeployClient) StartDeploy(ctx context.Context, dr DeployRequest) error {
	body, err := json.Marshal(dr)
	if err != nil {
		return fmt.Errorf("marshal deploy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/deploys", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("start deploy %s: %w", dr.ExternalRef, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("start deploy %s: HTTP %d", dr.ExternalRef, resp.StatusCode)
	}

	c.logger.Info().
		Str("external_ref", dr.ExternalRef).
		Str("hostname", dr.Hostname).
		Msg("deploy requested")
	return nil
}
