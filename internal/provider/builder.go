package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sergiomvj/faceblog/internal/model"
)

// BuilderClient asks the site-builder service to scaffold themed blog content
// and returns the produced archive.
type BuilderClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewBuilderClient(baseURL string, logger zerolog.Logger) *BuilderClient {
	return &BuilderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Scaffolding renders a full themed site; allow more headroom than
		// the other collaborator calls.
		client: &http.Client{Timeout: 2 * time.Minute},
		logger: logger.With().Str("component", "builder-client").Logger(),
	}
}

func (c *BuilderClient) Scaffold(ctx context.Context, spec model.BlogSpec) (*SiteArtifact, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal scaffold request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/scaffold", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create scaffold request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scaffold %s: %w", spec.Subdomain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("scaffold %s: HTTP %d", spec.Subdomain, resp.StatusCode)
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read scaffold archive: %w", err)
	}

	c.logger.Info().Str("subdomain", spec.Subdomain).Int("bytes", len(archive)).Msg("scaffolded site content")
	return &SiteArtifact{Name: spec.Subdomain + ".tar.gz", Archive: archive}, nil
}
