package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DirectoryClient queries the SaaS tenant store for subdomain ownership.
type DirectoryClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewDirectoryClient(baseURL string, logger zerolog.Logger) *DirectoryClient {
	return &DirectoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "directory-client").Logger(),
	}
}

func (c *DirectoryClient) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/tenants/by-subdomain/"+subdomain, nil)
	if err != nil {
		return false, fmt.Errorf("create directory request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("lookup subdomain %s: %w", subdomain, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("lookup subdomain %s: HTTP %d", subdomain, resp.StatusCode)
	}
}

// OpenDirectory is used when no tenant store is configured; every subdomain
// not reserved by a job is considered free.
type OpenDirectory struct{}

func (OpenDirectory) SubdomainTaken(context.Context, string) (bool, error) {
	return false, nil
}
