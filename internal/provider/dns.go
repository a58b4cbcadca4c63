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
)

// DNSClient talks to the platform's DNS API.
type DNSClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

func NewDNSClient(baseURL, token string, logger zerolog.Logger) *DNSClient {
	return &DNSClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "dns-client").Logger(),
	}
}

func (c *DNSClient) Available(ctx context.Context, hostname string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/records/"+hostname, nil)
	if err != nil {
		return false, fmt.Errorf("create availability request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", hostname, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return true, nil
	case http.StatusOK:
		return false, nil
	default:
		return false, fmt.Errorf("check %s: HTTP %d", hostname, resp.StatusCode)
	}
}

func (c *DNSClient) Register(ctx context.Context, hostname string) error {
	body, err := json.Marshal(map[string]string{"hostname": hostname, "type": "CNAME"})
	if err != nil {
		return fmt.Errorf("marshal register request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/records", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("register %s: %w", hostname, err)
	}
	defer drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Info().Str("hostname", hostname).Msg("registered DNS record")
		return nil
	}
	return fmt.Errorf("register %s: HTTP %d", hostname, resp.StatusCode)
}

func (c *DNSClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
