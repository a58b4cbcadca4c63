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

	"github.com/sergiomvj/faceblog/internal/model"
)

// MailerClient sends transactional mail through the notification service.
type MailerClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

func NewMailerClient(baseURL, token string, logger zerolog.Logger) *MailerClient {
	return &MailerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "mailer-client").Logger(),
	}
}

type welcomeMessage struct {
	To        string `json:"to"`
	Template  string `json:"template"`
	BlogName  string `json:"blog_name"`
	BlogURL   string `json:"blog_url"`
	OwnerName string `json:"owner_name,omitempty"`
}

func (c *MailerClient) SendWelcome(ctx context.Context, spec model.BlogSpec, blogURL string) error {
	body, err := json.Marshal(welcomeMessage{
		To:        spec.OwnerEmail,
		Template:  "blog-welcome",
		BlogName:  spec.BlogName,
		BlogURL:   blogURL,
		OwnerName: spec.OwnerName,
	})
	if err != nil {
		return fmt.Errorf("marshal welcome mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send welcome to %s: %w", spec.OwnerEmail, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send welcome to %s: HTTP %d", spec.OwnerEmail, resp.StatusCode)
	}

	c.logger.Info().Str("to", spec.OwnerEmail).Str("blog_url", blogURL).Msg("welcome mail sent")
	return nil
}
