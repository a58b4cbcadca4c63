package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// ProxyHandler creates MCP tool handlers that proxy to the provisioning REST
// API.
type ProxyHandler struct {
	apiURL string
	client *http.Client
	logger zerolog.Logger
}

func NewProxyHandler(apiURL string, logger zerolog.Logger) *ProxyHandler {
	return &ProxyHandler{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{},
		logger: logger,
	}
}

// call performs one proxied request. Path parameters are already substituted
// by the tool handler; body is raw JSON or empty.
func (p *ProxyHandler) call(ctx context.Context, req mcp.CallToolRequest, method, path, query, body string) (*mcp.CallToolResult, error) {
	url := p.apiURL + path
	if query != "" {
		url += "?" + query
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build request: %s", err)), nil
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// Forward the API key from MCP session headers
	apiKey := req.Header.Get("X-API-Key")
	if apiKey == "" {
		auth := req.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			apiKey = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if apiKey != "" {
		httpReq.Header.Set("X-API-Key", apiKey)
	}

	p.logger.Debug().
		Str("method", method).
		Str("url", url).
		Str("tool", req.Params.Name).
		Msg("proxying MCP tool call")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API request failed: %s", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read response: %s", err)), nil
	}

	if resp.StatusCode >= 400 {
		return mcp.NewToolResultError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))), nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return mcp.NewToolResultText(`{"status":"success"}`), nil
	}

	return mcp.NewToolResultText(string(respBody)), nil
}
