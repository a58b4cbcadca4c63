package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const jobsPath = "/api/v1/provisioning/jobs"

// BuildTools returns the provisioning tool set, each proxying one REST
// operation.
func BuildTools(proxy *ProxyHandler) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("provision_blog",
				mcp.WithDescription("Submit a tenant provisioning job for a new blog. Returns the accepted job; poll provision_status for progress."),
				mcp.WithString("blog_name", mcp.Required(), mcp.Description("Display name of the blog")),
				mcp.WithString("subdomain", mcp.Required(), mcp.Description("Subdomain label, e.g. \"acme\" for acme.faceblog.site")),
				mcp.WithString("owner_email", mcp.Required(), mcp.Description("Owner's email address")),
				mcp.WithString("owner_name", mcp.Description("Optional owner display name")),
				mcp.WithString("custom_domain", mcp.Description("Optional custom domain to verify and attach")),
				mcp.WithString("theme", mcp.Description("Theme name, defaults to \"modern\"")),
				mcp.WithString("template", mcp.Description("Provisioning template, defaults to \"modern-blog\"")),
			),
			Handler: proxy.submitHandler,
		},
		{
			Tool: mcp.NewTool("provision_status",
				mcp.WithDescription("Get a provisioning job's status, progress, and step log."),
				mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID returned by provision_blog")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: proxy.statusHandler,
		},
		{
			Tool: mcp.NewTool("provision_list",
				mcp.WithDescription("List provisioning jobs, optionally filtered by status or tenant reference."),
				mcp.WithString("status", mcp.Description("Filter: initializing, running, completed, or failed"), mcp.Enum("initializing", "running", "completed", "failed")),
				mcp.WithString("tenant_ref", mcp.Description("Filter by tenant reference")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: proxy.listHandler,
		},
		{
			Tool: mcp.NewTool("provision_cancel",
				mcp.WithDescription("Cancel a running provisioning job, or delete a finished one. The job ID doubles as the confirmation token."),
				mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID to cancel")),
				mcp.WithDestructiveHintAnnotation(true),
			),
			Handler: proxy.cancelHandler,
		},
		{
			Tool: mcp.NewTool("provision_cleanup",
				mcp.WithDescription("Delete finished provisioning jobs older than the retention window."),
				mcp.WithNumber("older_than_hours", mcp.Description("Optional retention window override, in hours")),
				mcp.WithDestructiveHintAnnotation(true),
			),
			Handler: proxy.cleanupHandler,
		},
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (p *ProxyHandler) submitHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	body := map[string]any{}
	for _, key := range []string{"blog_name", "subdomain", "owner_email", "owner_name", "custom_domain", "theme", "template"} {
		if v := stringArg(args, key); v != "" {
			body[key] = v
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode body: %s", err)), nil
	}
	return p.call(ctx, req, "POST", jobsPath, "", string(payload))
}

func (p *ProxyHandler) statusHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := stringArg(req.GetArguments(), "job_id")
	if jobID == "" {
		return mcp.NewToolResultError("missing required parameter: job_id"), nil
	}
	return p.call(ctx, req, "GET", jobsPath+"/"+url.PathEscape(jobID), "", "")
}

func (p *ProxyHandler) listHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	q := url.Values{}
	if v := stringArg(args, "status"); v != "" {
		q.Set("status", v)
	}
	if v := stringArg(args, "tenant_ref"); v != "" {
		q.Set("tenant_ref", v)
	}
	return p.call(ctx, req, "GET", jobsPath, q.Encode(), "")
}

func (p *ProxyHandler) cancelHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := stringArg(req.GetArguments(), "job_id")
	if jobID == "" {
		return mcp.NewToolResultError("missing required parameter: job_id"), nil
	}
	payload, _ := json.Marshal(map[string]string{"confirm": jobID})
	return p.call(ctx, req, "DELETE", jobsPath+"/"+url.PathEscape(jobID), "", string(payload))
}

func (p *ProxyHandler) cleanupHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := ""
	if v := stringArg(req.GetArguments(), "older_than_hours"); v != "" && v != "0" {
		var hours float64
		fmt.Sscanf(v, "%g", &hours)
		if hours > 0 {
			payload, _ := json.Marshal(map[string]int{"older_than_hours": int(hours)})
			body = string(payload)
		}
	}
	return p.call(ctx, req, "POST", "/api/v1/provisioning/cleanup", "", body)
}
