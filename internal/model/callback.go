package model

// Deploy callback status values reported by the hosting platform.
const (
	DeployStatusSuccess = "success"
	DeployStatusFailed  = "failed"
)

// DeployResult is the payload the hosting platform POSTs when a requested
// build finishes.
type DeployResult struct {
	ExternalRef string `json:"external_ref"`
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// DomainVerification is the payload the DNS/SSL platform POSTs once a custom
// domain has been verified.
type DomainVerification struct {
	Domain    string `json:"domain"`
	Status    string `json:"status"`
	TenantRef string `json:"tenant_ref,omitempty"`
}
