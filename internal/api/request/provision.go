package request

// ProvisionTenant holds the request body for submitting one provisioning job.
type ProvisionTenant struct {
	BlogName     string `json:"blog_name" validate:"required,min=1,max=255"`
	Subdomain    string `json:"subdomain" validate:"required,subdomain"`
	CustomDomain string `json:"custom_domain" validate:"omitempty,fqdn"`
	OwnerEmail   string `json:"owner_email" validate:"required,email"`
	OwnerName    string `json:"owner_name" validate:"omitempty,min=1,max=255"`
	CompanyName  string `json:"company_name" validate:"omitempty,max=255"`
	Niche        string `json:"niche" validate:"omitempty,max=255"`
	Theme        string `json:"theme" validate:"omitempty,max=64"`
	PrimaryColor string `json:"primary_color" validate:"omitempty,hexcolor6"`
	Template     string `json:"template" validate:"omitempty,max=64"`
}

// ProvisionBulk holds a batch of provisioning specs. The per-spec validation
// runs element by element so one bad spec does not reject its siblings.
type ProvisionBulk struct {
	Specs []ProvisionTenant `json:"specs" validate:"required,min=1"`
}

// DeployResult is the deploy platform's completion callback.
type DeployResult struct {
	ExternalRef string `json:"external_ref" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=success failed"`
	URL         string `json:"url" validate:"omitempty,url"`
	Error       string `json:"error"`
}

// DomainVerification is the domain verifier's completion callback, keyed by
// the domain name under verification.
type DomainVerification struct {
	Domain    string `json:"domain" validate:"required,fqdn"`
	Status    string `json:"status" validate:"required,oneof=verified failed"`
	TenantRef string `json:"tenant_ref"`
}

// DeleteJob carries the confirmation token for an administrative delete.
type DeleteJob struct {
	Confirm string `json:"confirm" validate:"required"`
}

// Cleanup optionally overrides the retention window, in hours.
type Cleanup struct {
	OlderThanHours int `json:"older_than_hours" validate:"omitempty,min=1"`
}
