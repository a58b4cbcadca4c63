// Package provider defines the narrow interfaces the workflow engine uses to
// talk to external collaborators, plus HTTP/S3-backed production clients.
// The engine never sees anything but these interfaces.
package provider

import (
	"context"

	"github.com/sergiomvj/faceblog/internal/model"
)

// DNSRegistrar manages subdomain records in the platform's hosted zone.
type DNSRegistrar interface {
	// Available reports whether the hostname is free to register.
	Available(ctx context.Context, hostname string) (bool, error)
	Register(ctx context.Context, hostname string) error
}

// SiteArtifact is the output of a site scaffold: a named archive of the
// generated themed site.
type SiteArtifact struct {
	Name    string
	Archive []byte
}

// SiteBuilder generates the themed site content for a new blog.
type SiteBuilder interface {
	Scaffold(ctx context.Context, spec model.BlogSpec) (*SiteArtifact, error)
}

// DeployRequest asks the hosting platform to build and deploy a site. The
// platform reports the outcome asynchronously by POSTing a deploy-result
// callback carrying ExternalRef.
type DeployRequest struct {
	ExternalRef string `json:"external_ref"`
	Hostname    string `json:"hostname"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	Theme       string `json:"theme,omitempty"`
	CallbackURL string `json:"callback_url"`
}

// DeployPlatform is the asynchronous hosting target.
type DeployPlatform interface {
	StartDeploy(ctx context.Context, req DeployRequest) error
}

// DomainVerifier checks domain ownership and SSL issuance. Hosted subdomains
// verify inline (the platform controls the zone); custom domains verify
// asynchronously via a domain-verification callback keyed by the domain name.
type DomainVerifier interface {
	// RequestVerification returns true when verification completed inline.
	// False means the platform will call back later.
	RequestVerification(ctx context.Context, domain string, hosted bool, callbackURL string) (bool, error)
}

// Mailer sends the welcome notification once a blog is live.
type Mailer interface {
	SendWelcome(ctx context.Context, spec model.BlogSpec, blogURL string) error
}

// TenantDirectory is the tenant record store of the surrounding SaaS. It
// answers whether a subdomain already belongs to a provisioned tenant,
// covering tenants whose job records were purged by retention.
type TenantDirectory interface {
	SubdomainTaken(ctx context.Context, subdomain string) (bool, error)
}

// ArtifactStore persists scaffolded site archives and returns a fetch URL the
// deploy platform can pull from.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}
