package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	ServiceName    string
	HTTPListenAddr string
	LogLevel       string

	// DatabaseURL selects the Postgres job store when set; the in-memory
	// store is used otherwise.
	DatabaseURL string

	AdminAPIKey string

	// BaseDomain is the zone hosted blogs live under, e.g. "faceblog.site".
	BaseDomain string
	// CallbackBaseURL is the public URL external platforms POST callbacks to.
	CallbackBaseURL string

	DNSAPIURL      string
	DNSAPIToken    string
	BuilderAPIURL  string
	DeployAPIURL   string
	DeployAPIToken string
	VerifierAPIURL string
	MailerAPIURL   string
	MailerAPIToken string
	TenantsAPIURL  string

	// Artifact store (optional). Scaffolded site archives are uploaded here
	// when an endpoint is configured.
	ArtifactS3Endpoint  string
	ArtifactS3Bucket    string
	ArtifactS3AccessKey string
	ArtifactS3SecretKey string

	// TemplatesDir holds extra provisioning step templates (YAML), loaded in
	// addition to the built-in defaults.
	TemplatesDir string

	AwaitTimeout      time.Duration
	SweepInterval     time.Duration
	RetentionWindow   time.Duration
	RetentionInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPListenAddr:      getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		AdminAPIKey:         getEnv("ADMIN_API_KEY", ""),
		BaseDomain:          getEnv("BASE_DOMAIN", "faceblog.site"),
		CallbackBaseURL:     getEnv("CALLBACK_BASE_URL", "http://localhost:8090"),
		DNSAPIURL:           getEnv("DNS_API_URL", ""),
		DNSAPIToken:         getEnv("DNS_API_TOKEN", ""),
		BuilderAPIURL:       getEnv("BUILDER_API_URL", ""),
		DeployAPIURL:        getEnv("DEPLOY_API_URL", ""),
		DeployAPIToken:      getEnv("DEPLOY_API_TOKEN", ""),
		VerifierAPIURL:      getEnv("VERIFIER_API_URL", ""),
		MailerAPIURL:        getEnv("MAILER_API_URL", ""),
		MailerAPIToken:      getEnv("MAILER_API_TOKEN", ""),
		TenantsAPIURL:       getEnv("TENANTS_API_URL", ""),
		ArtifactS3Endpoint:  getEnv("ARTIFACT_S3_ENDPOINT", ""),
		ArtifactS3Bucket:    getEnv("ARTIFACT_S3_BUCKET", "faceblog-site-artifacts"),
		ArtifactS3AccessKey: getEnv("ARTIFACT_S3_ACCESS_KEY", ""),
		ArtifactS3SecretKey: getEnv("ARTIFACT_S3_SECRET_KEY", ""),
		TemplatesDir:        getEnv("TEMPLATES_DIR", ""),
		AwaitTimeout:        getDuration("AWAIT_TIMEOUT", 15*time.Minute),
		SweepInterval:       getDuration("SWEEP_INTERVAL", time.Minute),
		RetentionWindow:     getDuration("RETENTION_WINDOW", 24*time.Hour),
		RetentionInterval:   getDuration("RETENTION_INTERVAL", 0),
	}

	return cfg, nil
}

// Validate checks service-specific requirements and records the service name
// for logging context.
func (c *Config) Validate(service string) error {
	c.ServiceName = service

	switch service {
	case "provisioner-api":
		if c.BaseDomain == "" {
			return fmt.Errorf("BASE_DOMAIN is required")
		}
		if c.AwaitTimeout <= 0 {
			return fmt.Errorf("AWAIT_TIMEOUT must be positive")
		}
	case "mcp-server":
		// No extra requirements beyond defaults.
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
