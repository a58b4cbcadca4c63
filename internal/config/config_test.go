package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "faceblog.site", cfg.BaseDomain)
	assert.Equal(t, 15*time.Minute, cfg.AwaitTimeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, time.Duration(0), cfg.RetentionInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", ":9999")
	t.Setenv("AWAIT_TIMEOUT", "30s")
	t.Setenv("BASE_DOMAIN", "blogs.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPListenAddr)
	assert.Equal(t, 30*time.Second, cfg.AwaitTimeout)
	assert.Equal(t, "blogs.example.com", cfg.BaseDomain)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("AWAIT_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.AwaitTimeout)
}

func TestValidate_ProvisionerAPI(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.NoError(t, cfg.Validate("provisioner-api"))
	assert.Equal(t, "provisioner-api", cfg.ServiceName)

	cfg.BaseDomain = ""
	assert.Error(t, cfg.Validate("provisioner-api"))
}
