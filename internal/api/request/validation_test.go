package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubdomainRule(t *testing.T) {
	valid := []string{"abc", "my-blog", "a1b2c3", "blog-42", "abcdefghijklmnopqrstuvwxyz1234"}
	invalid := []string{
		"",                // empty
		"ab",              // too short
		"AB",              // uppercase
		"-leading",        // leading hyphen
		"trailing-",       // trailing hyphen
		"has_underscore",  // underscore
		"has.dot",         // dot
		"way-too-long-" + strings.Repeat("x", 30), // over 30 chars
	}

	type probe struct {
		Subdomain string `validate:"subdomain"`
	}

	for _, s := range valid {
		assert.NoError(t, validate.Struct(probe{Subdomain: s}), "expected %q valid", s)
	}
	for _, s := range invalid {
		assert.Error(t, validate.Struct(probe{Subdomain: s}), "expected %q invalid", s)
	}
}

func TestDecodeProvisionTenant(t *testing.T) {
	body := `{"blog_name":"Acme","subdomain":"acme","owner_email":"a@example.com","owner_name":"A"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var req ProvisionTenant
	require.NoError(t, Decode(r, &req))
	assert.Equal(t, "acme", req.Subdomain)
}

func TestDecodeRejectsBadEmail(t *testing.T) {
	body := `{"blog_name":"Acme","subdomain":"acme","owner_email":"not-an-email","owner_name":"A"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var req ProvisionTenant
	err := Decode(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestDecodeRejectsBadJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader("{nope"))

	var req ProvisionTenant
	err := Decode(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestHexColorRule(t *testing.T) {
	type probe struct {
		Color string `validate:"omitempty,hexcolor6"`
	}

	assert.NoError(t, validate.Struct(probe{Color: "#3B82F6"}))
	assert.NoError(t, validate.Struct(probe{Color: ""}))
	assert.Error(t, validate.Struct(probe{Color: "3B82F6"}))
	assert.Error(t, validate.Struct(probe{Color: "#3B82F"}))
	assert.Error(t, validate.Struct(probe{Color: "#GGGGGG"}))
}
