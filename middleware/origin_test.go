package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	domains := []string{"example.com", "Shop.Example.ORG"}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"exact match", "https://example.com", true},
		{"subdomain match", "https://www.example.com", true},
		{"deep subdomain", "https://a.b.example.com", true},
		{"with port", "https://example.com:8443", true},
		{"case insensitive domain list", "https://shop.example.org", true},
		{"referer style with path", "https://www.example.com/pricing?q=1", true},
		{"bare host", "example.com", true},
		{"different domain", "https://evil.com", false},
		{"suffix but not subdomain", "https://notexample.com", false},
		{"empty origin", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginAllowed(tt.origin, domains))
		})
	}
}

func TestOriginAllowedSkipsBlankDomains(t *testing.T) {
	assert.False(t, OriginAllowed("https://example.com", []string{"", "  "}))
}

func TestSelfOriginsExtractHosts(t *testing.T) {
	hosts := selfOrigins("https://app.taimako.test", "http://api.taimako.test:8080", "not a url", "")
	assert.Equal(t, []string{"app.taimako.test", "api.taimako.test"}, hosts)
}

func TestDeploymentOriginPassesWhitelist(t *testing.T) {
	// The embedded frame is served from the widget application, so its
	// POSTs carry the deployment's own origin, never the embedding site's.
	// A configured whitelist must not lock the deployment out of itself.
	self := selfOrigins("https://app.taimako.test", "https://api.taimako.test")
	whitelist := []string{"shop.example.com"}

	frameOrigin := "https://app.taimako.test"
	assert.False(t, OriginAllowed(frameOrigin, whitelist))
	assert.True(t, OriginAllowed(frameOrigin, self))

	// The whitelist still rejects everything else
	assert.False(t, OriginAllowed("https://evil.com", whitelist))
	assert.False(t, OriginAllowed("https://evil.com", self))
	assert.True(t, OriginAllowed("https://shop.example.com", whitelist))
}
