package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"

	assert.Equal(t, "203.0.113.7", ExtractClientIP(req, nil))
}

func TestExtractClientIP_IgnoresHeadersFromUntrustedSource(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("X-Real-IP", "198.51.100.2")

	// No trusted proxies configured: headers are spoofable, use the socket
	assert.Equal(t, "203.0.113.7", ExtractClientIP(req, &IPConfig{}))
}

func TestExtractClientIP_HonorsTrustedProxy(t *testing.T) {
	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")

	assert.Equal(t, "198.51.100.1", ExtractClientIP(req, config))
}

func TestExtractClientIP_FallsBackToRealIP(t *testing.T) {
	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Real-IP", "198.51.100.9")

	assert.Equal(t, "198.51.100.9", ExtractClientIP(req, config))
}

func TestExtractClientIP_SkipsInvalidForwardedEntries(t *testing.T) {
	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Forwarded-For", "garbage, 198.51.100.1")

	assert.Equal(t, "198.51.100.1", ExtractClientIP(req, config))
}
