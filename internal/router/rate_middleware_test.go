package router

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.9:54321"
	assert.Equal(t, "10.0.0.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	// Only the first hop identifies the client.
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.2, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
