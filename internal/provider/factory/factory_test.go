package factory

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obfin-advisor/internal/config"
)

func TestNewConfiguredProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Upstream.APIKey = "sk-test"

	p, err := NewConfiguredProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestNewConfiguredProvider_MissingKey(t *testing.T) {
	cfg := config.Default()

	_, err := NewConfiguredProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialise openai provider")
}

func TestNewHTTPClient(t *testing.T) {
	client := newHTTPClient(15 * time.Second)
	assert.Equal(t, 15*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.ForceAttemptHTTP2)
	assert.Equal(t, defaultIdleConnTimeout, transport.IdleConnTimeout)
}
