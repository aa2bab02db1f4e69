package factory

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"obfin-advisor/internal/config"
	"obfin-advisor/internal/provider"
	openaiProvider "obfin-advisor/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// NewConfiguredProvider constructs the upstream provider described by configuration.
func NewConfiguredProvider(cfg config.Config) (provider.Provider, error) {
	client := newHTTPClient(cfg.Upstream.Timeout)
	p, err := openaiProvider.New("openai", cfg.Upstream, client)
	if err != nil {
		return nil, fmt.Errorf("initialise openai provider: %w", err)
	}
	return p, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
