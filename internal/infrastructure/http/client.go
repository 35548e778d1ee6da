package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"3tcapital/correlate/internal/core/correlation"
)

// ClientConfig holds configuration for outgoing HTTP clients.
type ClientConfig struct {
	Timeout         time.Duration
	RetryMax        int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
	// CorrelationHeader defaults to DefaultCorrelationHeader.
	CorrelationHeader string
	// Instrument, when set, wraps the correlating transport (metrics).
	Instrument func(http.RoundTripper) http.RoundTripper
	// Transport is the innermost transport; a pooled http.Transport is
	// built when nil.
	Transport http.RoundTripper
}

// DefaultClientConfig returns the defaults used when NewClient gets nil.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:      30 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// NewClient creates a retrying HTTP client whose every attempt carries the
// ambient correlation id. Use StandardClient() where an *http.Client is
// expected.
func NewClient(config *ClientConfig, accessor correlation.Accessor, log *slog.Logger) *retryablehttp.Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	var transport http.RoundTripper = NewCorrelatingTransport(baseTransport(config), accessor, config.CorrelationHeader, log)
	if config.Instrument != nil {
		transport = config.Instrument(transport)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
	client.RetryMax = config.RetryMax
	if config.RetryWaitMin > 0 {
		client.RetryWaitMin = config.RetryWaitMin
	}
	if config.RetryWaitMax > 0 {
		client.RetryWaitMax = config.RetryWaitMax
	}
	client.Logger = log.With("component", "http_client")
	return client
}

func baseTransport(config *ClientConfig) http.RoundTripper {
	if config.Transport != nil {
		return config.Transport
	}

	maxConnsPerHost := config.MaxConnsPerHost
	if maxConnsPerHost == 0 {
		maxConnsPerHost = 50
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
