// Package cloudflare is a small Cloudflare v4 DNS client used to point A and
// AAAA records at the addresses publicip discovers.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jsirianni/publicip/internal/netutil"
)

const (
	defaultBaseURL   = "https://api.cloudflare.com/client/v4"
	defaultUserAgent = "publicip-dns/1.0 (+github.com/jsirianni/publicip)"

	defaultHTTPTimeout = 30 * time.Second

	// Header keys
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	headerAuthz       = "Authorization"
)

// Options holds optional configuration for the Client.
type Options struct {
	// BaseURL allows overriding the Cloudflare API base URL.
	BaseURL string
	// HTTPClient allows injecting a custom http.Client.
	HTTPClient *http.Client
	UserAgent  string
	// Timeout applies if HTTPClient is nil.
	Timeout  time.Duration
	APIToken string
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(base string) Option { return func(o *Options) { o.BaseURL = base } }

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }

// WithUserAgent sets a custom user agent.
func WithUserAgent(ua string) Option { return func(o *Options) { o.UserAgent = ua } }

// WithTimeout sets the timeout of the default http.Client.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithAPIToken sets the API token used as a Bearer credential.
func WithAPIToken(token string) Option { return func(o *Options) { o.APIToken = token } }

// Client is a Cloudflare DNS API client.
type Client struct {
	apiToken   string
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
}

// New constructs a client. An API token is required.
func New(opts ...Option) (*Client, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if strings.TrimSpace(options.APIToken) == "" {
		return nil, errors.New("missing auth: provide an api token")
	}

	base := options.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	// Relative references resolve under the last path segment only when the
	// base ends in a slash.
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout == 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = netutil.NewClient(netutil.NetworkDualStack, timeout)
	}

	userAgent := options.UserAgent
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		apiToken:   options.APIToken,
		baseURL:    parsed,
		httpClient: httpClient,
		userAgent:  userAgent,
	}, nil
}

// do sends an HTTP request to the Cloudflare API with proper headers and context.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.Clone(ctx)
	req.Header.Set(headerContentType, "application/json")
	req.Header.Set(headerUserAgent, c.userAgent)
	req.Header.Set(headerAuthz, "Bearer "+c.apiToken)
	return c.httpClient.Do(req)
}

// buildURL joins the base URL with the relative path p.
func (c *Client) buildURL(p string) string {
	rel, _ := url.Parse(strings.TrimPrefix(p, "/"))
	return c.baseURL.ResolveReference(rel).String()
}
