// Package publicip discovers the host's public IPv4 and IPv6 addresses and
// keeps a short display string for them fresh on a fixed interval.
package publicip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jsirianni/publicip/internal/netutil"
)

const (
	// DefaultIPv4URL is the IPv4 lookup endpoint.
	DefaultIPv4URL   = "https://api.ipify.org?format=json"
	// DefaultIPv6URL is the IPv6 lookup endpoint. It also answers over IPv4
	// when the host has no IPv6 route.
	DefaultIPv6URL   = "https://api64.ipify.org?format=json"
	defaultUserAgent = "publicip/1.0 (+github.com/jsirianni/publicip)"

	maxBodyBytes = 1 << 20

	// Header keys
	headerAccept       = "Accept"
	headerUserAgent    = "User-Agent"
	headerCacheControl = "Cache-Control"
	headerPragma       = "Pragma"
)

// Options holds optional configuration for the Fetcher.
type Options struct {
	// IPv4URL is queried over an IPv4-only transport.
	IPv4URL string
	// IPv6URL is queried over a dual-stack transport.
	IPv6URL string
	// HTTPClient, when set, is used for both families instead of the
	// family-pinned defaults.
	HTTPClient *http.Client
	UserAgent  string
	// Timeout applies if HTTPClient is nil.
	Timeout time.Duration
	// Now stamps FetchedAt; defaults to time.Now.
	Now func() time.Time
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// WithIPv4URL overrides the IPv4 lookup endpoint.
func WithIPv4URL(u string) Option { return func(o *Options) { o.IPv4URL = u } }

// WithIPv6URL overrides the IPv6 lookup endpoint.
func WithIPv6URL(u string) Option { return func(o *Options) { o.IPv6URL = u } }

// WithHTTPClient sets a custom HTTP client for both families.
func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }

// WithUserAgent sets a custom user agent.
func WithUserAgent(ua string) Option { return func(o *Options) { o.UserAgent = ua } }

// WithTimeout sets the per-request timeout of the default clients.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithClock sets the function used to stamp results.
func WithClock(now func() time.Time) Option { return func(o *Options) { o.Now = now } }

type endpoint struct {
	url       string
	client    *http.Client
	requireV4 bool
}

// Fetcher looks up one address family at a time against an IP echo service
// answering {"ip": "<address>"}.
type Fetcher struct {
	endpoints map[Family]endpoint
	userAgent string
	now       func() time.Time
}

// NewFetcher constructs a Fetcher. It fails only on malformed endpoint URLs.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	v4, err := endpointURL(options.IPv4URL, DefaultIPv4URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ipv4 url: %w", err)
	}
	v6, err := endpointURL(options.IPv6URL, DefaultIPv6URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ipv6 url: %w", err)
	}

	v4Client, v6Client := options.HTTPClient, options.HTTPClient
	if options.HTTPClient == nil {
		v4Client = netutil.NewClient(netutil.NetworkIPv4, options.Timeout)
		v6Client = netutil.NewClient(netutil.NetworkDualStack, options.Timeout)
	}

	userAgent := options.UserAgent
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}

	return &Fetcher{
		endpoints: map[Family]endpoint{
			IPv4: {url: v4, client: v4Client, requireV4: true},
			IPv6: {url: v6, client: v6Client},
		},
		userAgent: userAgent,
		now:       now,
	}, nil
}

func endpointURL(raw, def string) (string, error) {
	if raw == "" {
		raw = def
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	return u.String(), nil
}

type ipResponse struct {
	IP string `json:"ip"`
}

// Fetch performs a single lookup. It never returns an error: failures are
// reported on the result with Failed set and a reason.
func (f *Fetcher) Fetch(ctx context.Context, family Family) AddressResult {
	res := AddressResult{Family: family, FetchedAt: f.now()}

	ep, ok := f.endpoints[family]
	if !ok {
		return fail(res, ErrDecode, fmt.Sprintf("unsupported family %s", family))
	}

	ip, kind, err := f.lookup(ctx, ep)
	if err != nil {
		return fail(res, kind, err.Error())
	}
	res.Value = ip
	return res
}

func (f *Fetcher) lookup(ctx context.Context, ep endpoint) (string, ErrorKind, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.url, nil)
	if err != nil {
		return "", ErrNetwork, err
	}
	req.Header.Set(headerAccept, "application/json")
	req.Header.Set(headerUserAgent, f.userAgent)
	req.Header.Set(headerCacheControl, "no-cache, no-store")
	req.Header.Set(headerPragma, "no-cache")

	resp, err := ep.client.Do(req)
	if err != nil {
		return "", ErrNetwork, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", ErrNetwork, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrHTTPStatus, fmt.Errorf("http status %s", resp.Status)
	}

	var out ipResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", ErrDecode, fmt.Errorf("decode response: %w", err)
	}
	if out.IP == "" {
		return "", ErrDecode, errors.New("missing ip field")
	}
	ip, err := netutil.ValidateIP(out.IP, ep.requireV4)
	if err != nil {
		return "", ErrDecode, fmt.Errorf("%w: %q", err, out.IP)
	}
	return ip, ErrNone, nil
}

func fail(res AddressResult, kind ErrorKind, reason string) AddressResult {
	res.Failed = true
	res.Kind = kind
	res.ErrorReason = reason
	return res
}
