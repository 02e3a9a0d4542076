// Package netutil holds the HTTP plumbing used for public address lookups.
package netutil

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Timeouts
const (
	dialTimeout           = 10 * time.Second
	keepAlive             = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	expectContinueTimeout = 1 * time.Second
	// DefaultHTTPTimeout bounds a whole request when NewClient gets no timeout.
	DefaultHTTPTimeout    = 10 * time.Second
)

// Network names accepted by NewTransport.
const (
	NetworkIPv4      = "tcp4"
	NetworkDualStack = "tcp"
)

// NewTransport returns a transport whose connections are dialed on network
// regardless of what the caller asks for. "tcp4" pins lookups to IPv4; "tcp"
// lets the dialer prefer IPv6 when the host has a route for it.
func NewTransport(network string) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlive,
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		// Each lookup dials its own connection.
		DisableKeepAlives: true,
	}
}

// NewClient returns an http.Client over NewTransport(network).
func NewClient(network string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout, Transport: NewTransport(network)}
}
