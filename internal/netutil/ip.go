package netutil

import (
	"errors"
	"net"
	"strings"
)

var (
	// ErrInvalidIP is returned for strings that are not IP addresses.
	ErrInvalidIP = errors.New("invalid ip address")
	// ErrNotIPv4 is returned when an IPv4 address was required.
	ErrNotIPv4 = errors.New("not an ipv4 address")
)

// ValidateIP checks that s is an IP address and returns it trimmed but
// otherwise as the server wrote it. With requireV4 set, IPv6 addresses are
// rejected.
func ValidateIP(s string, requireV4 bool) (string, error) {
	s = strings.TrimSpace(s)
	parsed := net.ParseIP(s)
	if parsed == nil {
		return "", ErrInvalidIP
	}
	if requireV4 && parsed.To4() == nil {
		return "", ErrNotIPv4
	}
	return s, nil
}
