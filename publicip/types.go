package publicip

import (
	"fmt"
	"strings"
	"time"
)

const (
	// PlaceholderLoading is shown before the first fetch completes.
	PlaceholderLoading = "Loading..."
	// ErrorMarker replaces a full address whose latest fetch failed.
	ErrorMarker = "Error"
	// NoNetwork is the short form published while connectivity is lost.
	NoNetwork = "No Network"
)

// Family selects an address family.
type Family int

const (
	// IPv4 is looked up over an IPv4-only transport.
	IPv4 Family = iota
	// IPv6 is looked up over a dual-stack transport that prefers IPv6.
	IPv6
)

// Families lists every family a refresh cycle fetches.
var Families = []Family{IPv4, IPv6}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily parses "ipv4", "4", "ipv6" or "6".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4", "4", "v4":
		return IPv4, nil
	case "ipv6", "6", "v6":
		return IPv6, nil
	}
	return 0, fmt.Errorf("unknown address family %q", s)
}

// ErrorKind classifies a failed lookup.
type ErrorKind int

const (
	// ErrNone marks a successful result.
	ErrNone ErrorKind = iota
	// ErrNetwork covers timeouts, refused connections and DNS failures.
	ErrNetwork
	// ErrHTTPStatus is a non-2xx response.
	ErrHTTPStatus
	// ErrDecode is a malformed body or a missing or invalid ip field.
	ErrDecode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrNetwork:
		return "network"
	case ErrHTTPStatus:
		return "http_status"
	case ErrDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// AddressResult is the outcome of one lookup. It is never mutated once
// published; the next cycle produces a new one.
type AddressResult struct {
	Family      Family
	Value       string
	FetchedAt   time.Time
	Failed      bool
	Kind        ErrorKind
	ErrorReason string
}

// DisplayState is what the engine publishes to its Presenter.
type DisplayState struct {
	ShortForm string
	FullIPv4  string
	FullIPv6  string
	LastError string
}

// Preferred returns the full address a user would copy: IPv6 when it holds a
// real address, otherwise IPv4.
func (s DisplayState) Preferred() (string, bool) {
	for _, v := range []string{s.FullIPv6, s.FullIPv4} {
		if isAddress(v) {
			return v, true
		}
	}
	return "", false
}

// Full returns the full address field for a family.
func (s DisplayState) Full(f Family) (string, bool) {
	v := s.FullIPv4
	if f == IPv6 {
		v = s.FullIPv6
	}
	return v, isAddress(v)
}

func isAddress(v string) bool {
	return v != "" && v != ErrorMarker && v != PlaceholderLoading
}

// Presenter receives display updates. Calls are serialized by the engine and
// must not call back into it.
type Presenter interface {
	Publish(state DisplayState)
	PublishCountdown(remainingSeconds int)
}
