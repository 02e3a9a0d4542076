// Package dnssync keeps Cloudflare A and AAAA records pointed at the
// addresses the refresh engine publishes.
package dnssync

import (
	"context"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jsirianni/publicip/cloudflare"
	"github.com/jsirianni/publicip/publicip"
)

// API is the subset of the Cloudflare client the sink uses.
type API interface {
	FindZoneID(ctx context.Context, zoneName string) (string, error)
	Sync(ctx context.Context, zoneID string, want cloudflare.DNSRecord) (cloudflare.SyncResult, error)
}

// Target names the record to maintain.
type Target struct {
	Zone    string
	Name    string
	TTL     int
	Proxied bool
}

// FQDN is Name within Zone.
func (t Target) FQDN() string {
	if t.Name == "" || t.Name == "@" {
		return t.Zone
	}
	return t.Name + "." + t.Zone
}

// Sink is a publicip.Presenter that forwards to next and queues a DNS update
// whenever a family's full address changes. Updates run on Run's goroutine so
// Publish never waits on the API.
type Sink struct {
	next   publicip.Presenter
	api    API
	target Target
	log    logrus.FieldLogger

	mu      sync.Mutex
	zoneID  string
	synced  map[string]string
	pending map[string]string
	wake    chan struct{}
}

// NewSink wraps next.
func NewSink(next publicip.Presenter, api API, target Target, log logrus.FieldLogger) *Sink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if target.TTL <= 0 {
		target.TTL = 1
	}
	return &Sink{
		next:    next,
		api:     api,
		target:  target,
		log:     log.WithField("record", target.FQDN()),
		synced:  make(map[string]string),
		pending: make(map[string]string),
		wake:    make(chan struct{}, 1),
	}
}

// Publish implements publicip.Presenter.
func (s *Sink) Publish(state publicip.DisplayState) {
	s.next.Publish(state)

	s.mu.Lock()
	for _, family := range publicip.Families {
		addr, ok := state.Full(family)
		if !ok {
			continue
		}
		typ := recordType(addr)
		if (family == publicip.IPv4) != (typ == "A") {
			// A dual-stack lookup that fell back to IPv4 is not an AAAA value.
			continue
		}
		if s.synced[typ] == addr {
			delete(s.pending, typ)
			continue
		}
		s.pending[typ] = addr
	}
	queued := len(s.pending) > 0
	s.mu.Unlock()

	if queued {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// PublishCountdown implements publicip.Presenter.
func (s *Sink) PublishCountdown(remaining int) {
	s.next.PublishCountdown(remaining)
}

// Run applies queued updates until ctx is done. A failed update is retried the
// next time the engine publishes.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
			s.flush(ctx)
		}
	}
}

func (s *Sink) flush(ctx context.Context) {
	s.mu.Lock()
	work := s.pending
	s.pending = make(map[string]string)
	zoneID := s.zoneID
	s.mu.Unlock()

	if zoneID == "" {
		id, err := s.api.FindZoneID(ctx, s.target.Zone)
		if err != nil {
			s.log.WithError(err).Warn("resolve dns zone")
			return
		}
		zoneID = id
		s.mu.Lock()
		s.zoneID = id
		s.mu.Unlock()
	}

	for typ, addr := range work {
		res, err := s.api.Sync(ctx, zoneID, cloudflare.DNSRecord{
			Type:    typ,
			Name:    s.target.FQDN(),
			Content: addr,
			TTL:     s.target.TTL,
			Proxied: s.target.Proxied,
		})
		log := s.log.WithFields(logrus.Fields{"type": typ, "ip": addr})
		if err != nil {
			log.WithError(err).Warn("dns sync failed")
			continue
		}
		s.mu.Lock()
		s.synced[typ] = addr
		s.mu.Unlock()
		log.WithField("result", res.String()).Info("dns record synced")
	}
}

// Synced returns the address last written for a record type.
func (s *Sink) Synced(recordType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced[recordType]
}

func recordType(addr string) string {
	if ip := net.ParseIP(addr); ip != nil && ip.To4() == nil {
		return "AAAA"
	}
	return "A"
}
