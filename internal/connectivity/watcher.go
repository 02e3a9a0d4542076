// Package connectivity turns raw reachability signals into debounced
// satisfied/unsatisfied transitions.
package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Watcher and probe defaults.
const (
	DefaultSettle       = time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultProbeAddress = "1.1.1.1:443"
	DefaultProbeTimeout = 3 * time.Second
)

// Handler receives debounced connectivity transitions.
type Handler func(satisfied bool)

// Watcher coalesces reachability events. A state is forwarded only after it
// has held for the settle window and only when it differs from the last
// forwarded state, so flapping inside the window produces at most one call.
type Watcher struct {
	handler Handler
	settle  time.Duration
	log     logrus.FieldLogger

	// deliver is held across handler calls so transitions arrive in the
	// order they settled.
	deliver sync.Mutex

	mu        sync.Mutex
	pending   bool
	forwarded bool
	timer     *time.Timer
	stopped   bool
}

// NewWatcher returns a watcher that assumes the network starts out reachable.
func NewWatcher(handler Handler, settle time.Duration, log logrus.FieldLogger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		handler:   handler,
		settle:    settle,
		log:       log,
		pending:   true,
		forwarded: true,
	}
}

// Notify records a raw reachability observation. Only a change of state
// restarts the settle window; repeated observations of the same state do not.
func (w *Watcher) Notify(satisfied bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || satisfied == w.pending {
		return
	}
	w.pending = satisfied
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.fire)
}

func (w *Watcher) fire() {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	if w.stopped || w.pending == w.forwarded {
		w.mu.Unlock()
		return
	}
	w.forwarded = w.pending
	state := w.forwarded
	w.mu.Unlock()

	w.log.WithField("satisfied", state).Debug("connectivity settled")
	w.handler(state)
}

// Stop cancels any pending forward. Later Notify calls are ignored.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Probe reports whether the network is currently usable.
type Probe interface {
	Check(ctx context.Context) bool
}

// DialProbe considers the network reachable when a TCP connection to Address
// can be opened.
type DialProbe struct {
	Address string
	Timeout time.Duration
}

// Check dials the probe address once.
func (p DialProbe) Check(ctx context.Context) bool {
	addr := p.Address
	if addr == "" {
		addr = DefaultProbeAddress
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Poll checks probe every interval and feeds the result to w until ctx is
// done.
func Poll(ctx context.Context, probe Probe, interval time.Duration, w *Watcher) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-ticker.C:
			w.Notify(probe.Check(ctx))
		}
	}
}
