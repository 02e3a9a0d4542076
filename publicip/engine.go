package publicip

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Engine defaults.
const (
	DefaultIntervalSeconds      = 300
	DefaultFetchTimeout         = 15 * time.Second
	DefaultConnectivityDebounce = time.Second
)

// AddressFetcher performs one lookup for one family.
type AddressFetcher interface {
	Fetch(ctx context.Context, family Family) AddressResult
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithInterval sets the refresh interval in whole seconds.
func WithInterval(seconds int) EngineOption {
	return func(e *Engine) {
		if seconds > 0 {
			e.interval = seconds
		}
	}
}

// WithEngineClock replaces time.Now for issue times and debouncing.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l logrus.FieldLogger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithFetchTimeout bounds each lookup.
func WithFetchTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.fetchTimeout = d }
}

// WithConnectivityDebounce sets the minimum gap between refreshes caused by
// connectivity restoration.
func WithConnectivityDebounce(d time.Duration) EngineOption {
	return func(e *Engine) { e.connDebounce = d }
}

// Engine schedules lookups for both families, merges their results into a
// DisplayState and keeps a countdown to the next refresh.
//
// All state is guarded by mu, which also serializes calls into the
// Presenter. Lookups run on their own goroutines and never hold mu while
// waiting on the network.
type Engine struct {
	fetcher      AddressFetcher
	presenter    Presenter
	log          logrus.FieldLogger
	now          func() time.Time
	interval     int
	fetchTimeout time.Duration
	connDebounce time.Duration

	mu              sync.Mutex
	ctx             context.Context
	remaining       int
	nextFireAt      time.Time
	lastIssued      time.Time
	latest          map[Family]AddressResult
	lastGood        map[Family]AddressResult
	inFlight        map[Family]int
	online          bool
	lastConnRefresh time.Time
	connTimer       *time.Timer
	offlineMark     time.Time
	restoreMark     time.Time
	heldOver        map[Family]bool
	display         DisplayState
	closed          bool

	wg sync.WaitGroup
}

// NewEngine returns an idle engine showing the loading placeholder.
func NewEngine(fetcher AddressFetcher, presenter Presenter, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:      fetcher,
		presenter:    presenter,
		log:          logrus.StandardLogger(),
		now:          time.Now,
		interval:     DefaultIntervalSeconds,
		fetchTimeout: DefaultFetchTimeout,
		connDebounce: DefaultConnectivityDebounce,
		ctx:          context.Background(),
		latest:       make(map[Family]AddressResult),
		lastGood:     make(map[Family]AddressResult),
		inFlight:     make(map[Family]int),
		heldOver:     make(map[Family]bool),
		online:       true,
		display: DisplayState{
			ShortForm: PlaceholderLoading,
			FullIPv4:  PlaceholderLoading,
			FullIPv6:  PlaceholderLoading,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.remaining = e.interval
	e.nextFireAt = e.now().Add(time.Duration(e.interval) * time.Second)
	return e
}

// Run refreshes immediately, then ticks once per second until ctx is done.
// In-flight lookups are cancelled and drained before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	e.RequestRefresh()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.closed = true
			if e.connTimer != nil {
				e.connTimer.Stop()
				e.connTimer = nil
			}
			e.mu.Unlock()
			e.Wait()
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

// RequestRefresh starts a refresh cycle and resets the countdown. It does not
// wait for the lookups and does not queue behind cycles already running.
func (e *Engine) RequestRefresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked(false)
}

// Refresh is RequestRefresh.
func (e *Engine) Refresh() { e.RequestRefresh() }

// Tick advances the countdown by one second, refreshing when it reaches zero.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining == 0 {
		e.refreshLocked(false)
		return
	}
	e.presenter.PublishCountdown(e.remaining)
}

// OnConnectivityChange records a reachability transition. Losing the network
// publishes the no-network sentinel but keeps the last known addresses until
// a lookup issued after the network returns lands.
//
// Regaining it resets the countdown and refreshes. Restorations closer than
// the debounce window to the previous connectivity refresh are coalesced into
// one refresh at the end of the window.
func (e *Engine) OnConnectivityChange(satisfied bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if satisfied == e.online {
		return
	}
	e.online = satisfied
	e.log.WithField("satisfied", satisfied).Info("connectivity changed")

	if !satisfied {
		e.offlineMark = e.lastIssued
		e.publishLocked()
		return
	}

	now := e.now()
	e.restoreMark = e.lastIssued
	e.remaining = e.interval
	e.nextFireAt = now.Add(time.Duration(e.interval) * time.Second)
	e.presenter.PublishCountdown(e.remaining)
	e.publishLocked()

	if wait := e.connDebounce - now.Sub(e.lastConnRefresh); !e.lastConnRefresh.IsZero() && wait > 0 {
		e.log.WithField("delay", wait).Debug("connectivity refresh debounced")
		e.scheduleConnRefreshLocked(wait)
		return
	}
	e.connRefreshLocked(now)
}

func (e *Engine) connRefreshLocked(now time.Time) {
	e.lastConnRefresh = now
	e.refreshLocked(true)
}

// scheduleConnRefreshLocked arms a single trailing refresh. Further
// restorations inside the window share it.
func (e *Engine) scheduleConnRefreshLocked(wait time.Duration) {
	if e.connTimer != nil || e.closed {
		return
	}
	e.connTimer = time.AfterFunc(wait, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.connTimer = nil
		if e.closed || !e.online {
			return
		}
		e.connRefreshLocked(e.now())
	})
}

// Wait blocks until every lookup started so far has been applied.
func (e *Engine) Wait() { e.wg.Wait() }

// State returns the current display state.
func (e *Engine) State() DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

// Remaining returns the seconds left until the next scheduled refresh.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// NextRefreshAt returns when the countdown will next reach zero.
func (e *Engine) NextRefreshAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextFireAt
}

func (e *Engine) refreshLocked(skipInFlight bool) {
	if e.closed {
		return
	}
	issued := e.now()
	if !issued.After(e.lastIssued) {
		issued = e.lastIssued.Add(time.Nanosecond)
	}
	e.lastIssued = issued

	e.remaining = e.interval
	e.nextFireAt = issued.Add(time.Duration(e.interval) * time.Second)
	e.presenter.PublishCountdown(e.remaining)

	for _, family := range Families {
		if skipInFlight && e.inFlight[family] > 0 {
			e.log.WithField("family", family.String()).Debug("lookup already in flight")
			continue
		}
		e.inFlight[family]++
		e.wg.Add(1)
		go e.fetch(e.ctx, family, issued)
	}
}

func (e *Engine) fetch(parent context.Context, family Family, issued time.Time) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(parent, e.fetchTimeout)
	res := e.fetcher.Fetch(ctx, family)
	cancel()

	res.Family = family
	res.FetchedAt = issued

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight[family]--
	if parent.Err() != nil {
		// shutting down
		return
	}
	e.applyLocked(res)
}

// applyLocked records res unless a result issued later for the same family
// has already landed.
func (e *Engine) applyLocked(res AddressResult) bool {
	log := e.log.WithField("family", res.Family.String())
	if cur, ok := e.latest[res.Family]; ok && res.FetchedAt.Before(cur.FetchedAt) {
		log.Debug("discarding stale result")
		return false
	}

	e.latest[res.Family] = res
	// A failure from the outage keeps the last good address on display.
	e.heldOver[res.Family] = res.Failed && (!e.online ||
		(res.FetchedAt.After(e.offlineMark) && !res.FetchedAt.After(e.restoreMark)))
	if res.Failed {
		log.WithFields(logrus.Fields{
			"kind":   res.Kind.String(),
			"reason": res.ErrorReason,
		}).Warn("address lookup failed")
	} else {
		e.lastGood[res.Family] = res
		log.WithField("ip", res.Value).Debug("address lookup succeeded")
	}
	e.publishLocked()
	return true
}

func (e *Engine) publishLocked() {
	e.display = e.buildLocked()
	e.presenter.Publish(e.display)
}

func (e *Engine) buildLocked() DisplayState {
	state := DisplayState{
		ShortForm: e.shortFormLocked(),
		FullIPv4:  e.fullLocked(IPv4),
		FullIPv6:  e.fullLocked(IPv6),
	}

	var errs []string
	for _, family := range Families {
		if res, ok := e.latest[family]; ok && res.Failed {
			errs = append(errs, family.String()+": "+res.ErrorReason)
		}
	}
	state.LastError = strings.Join(errs, "; ")
	return state
}

func (e *Engine) fullLocked(family Family) string {
	res, ok := e.latest[family]
	switch {
	case !ok:
		return PlaceholderLoading
	case !res.Failed:
		return res.Value
	}
	if good, ok := e.lastGood[family]; ok && (!e.online || e.heldOver[family]) {
		return good.Value
	}
	return ErrorMarker
}

// shortFormLocked prefers a family whose latest lookup succeeded, IPv6 first.
// Failing that it falls back to the most recent good value of either family.
func (e *Engine) shortFormLocked() string {
	if !e.online {
		return NoNetwork
	}
	for _, family := range []Family{IPv6, IPv4} {
		if res, ok := e.latest[family]; ok && !res.Failed {
			return FormatAddress(res.Value)
		}
	}

	var best *AddressResult
	for _, family := range []Family{IPv6, IPv4} {
		if good, ok := e.lastGood[family]; ok && (best == nil || good.FetchedAt.After(best.FetchedAt)) {
			best = &good
		}
	}
	if best != nil {
		return FormatAddress(best.Value)
	}
	if len(e.latest) > 0 {
		return ErrorMarker
	}
	return PlaceholderLoading
}
