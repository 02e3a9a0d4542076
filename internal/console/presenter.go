// Package console renders engine output on a terminal and copies addresses
// to the system clipboard.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"

	"github.com/jsirianni/publicip/publicip"
)

// Presenter writes one line per display change to out and logs the countdown
// at debug level.
type Presenter struct {
	out io.Writer
	log logrus.FieldLogger

	mu    sync.Mutex
	state publicip.DisplayState
	last  string
}

// NewPresenter returns a Presenter writing to out.
func NewPresenter(out io.Writer, log logrus.FieldLogger) *Presenter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Presenter{out: out, log: log}
}

// Publish implements publicip.Presenter. Identical consecutive lines are
// printed once.
func (p *Presenter) Publish(s publicip.DisplayState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s

	line := Line(s)
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.out, line)
	if s.LastError != "" {
		p.log.WithField("error", s.LastError).Debug("display published with errors")
	}
}

// PublishCountdown implements publicip.Presenter.
func (p *Presenter) PublishCountdown(remaining int) {
	p.log.WithField("remaining", Countdown(remaining)).Trace("next refresh")
}

// State returns the most recently published state.
func (p *Presenter) State() publicip.DisplayState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Line renders a display state as a single status line.
func Line(s publicip.DisplayState) string {
	return fmt.Sprintf("%s  (ipv4 %s, ipv6 %s)", s.ShortForm, s.FullIPv4, s.FullIPv6)
}

// Countdown renders seconds as m:ss.
func Countdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Writer stores text somewhere the user can paste it from.
type Writer interface {
	WriteAll(text string) error
}

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

// WriteAll implements Writer.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unsupported on this system")
	}
	return clipboard.WriteAll(text)
}

// Copy writes the full address for family to w. A nil family copies the
// preferred address. It fails when no real address is held.
func Copy(w Writer, s publicip.DisplayState, family *publicip.Family) (string, error) {
	var (
		addr string
		ok   bool
	)
	if family == nil {
		addr, ok = s.Preferred()
	} else {
		addr, ok = s.Full(*family)
	}
	if !ok {
		return "", fmt.Errorf("no address available to copy")
	}
	if err := w.WriteAll(addr); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return addr, nil
}
