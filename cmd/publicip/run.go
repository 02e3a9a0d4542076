package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jsirianni/publicip/cloudflare"
	"github.com/jsirianni/publicip/internal/connectivity"
	"github.com/jsirianni/publicip/internal/console"
	"github.com/jsirianni/publicip/internal/dnssync"
	"github.com/jsirianni/publicip/publicip"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the address line up to date until interrupted (SIGHUP refreshes now)",
		Args:  cobra.NoArgs,
		RunE:  runLoop,
	}
	cmd.Flags().String("probe-address", connectivity.DefaultProbeAddress, "host:port dialed to detect connectivity")
	cmd.Flags().Duration("probe-interval", connectivity.DefaultPollInterval, "connectivity probe interval")
	cmd.Flags().Duration("settle", connectivity.DefaultSettle, "time a connectivity change must hold before it counts")
	return cmd
}

func runLoop(cmd *cobra.Command, _ []string) error {
	cfg, log, fetcher, err := setup(cmd)
	if err != nil {
		return err
	}

	presenter := console.NewPresenter(cmd.OutOrStdout(), log)
	var sink *dnssync.Sink
	var out publicip.Presenter = presenter
	if cfg.DNS.Enabled() {
		client, err := cloudflare.New(cloudflare.WithAPIToken(cfg.DNS.Token), cloudflare.WithTimeout(cfg.Timeout))
		if err != nil {
			return err
		}
		sink = dnssync.NewSink(presenter, client, dnssync.Target{
			Zone:    cfg.DNS.Zone,
			Name:    cfg.DNS.Name,
			TTL:     cfg.DNS.TTL,
			Proxied: cfg.DNS.Proxied,
		}, log)
		out = sink
	}

	engine := publicip.NewEngine(fetcher, out,
		publicip.WithInterval(cfg.IntervalSeconds()),
		publicip.WithFetchTimeout(cfg.Timeout),
		publicip.WithLogger(log),
	)
	watcher := connectivity.NewWatcher(engine.OnConnectivityChange, cfg.Settle, log)
	probe := connectivity.DialProbe{Address: cfg.ProbeAddress, Timeout: cfg.Timeout}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("interval", cfg.Interval).Info("starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return connectivity.Poll(gctx, probe, cfg.ProbeInterval, watcher) })
	g.Go(func() error { return refreshOnHangup(gctx, engine) })
	if sink != nil {
		g.Go(func() error { return sink.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.WithField("state", console.Line(presenter.State())).Info("stopped")
	return nil
}

// refreshOnHangup triggers a manual refresh for every SIGHUP.
func refreshOnHangup(ctx context.Context, engine *publicip.Engine) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			engine.RequestRefresh()
		}
	}
}

// runCycle performs one refresh and waits for both families.
func runCycle(ctx context.Context, engine *publicip.Engine, timeout time.Duration) (publicip.DisplayState, error) {
	done := make(chan struct{})
	engine.RequestRefresh()
	go func() {
		engine.Wait()
		close(done)
	}()

	select {
	case <-done:
		return engine.State(), nil
	case <-time.After(timeout + time.Second):
		return engine.State(), errors.New("timed out waiting for lookups")
	case <-ctx.Done():
		return engine.State(), ctx.Err()
	}
}
