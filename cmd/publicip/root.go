package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jsirianni/publicip/internal/config"
	"github.com/jsirianni/publicip/internal/logging"
	"github.com/jsirianni/publicip/publicip"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "publicip",
		Short:         "Show this host's public IPv4 and IPv6 addresses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.config/publicip/config.yml)")
	pf.Duration("interval", 5*time.Minute, "refresh interval")
	pf.String("ipv4-url", publicip.DefaultIPv4URL, "IPv4 lookup endpoint")
	pf.String("ipv6-url", publicip.DefaultIPv6URL, "IPv6 lookup endpoint")
	pf.Duration("timeout", 10*time.Second, "per-lookup timeout")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newOnceCmd(), newCopyCmd(), newVersionCmd())
	return root
}

// setup loads configuration and builds the logger and fetcher every command
// shares.
func setup(cmd *cobra.Command) (config.Config, *logrus.Logger, *publicip.Fetcher, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return cfg, nil, nil, err
	}

	log := logging.Setup(cfg.LogLevel)
	if cfg.ConfigPath != "" {
		log.WithField("path", cfg.ConfigPath).Debug("loaded config")
	}

	fetcher, err := publicip.NewFetcher(
		publicip.WithIPv4URL(cfg.IPv4URL),
		publicip.WithIPv6URL(cfg.IPv6URL),
		publicip.WithTimeout(cfg.Timeout),
		publicip.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("create fetcher: %w", err)
	}
	return cfg, log, fetcher, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "publicip %s (%s)\n", version, commit)
			fmt.Fprintln(cmd.OutOrStdout(), "Displays your current public IP address.")
		},
	}
}
