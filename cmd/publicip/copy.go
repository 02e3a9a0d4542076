package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsirianni/publicip/internal/console"
	"github.com/jsirianni/publicip/publicip"
)

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Look up the public address and copy it to the clipboard",
		Args:  cobra.NoArgs,
		RunE:  runCopy,
	}
	cmd.Flags().String("family", "", "ipv4 or ipv6 (default: ipv6 when available, else ipv4)")
	return cmd
}

func runCopy(cmd *cobra.Command, _ []string) error {
	var family *publicip.Family
	if raw, _ := cmd.Flags().GetString("family"); raw != "" {
		f, err := publicip.ParseFamily(raw)
		if err != nil {
			return err
		}
		family = &f
	}

	cfg, log, fetcher, err := setup(cmd)
	if err != nil {
		return err
	}

	engine := publicip.NewEngine(fetcher, console.NewPresenter(cmd.ErrOrStderr(), log),
		publicip.WithFetchTimeout(cfg.Timeout),
		publicip.WithLogger(log),
	)
	state, err := runCycle(cmd.Context(), engine, cfg.Timeout)
	if err != nil {
		return err
	}

	addr, err := console.Copy(console.SystemClipboard{}, state, family)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Copied %s\n", addr)
	return nil
}
