package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsirianni/publicip/internal/console"
	"github.com/jsirianni/publicip/publicip"
)

type onceOutput struct {
	Short string `json:"short"`
	IPv4  string `json:"ipv4"`
	IPv6  string `json:"ipv6"`
	Error string `json:"error,omitempty"`
}

func newOnceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Look up both addresses once and print them",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	cmd.Flags().Bool("json", false, "print JSON instead of a status line")
	return cmd
}

func runOnce(cmd *cobra.Command, _ []string) error {
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

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(onceOutput{
			Short: state.ShortForm,
			IPv4:  state.FullIPv4,
			IPv6:  state.FullIPv6,
			Error: state.LastError,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), console.Line(state))
	return nil
}
