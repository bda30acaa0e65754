package main

import (
	"fmt"
	"strings"
	"time"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/spf13/cobra"
)

func newSendCommand(root *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send ADDRESS [VALUES...]",
		Short: "Send one command to the engine once it is reachable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !strings.HasPrefix(address, "/") {
				return fmt.Errorf("address must start with '/': %q", address)
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			client, stop, err := startClient(ctx, cfg.Sync, synchronizer.Hooks{})
			if err != nil {
				return err
			}
			defer stop()

			if err := waitUntil(ctx, timeout, client.EngineReachable); err != nil {
				return fmt.Errorf("engine unreachable after %s: %w", timeout, err)
			}
			values := parseValues(args[1:])
			if err := client.SendCommand(address, values...); err != nil {
				return err
			}
			logs.Infof("sourcectl.send address=%q values=%v", address, values)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the engine")
	return cmd
}
