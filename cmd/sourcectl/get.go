package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/spf13/cobra"
)

type getOptions struct {
	Sound   int
	Timeout time.Duration
}

func newGetCommand(root *rootOptions) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get NAME [NAME...]",
		Short: "Wait for engine state and print properties as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := waitUntil(ctx, opts.Timeout, client.HasState); err != nil {
				return fmt.Errorf("no engine state after %s: %w", opts.Timeout, err)
			}
			out := make(map[string]any, len(args))
			for _, name := range args {
				if opts.Sound >= 0 {
					out[name] = client.GetSoundProperty(opts.Sound, name, nil)
				} else {
					out[name] = client.GetProperty(name, nil)
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&opts.Sound, "sound", -1, "sound index within the loaded preset")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "how long to wait for engine state")
	return cmd
}
