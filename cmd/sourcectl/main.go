package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/sourcesync/internal/config"
	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
	Host       string
	Mode       string
}

func main() {
	logs.ConfigureRuntime()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sourcectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "sourcectl",
		Short:         "Mirror and drive a Source sampler engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "client config file (TOML)")
	cmd.PersistentFlags().StringVar(&opts.Host, "host", "", "engine host, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.Mode, "mode", "", "transport mode (websocket|osc), overrides the config file")

	cmd.AddCommand(
		newWatchCommand(opts),
		newGetCommand(opts),
		newSendCommand(opts),
		newConfigCommand(),
	)
	return cmd
}

func (o *rootOptions) load() (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if o.ConfigPath != "" {
		loaded, err := config.LoadClientConfig(o.ConfigPath)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg = loaded
	}
	if o.Host != "" {
		cfg.Sync.Transport.Host = o.Host
	}
	if o.Mode != "" {
		cfg.Sync.Transport.Mode = transportMode(o.Mode)
	}
	cfg.Sync = cfg.Sync.WithDefaults()
	if err := cfg.Sync.Transport.Validate(); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startClient runs a client in the background. The returned stop cancels it
// and waits for Run to return.
func startClient(ctx context.Context, cfg synchronizer.Config, hooks synchronizer.Hooks) (*synchronizer.Client, func(), error) {
	client, err := synchronizer.NewClient(cfg, hooks)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.Run(ctx); err != nil {
			logs.Errorf("sourcectl client run err=%v", err)
		}
	}()
	stop := func() {
		cancel()
		<-done
	}
	return client, stop, nil
}

func waitUntil(ctx context.Context, timeout time.Duration, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
