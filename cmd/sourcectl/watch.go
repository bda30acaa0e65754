package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/observability"
	"github.com/danmuck/sourcesync/internal/replica"
	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	MetricsAddr string
	Interval    time.Duration
}

func newWatchCommand(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the synchronizer and log state changes and meters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = opts.MetricsAddr
			}
			return runWatch(cmd.Context(), cfg.Sync, cfg.MetricsAddr, opts.Interval)
		},
	}
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "meter log interval")
	return cmd
}

func runWatch(parent context.Context, cfg synchronizer.Config, metricsAddr string, interval time.Duration) error {
	ctx, cancel := signalContext()
	defer cancel()
	stopParent := context.AfterFunc(parent, cancel)
	defer stopParent()

	hooks := synchronizer.Hooks{
		OnEngineStarted: func() { logs.Infof("sourcectl.watch engine restarted") },
		OnStateChange: func(from, to synchronizer.State) {
			logs.Infof("sourcectl.watch state from=%s to=%s", from, to)
		},
	}
	client, stop, err := startClient(ctx, cfg, hooks)
	if err != nil {
		return err
	}
	defer stop()

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           observability.RequestLogger(log.Logger, "sourcectl", watchMux(client)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf("sourcectl.watch metrics addr=%q err=%v", metricsAddr, err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logs.Infof("sourcectl.watch metrics addr=%q", metricsAddr)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logs.Infof("sourcectl.watch state=%s reachable=%t sounds=%v voices=%v meter_l=%v meter_r=%v",
				client.State(),
				client.EngineReachable(),
				client.GetProperty(replica.NumSounds, 0),
				client.GetProperty(replica.NumActiveVoices, 0),
				client.GetProperty(replica.MeterL, 0.0),
				client.GetProperty(replica.MeterR, 0.0),
			)
		}
	}
}

type healthReport struct {
	Status    string `json:"status"`
	State     string `json:"state"`
	Reachable bool   `json:"reachable"`
	HasState  bool   `json:"has_state"`
}

func watchMux(client *synchronizer.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{
			Status:    "ok",
			State:     client.State().String(),
			Reachable: client.EngineReachable(),
			HasState:  client.HasState(),
		}
		status := http.StatusOK
		if !report.HasState {
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
	return mux
}
