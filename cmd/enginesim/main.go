package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danmuck/sourcesync/internal/config"
	"github.com/danmuck/sourcesync/internal/enginesim"
	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/danmuck/sourcesync/internal/statetree"
	"github.com/spf13/cobra"
)

type options struct {
	ConfigPath string
	ListenAddr string
	OSC        bool
	Sounds     int
	Animate    time.Duration
}

func main() {
	logs.ConfigureRuntime()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "enginesim: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "enginesim",
		Short:         "Run a simulated Source engine with demo state",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := enginesim.DefaultConfig()
			if opts.ConfigPath != "" {
				loaded, err := config.LoadEngineConfig(opts.ConfigPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = opts.ListenAddr
			}
			if cmd.Flags().Changed("osc") {
				cfg.OSC = opts.OSC
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			eng := enginesim.New(cfg, enginesim.DemoState(opts.Sounds))
			if opts.Animate > 0 {
				go animate(ctx, eng, opts.Animate)
			}
			return eng.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "engine config file (TOML)")
	cmd.Flags().StringVar(&opts.ListenAddr, "listen", "", "WebSocket listen address, overrides the config file")
	cmd.Flags().BoolVar(&opts.OSC, "osc", false, "enable the OSC side")
	cmd.Flags().IntVar(&opts.Sounds, "sounds", 4, "number of demo sounds")
	cmd.Flags().DurationVar(&opts.Animate, "animate", 100*time.Millisecond, "demo animation step, 0 disables")
	return cmd
}

// animate drives meters and voices every step and nudges one sound's gain
// about once a second so front-ends see both volatile and tree traffic.
func animate(ctx context.Context, eng *enginesim.Engine, step time.Duration) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	start := time.Now()
	var lastNudge time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			phase := now.Sub(start).Seconds()
			uuids := soundUUIDs(eng)
			eng.SetVolatile(demoVolatile(phase, uuids, rng))
			if len(uuids) > 0 && now.Sub(lastNudge) >= time.Second {
				lastNudge = now
				gain := strconv.FormatFloat(-12+12*math.Sin(phase/4), 'f', 2, 64)
				target := uuids[rng.Intn(len(uuids))]
				if _, err := eng.SetProperty("SOUND", target, "gain", gain); err != nil {
					logs.Debugf("enginesim.animate set gain uuid=%q err=%v", target, err)
				}
			}
		}
	}
}

func demoVolatile(phase float64, uuids []string, rng *rand.Rand) protocol.VolatileRecord {
	rec := protocol.VolatileRecord{
		MIDIReceived: rng.Intn(4) == 0,
		LastCC:       -1,
		LastNote:     48 + rng.Intn(24),
		AudioLevels: []float64{
			0.5 + 0.5*math.Sin(phase*3),
			0.5 + 0.5*math.Cos(phase*3),
		},
	}
	for _, id := range uuids {
		active := rng.Intn(3) == 0
		rec.VoiceActivations = append(rec.VoiceActivations, active)
		if active {
			rec.VoiceSoundIdxs = append(rec.VoiceSoundIdxs, id)
			rec.VoicePlayPositions = append(rec.VoicePlayPositions, math.Mod(phase, 1))
		} else {
			rec.VoiceSoundIdxs = append(rec.VoiceSoundIdxs, "-1")
			rec.VoicePlayPositions = append(rec.VoicePlayPositions, -1)
		}
	}
	return rec
}

func soundUUIDs(eng *enginesim.Engine) []string {
	tree, err := statetree.NewTreeFromSnapshot(eng.Snapshot())
	if err != nil {
		return nil
	}
	var out []string
	for _, id := range tree.FindAll(tree.Root(), "sound") {
		if v, ok := tree.Attr(id, "uuid"); ok {
			out = append(out, v)
		}
	}
	return out
}
