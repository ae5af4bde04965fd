// ABOUTME: record command
// ABOUTME: Interactive TUI recording, or a timed headless recording with --no-tui
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/internal/app"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the input device",
	Long: `Record from the input device.

With the TUI, press r to start, s to stop and q to quit. With --no-tui the
recording starts immediately and runs for --duration or until Ctrl-C.`,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.Duration("duration", 0, "Stop after this long (headless mode; 0 records until Ctrl-C)")
	f.Bool("no-tui", false, "Disable TUI, record immediately with streaming logs")
	f.String("codec", "", "Software codec (opus, wav)")
	f.String("strategy", "", "Encoding strategy (auto, delegated, software)")
	f.Int("channels", 0, "Output channels (1, 2; 0 follows the device)")
	f.String("backend", "", "Capture backend (malgo, portaudio, tone)")
	f.String("device", "", "Input device name (substring match)")
	f.Int("sample-rate", 0, "Capture sample rate")
	f.String("backpressure", "", "Back-pressure policy (unbounded, drop-oldest)")
	f.Int("queue-capacity", 0, "Pending block capacity for drop-oldest")
	f.String("out", "", "Directory recordings are saved to")
	f.Bool("ffmpeg", false, "Enable the ffmpeg platform recorder")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"recorder.codec":          "codec",
		"recorder.strategy":       "strategy",
		"recorder.channels":       "channels",
		"recorder.backpressure":   "backpressure",
		"recorder.queue_capacity": "queue-capacity",
		"capture.backend":         "backend",
		"capture.device":          "device",
		"capture.sample_rate":     "sample-rate",
		"export.dir":              "out",
		"platform.enabled":        "ffmpeg",
	})
	if err != nil {
		return err
	}

	noTUI, _ := cmd.Flags().GetBool("no-tui")
	duration, _ := cmd.Flags().GetDuration("duration")

	logger, err := newLogger(cfg, noTUI)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, nil, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !noTUI {
		return a.RunTUI(ctx)
	}

	logger.Info("recording",
		zap.String("backend", cfg.Capture.Backend),
		zap.String("strategy", cfg.Recorder.Strategy),
		zap.Duration("duration", duration))

	art, err := a.RecordFor(ctx, duration)
	if art != nil {
		fmt.Printf("Recorded %s (%s, %s)\n", art.Filename(), art.MIMEType(), art.HumanSize())
	}
	return err
}
