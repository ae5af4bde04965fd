// ABOUTME: play command
// ABOUTME: Plays a saved WAV or Ogg Opus recording through the default output
package main

import (
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-recorder/internal/export"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/output"
)

var playCmd = &cobra.Command{
	Use:   "play [recording]",
	Short: "Play a saved recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]string{})
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		volume, _ := cmd.Flags().GetInt("volume")
		out := output.NewOto(logger)
		out.SetVolume(volume)

		ctx, cancel := signalContext()
		defer cancel()

		return export.NewPlayer(out, logger).PlayFile(ctx, args[0])
	},
}

func init() {
	playCmd.Flags().Int("volume", 100, "Playback volume (0-100)")
}
