// ABOUTME: serve command
// ABOUTME: Runs the HTTP control server with mDNS advertisement
package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control server",
	Long:  `Expose start, stop, status and download endpoints over HTTP, with a websocket status feed and Prometheus metrics.`,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("address", "", "Listen address")
	f.IntP("port", "p", 0, "Listen port")
	f.String("name", "", "Server friendly name (default: hostname-resonate-recorder)")
	f.Bool("no-mdns", false, "Disable mDNS advertisement")
	f.String("backend", "", "Capture backend (malgo, portaudio, tone)")
	f.String("device", "", "Input device name (substring match)")
	f.String("codec", "", "Software codec (opus, wav)")
	f.String("strategy", "", "Encoding strategy (auto, delegated, software)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.address":    "address",
		"server.port":       "port",
		"server.name":       "name",
		"capture.backend":   "backend",
		"capture.device":    "device",
		"recorder.codec":    "codec",
		"recorder.strategy": "strategy",
	})
	if err != nil {
		return err
	}
	if noMDNS, _ := cmd.Flags().GetBool("no-mdns"); noMDNS {
		cfg.Server.EnableMDNS = false
	}

	logger, err := newLogger(cfg, true)
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

	logger.Info("starting Resonate Recorder control server",
		zap.String("name", app.ServerName(cfg.Server.Name)),
		zap.String("addr", cfg.Server.ListenAddr()),
		zap.String("log_file", cfg.Logging.File))

	if err := a.Serve(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
