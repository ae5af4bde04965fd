// ABOUTME: Run modes for the recorder application
// ABOUTME: Headless timed recording, interactive TUI and the HTTP control server
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/resonate-recorder/internal/server"
	"github.com/Resonate-Protocol/resonate-recorder/internal/ui"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

// pollInterval is how often run loops look for a session that ended on its own
const pollInterval = 100 * time.Millisecond

// ServerName returns the configured control server name, or
// <hostname>-resonate-recorder
func ServerName(configured string) string {
	if configured != "" {
		return configured
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-resonate-recorder", hostname)
}

// RecordFor records until duration elapses, ctx is cancelled or the
// session ends on its own. A zero duration records until cancellation.
func (a *App) RecordFor(ctx context.Context, duration time.Duration) (*artifact.Artifact, error) {
	if err := a.recorder.Start(ctx); err != nil {
		return nil, err
	}
	if a.recorder.State() != recorder.StateCapturing {
		return nil, fmt.Errorf("recorder did not start (state %s)", a.recorder.State())
	}

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("recording interrupted")
			return a.recorder.Stop()
		case <-deadline:
			return a.recorder.Stop()
		case <-ticker.C:
			if a.recorder.State() == recorder.StateIdle {
				// Capture failed and the session already stopped itself
				return a.recorder.LastArtifact(), errors.New("recording ended early after a capture failure")
			}
		}
	}
}

// RunTUI runs the interactive recorder until the user quits or ctx ends
func (a *App) RunTUI(ctx context.Context) error {
	control := ui.NewControl()
	prog, err := ui.Run(control)
	if err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	a.AddStatusSink(ui.StatusSink(prog))
	a.OnArtifact(func(art *artifact.Artifact, path string) {
		prog.Send(ui.StatusMsg{Artifact: art, SavedPath: path})
	})

	progDone := make(chan error, 1)
	go func() {
		_, err := prog.Run()
		progDone <- err
	}()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.statsUpdateLoop(loopCtx, func(msg ui.StatusMsg) { prog.Send(msg) })

	var tuiErr error
loop:
	for {
		select {
		case cmd := <-control.Commands:
			a.logger.Debug("tui command", zap.Stringer("command", cmd))
			switch cmd {
			case ui.CommandStart:
				// Device access may block; keep the command loop responsive
				go func() {
					err := a.recorder.Start(loopCtx)
					switch {
					case errors.Is(err, recorder.ErrClosed):
						a.logger.Debug("start abandoned on shutdown")
					case err != nil:
						a.logger.Warn("start failed", zap.Error(err))
					}
				}()
			case ui.CommandStop:
				go func() {
					if _, err := a.recorder.Stop(); err != nil {
						a.logger.Warn("stop finished with errors", zap.Error(err))
					}
				}()
			case ui.CommandQuit:
				break loop
			}
		case tuiErr = <-progDone:
			progDone = nil
			break loop
		case <-ctx.Done():
			a.logger.Info("shutdown signal received")
			break loop
		}
	}

	closeErr := a.Close()
	prog.Quit()
	if progDone != nil {
		tuiErr = <-progDone
	}

	if tuiErr != nil {
		return fmt.Errorf("TUI error: %w", tuiErr)
	}
	return closeErr
}

// statsUpdateLoop periodically pushes recorder stats to the TUI
func (a *App) statsUpdateLoop(ctx context.Context, update func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update(ui.StatsMsg(a.recorder.Stats(), a.recorder.State()))
		}
	}
}

// Serve runs the HTTP control server until ctx ends
func (a *App) Serve(ctx context.Context) error {
	cfg := a.config.Server
	srv := server.New(server.Config{
		Address:    cfg.Address,
		Port:       cfg.Port,
		Name:       ServerName(cfg.Name),
		EnableMDNS: cfg.EnableMDNS,
	}, a.recorder, nil, a.metrics, a.logger)

	a.AddStatusSink(srv.Hub())
	a.OnArtifact(func(art *artifact.Artifact, _ string) {
		srv.Hub().ArtifactReady(server.NewArtifactInfo(art))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		srv.Stop()
		return a.Close()
	})
	return g.Wait()
}
