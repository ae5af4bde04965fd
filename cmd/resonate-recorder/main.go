// ABOUTME: Entry point for the Resonate recorder
// ABOUTME: Defines the root command, shared flags and config/logger setup
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/internal/config"
	"github.com/Resonate-Protocol/resonate-recorder/internal/logging"
	"github.com/Resonate-Protocol/resonate-recorder/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "resonate-recorder",
	Short:         "Record audio from an input device",
	Long:          `Resonate Recorder captures live audio, encodes it as it arrives and produces a playable recording.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file path")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies the
// flags in bindings (config key -> flag name) that were set on cmd
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	v, err := config.NewViper(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	bindings["logging.level"] = "log-level"
	bindings["logging.file"] = "log-file"
	for key, name := range bindings {
		if err := bindFlag(v, key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadViper(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// bindFlag overrides key only when the flag was given explicitly, so
// flag defaults never mask file or environment values
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("unknown flag for %s", key)
	}
	if !flag.Changed {
		return nil
	}
	return v.BindPFlag(key, flag)
}

// newLogger builds the process logger. console is false in TUI mode so
// log lines go to the file only.
func newLogger(cfg *config.Config, console bool) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
