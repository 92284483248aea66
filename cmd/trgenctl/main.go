// Trgenctl drives a trigger generator from the command line.
//
// It connects to the device, runs one operation and disconnects. The emulate
// command serves an emulated device instead, for trying the other commands
// without hardware.
//
// Usage:
//
//	trgenctl [command] [flags]
//
// See 'trgenctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cosanlab/go-trgen/logger"
	"github.com/cosanlab/go-trgen/trgen"
)

// Global flags
var (
	configPath string
	hostFlag   string
	portFlag   int
	logLevel   string
	logBackend string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trgenctl",
	Short: "Trigger generator control utility",
	Long: `A command line client for the trigger generator.

Connects to the device over TCP, programs line memories and starts or stops
pulses. Settings come from an optional YAML file (--config); flags override it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Device address (overrides config)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Device TCP port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logBackend, "log-backend", "", "Log backend: slog or zap")
}

// resolveConfig loads the configuration file and applies the global flags.
func resolveConfig() (fileConfig, logger.Logger, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return cfg, nil, err
	}

	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logBackend != "" {
		cfg.Log.Backend = logBackend
	}

	l, err := cfg.newLogger()
	if err != nil {
		return cfg, nil, err
	}

	return cfg, l, nil
}

// withClient connects a client, runs fn and disconnects.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *trgen.Client) error) error {
	cfg, l, err := resolveConfig()
	if err != nil {
		return err
	}

	connCfg, err := cfg.connectionConfig(l)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := trgen.NewClient(ctx, connCfg)
	if err != nil {
		return err
	}

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", connCfg.Addr(), err)
	}
	defer func() {
		if err := client.Disconnect(); err != nil {
			l.Warn("disconnect failed", "error", err)
		}
	}()

	return fn(ctx, client)
}
