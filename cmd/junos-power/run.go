package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andyjsharp/junos-power/internal/config"
	"github.com/andyjsharp/junos-power/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured power action",
	Long: `Execute the configured power action against the device:
1. Validate the safety confirmation and argument dependencies
2. Connect over SSH or telnet
3. Issue "request system power-off" or "request system reboot",
   immediately, after a delay, or (reboot) at a scheduled time
4. Send a Telegram notification (if configured)

Nothing is sent to the device unless validation passes.`,
	RunE: runAction,
}

func runAction(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	// Validate configuration; nothing touches the network before this passes.
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("host", cfg.Device.Host).
		Bool("reboot", cfg.Action.Reboot).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	// Run the action
	runnerSvc := runner.New(log.Logger)
	result, err := runnerSvc.Run(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Str("host", cfg.Device.Host).Msg("power action failed")
		return err
	}

	log.Info().
		Bool("changed", result.Changed).
		Bool("reboot", result.Reboot).
		Str("msg", result.Msg).
		Msg("power action completed successfully")
	return nil
}
