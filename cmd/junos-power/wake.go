package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andyjsharp/junos-power/internal/config"
	"github.com/andyjsharp/junos-power/internal/services/wake"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Wake the device via Wake-on-LAN",
	Long: `Send a Wake-on-LAN magic packet to the device configured in the
wake section, then optionally poll its management port until it answers.`,
	RunE: runWake,
}

func runWake(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	if cfg.Wake == nil {
		log.Error().Msg("wake section is not configured")
		return fmt.Errorf("wake is not configured in %s", configFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	wakeSvc := wake.New(log.Logger)
	result, err := wakeSvc.Wake(ctx, *cfg.Wake)
	if err != nil {
		log.Error().Err(err).Msg("wake failed")
		return err
	}
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("wake failed")
		return result.Error
	}

	if !result.TargetReady && cfg.Wake.PollAddr != "" {
		err := fmt.Errorf("device did not become ready after WOL")
		log.Error().Err(err).Msg("wake failed")
		return err
	}

	log.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("target_ready", result.TargetReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("wake completed")

	return nil
}
