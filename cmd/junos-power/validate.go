package main

import (
	"fmt"
	"os"

	"github.com/andyjsharp/junos-power/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without touching any device.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Device:")
	fmt.Printf("  Host: %s\n", cfg.Device.Host)
	fmt.Printf("  Port: %d\n", cfg.Device.Port)
	fmt.Printf("  User: %s\n", cfg.Device.User)
	mode := cfg.Device.Mode
	if mode == "" {
		mode = "ssh"
	}
	fmt.Printf("  Mode: %s\n", mode)
	if cfg.Device.Password != "" {
		fmt.Printf("  Auth: password (configured)\n")
	} else {
		fmt.Printf("  Auth: key (%s)\n", cfg.Device.KeyPath)
	}
	fmt.Println()
	fmt.Println("Action:")
	if cfg.Action.Reboot {
		fmt.Printf("  Operation: reboot\n")
	} else {
		fmt.Printf("  Operation: power-off\n")
	}
	switch {
	case cfg.Action.At != "":
		fmt.Printf("  Schedule: at %s\n", cfg.Action.At)
	case cfg.Action.InMin > 0:
		fmt.Printf("  Schedule: in %d minute(s)\n", cfg.Action.InMin)
	default:
		fmt.Printf("  Schedule: immediate\n")
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.Wake != nil)
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.Wake != nil {
		fmt.Println()
		fmt.Println("Wake Configuration:")
		fmt.Printf("  MAC Address: %s\n", cfg.Wake.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.Wake.BroadcastIP)
		if cfg.Wake.PollAddr != "" {
			fmt.Printf("  Poll Address: %s\n", cfg.Wake.PollAddr)
		}
	}

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}
