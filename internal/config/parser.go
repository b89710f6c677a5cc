// Package config provides configuration file parsing and pre-flight
// validation. Nothing in this package touches the network.
package config

import (
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/andyjsharp/junos-power/internal/models"
	"github.com/spf13/viper"
)

// Validation errors surfaced before any connection attempt.
var (
	ErrConfirmation    = fmt.Errorf("action.confirm must equal %q to proceed", models.ConfirmToken)
	ErrAtWithoutReboot = fmt.Errorf("action.at requires action.reboot to be true")
	ErrInvalidMode     = fmt.Errorf("device.mode must be one of: telnet, serial (or unset for ssh)")
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.PowerConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.PowerConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.PowerConfig, error) {
	cfg := &models.PowerConfig{}

	// Parse device config (required).
	cfg.Device = models.DeviceConfig{
		Host:     p.v.GetString("device.host"),
		User:     p.v.GetString("device.user"),
		Password: p.expandEnv(p.v.GetString("device.password")),
		KeyPath:  p.expandEnv(p.v.GetString("device.key_path")),
		Port:     p.v.GetInt("device.port"),
		Mode:     p.v.GetString("device.mode"),
	}

	if cfg.Device.Host == "" {
		return nil, fmt.Errorf("device.host is required")
	}
	if cfg.Device.User == "" {
		cfg.Device.User = currentUser()
	}
	if cfg.Device.Port == 0 {
		cfg.Device.Port = 830
	}

	// Parse action config (required).
	cfg.Action = models.ActionConfig{
		Confirm: p.v.GetString("action.confirm"),
		Reboot:  p.v.GetBool("action.reboot"),
		InMin:   p.v.GetInt("action.in_min"),
		At:      p.v.GetString("action.at"),
	}

	// Parse optional wake config.
	if p.v.IsSet("wake") {
		cfg.Wake = &models.WakeConfig{
			MACAddress:    p.v.GetString("wake.mac_address"),
			BroadcastIP:   p.v.GetString("wake.broadcast_ip"),
			PollAddr:      p.v.GetString("wake.poll_addr"),
			Timeout:       p.v.GetDuration("wake.timeout"),
			PollInterval:  p.v.GetDuration("wake.poll_interval"),
			StabilizeWait: p.v.GetDuration("wake.stabilize_wait"),
		}

		if cfg.Wake.MACAddress == "" {
			return nil, fmt.Errorf("wake.mac_address is required when wake is configured")
		}

		// Set defaults.
		if cfg.Wake.BroadcastIP == "" {
			cfg.Wake.BroadcastIP = "255.255.255.255"
		}
		if cfg.Wake.Timeout == 0 {
			cfg.Wake.Timeout = 5 * time.Minute
		}
		if cfg.Wake.PollInterval == 0 {
			cfg.Wake.PollInterval = 10 * time.Second
		}
		if cfg.Wake.StabilizeWait == 0 {
			cfg.Wake.StabilizeWait = 10 * time.Second
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// currentUser resolves the login name of the invoking user, falling back
// to $USER when the lookup fails (static binaries without cgo).
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// Validate enforces the pre-flight invariants on a loaded configuration.
// Order matters: the safety confirmation is checked before anything else.
func Validate(cfg *models.PowerConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Action.Confirm != models.ConfirmToken {
		return ErrConfirmation
	}

	if cfg.Action.At != "" && !cfg.Action.Reboot {
		return ErrAtWithoutReboot
	}

	switch cfg.Device.Mode {
	case models.ModeSSH, models.ModeTelnet, models.ModeSerial:
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidMode, cfg.Device.Mode)
	}

	return nil
}
