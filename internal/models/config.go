// Package models contains the data structures used throughout junos-power.
package models

// PowerConfig holds the complete configuration for a power action run.
type PowerConfig struct {
	Device   DeviceConfig
	Action   ActionConfig
	Wake     *WakeConfig     // nil if not configured
	Telegram *TelegramConfig // nil if not configured
}
