package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a power action notification.
type TelegramMessage struct {
	Success   bool
	Host      string
	Reboot    bool
	At        string // scheduled time, if any
	InMin     int    // delay in minutes, if any
	StartTime time.Time
	Duration  time.Duration

	// Device output (if the command ran).
	DeviceMsg string

	// Error info (if failed).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
