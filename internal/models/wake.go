package models

import "time"

// WakeConfig holds Wake-on-LAN configuration for bringing a device back up.
type WakeConfig struct {
	MACAddress    string
	BroadcastIP   string
	PollAddr      string        // tcp address to poll until the device answers
	Timeout       time.Duration // max time to wait for the device
	PollInterval  time.Duration // how often to attempt a connection
	StabilizeWait time.Duration // wait after the device first answers
}

// WakeResult holds the result of a Wake-on-LAN operation.
type WakeResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
