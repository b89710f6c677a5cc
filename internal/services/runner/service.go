// Package runner orchestrates a single power action run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andyjsharp/junos-power/internal/models"
	"github.com/andyjsharp/junos-power/internal/services/device"
	"github.com/andyjsharp/junos-power/internal/services/telegram"
	"github.com/rs/zerolog"
)

// Service defines the interface for the power action runner.
type Service interface {
	Run(ctx context.Context, cfg models.PowerConfig) (*models.ActionResult, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	deviceSvc   device.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		deviceSvc:   device.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(logger zerolog.Logger, deviceSvc device.Service, telegramSvc telegram.Service) *Impl {
	return &Impl{
		deviceSvc:   deviceSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// Run dispatches exactly one power operation and reports the outcome.
// The first failure at any stage is terminal; there are no retries.
func (s *Impl) Run(ctx context.Context, cfg models.PowerConfig) (*models.ActionResult, error) {
	startTime := time.Now()
	var result *models.ActionResult
	var runErr error

	s.logger.Info().
		Str("host", cfg.Device.Host).
		Bool("reboot", cfg.Action.Reboot).
		Str("at", cfg.Action.At).
		Int("in_min", cfg.Action.InMin).
		Msg("starting power action run")

	defer func() {
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, startTime, result, runErr)
		}
	}()

	var err error
	if cfg.Action.Reboot {
		result, err = s.deviceSvc.Reboot(ctx, cfg.Device, cfg.Action)
	} else {
		result, err = s.deviceSvc.PowerOff(ctx, cfg.Device, cfg.Action)
	}
	if err != nil {
		runErr = err
		return nil, fmt.Errorf("power action failed: %w", err)
	}
	if result.Error != nil {
		runErr = result.Error
		return result, fmt.Errorf("power action failed: %w", result.Error)
	}

	s.logger.Info().
		Bool("changed", result.Changed).
		Bool("reboot", result.Reboot).
		Str("msg", result.Msg).
		Dur("duration", time.Since(startTime)).
		Msg("power action completed")

	return result, nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.PowerConfig,
	startTime time.Time,
	result *models.ActionResult,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:   runErr == nil,
		Host:      cfg.Device.Host,
		Reboot:    cfg.Action.Reboot,
		At:        cfg.Action.At,
		InMin:     cfg.Action.InMin,
		StartTime: startTime,
		Duration:  time.Since(startTime),
	}

	if runErr != nil {
		msg.FailedStep = failedStep(runErr)
		msg.ErrorMessage = runErr.Error()
	} else if result != nil {
		msg.DeviceMsg = result.Msg
	}

	notifyResult, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if notifyResult.Error != nil {
		s.logger.Error().Err(notifyResult.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}

// failedStep maps a run error onto the stage it belongs to.
func failedStep(err error) string {
	switch {
	case errors.Is(err, device.ErrConnect), errors.Is(err, device.ErrUnsupportedTransport):
		return "connect"
	default:
		return "operation"
	}
}
