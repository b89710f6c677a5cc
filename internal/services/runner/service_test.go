package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/andyjsharp/junos-power/internal/models"
	"github.com/andyjsharp/junos-power/internal/services/device"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock services
type mockDeviceService struct {
	powerOffFunc func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error)
	rebootFunc   func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error)
}

func (m *mockDeviceService) PowerOff(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
	if m.powerOffFunc != nil {
		return m.powerOffFunc(ctx, dev, action)
	}
	return &models.ActionResult{Changed: true}, nil
}

func (m *mockDeviceService) Reboot(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
	if m.rebootFunc != nil {
		return m.rebootFunc(ctx, dev, action)
	}
	return &models.ActionResult{Changed: true, Reboot: true}, nil
}

type mockTelegramService struct {
	sendFunc func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

func (m *mockTelegramService) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, cfg, msg)
	}
	return &models.TelegramResult{MessageSent: true}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.PowerConfig {
	return models.PowerConfig{
		Device: models.DeviceConfig{
			Host:     "192.0.2.1",
			Port:     830,
			User:     "admin",
			Password: "secret",
		},
		Action: models.ActionConfig{Confirm: models.ConfirmToken},
	}
}

func TestRun_DispatchesPowerOff(t *testing.T) {
	powerOffCalled := false
	rebootCalled := false

	deviceSvc := &mockDeviceService{
		powerOffFunc: func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
			powerOffCalled = true
			return &models.ActionResult{Changed: true, Msg: "Shutdown NOW!"}, nil
		},
		rebootFunc: func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
			rebootCalled = true
			return &models.ActionResult{Changed: true, Reboot: true}, nil
		},
	}

	svc := NewWithServices(testLogger(), deviceSvc, &mockTelegramService{})
	result, err := svc.Run(context.Background(), testConfig())

	require.NoError(t, err)
	assert.True(t, powerOffCalled)
	assert.False(t, rebootCalled)
	assert.True(t, result.Changed)
	assert.False(t, result.Reboot)
	assert.Equal(t, "Shutdown NOW!", result.Msg)
}

func TestRun_DispatchesReboot(t *testing.T) {
	var capturedAction models.ActionConfig

	deviceSvc := &mockDeviceService{
		rebootFunc: func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
			capturedAction = action
			return &models.ActionResult{Changed: true, Reboot: true, Msg: "Shutdown at ..."}, nil
		},
	}

	svc := NewWithServices(testLogger(), deviceSvc, &mockTelegramService{})

	cfg := testConfig()
	cfg.Action.Reboot = true
	cfg.Action.At = "202501010300"

	result, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, result.Reboot)
	assert.Equal(t, "202501010300", capturedAction.At)
}

func TestRun_DeviceFailureIsTerminal(t *testing.T) {
	deviceSvc := &mockDeviceService{
		powerOffFunc: func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
			return &models.ActionResult{
				Error: fmt.Errorf("%w: 192.0.2.1: connection refused", device.ErrConnect),
			}, nil
		},
	}

	svc := NewWithServices(testLogger(), deviceSvc, &mockTelegramService{})
	result, err := svc.Run(context.Background(), testConfig())

	require.Error(t, err)
	assert.True(t, errors.Is(err, device.ErrConnect))
	assert.Contains(t, err.Error(), "192.0.2.1")
	assert.False(t, result.Changed)
}

func TestRun_NotificationOnSuccess(t *testing.T) {
	var capturedMsg models.TelegramMessage
	notified := false

	telegramSvc := &mockTelegramService{
		sendFunc: func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			notified = true
			capturedMsg = msg
			return &models.TelegramResult{MessageSent: true}, nil
		},
	}

	deviceSvc := &mockDeviceService{
		powerOffFunc: func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
			return &models.ActionResult{Changed: true, Msg: "Shutdown in 5 minutes"}, nil
		},
	}

	svc := NewWithServices(testLogger(), deviceSvc, telegramSvc)

	cfg := testConfig()
	cfg.Action.InMin = 5
	cfg.Telegram = &models.TelegramConfig{BotToken: "t", ChatID: "c"}

	_, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, notified)
	assert.True(t, capturedMsg.Success)
	assert.Equal(t, "192.0.2.1", capturedMsg.Host)
	assert.Equal(t, 5, capturedMsg.InMin)
	assert.Equal(t, "Shutdown in 5 minutes", capturedMsg.DeviceMsg)
}

func TestRun_NotificationOnFailure(t *testing.T) {
	var capturedMsg models.TelegramMessage

	telegramSvc := &mockTelegramService{
		sendFunc: func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			capturedMsg = msg
			return &models.TelegramResult{MessageSent: true}, nil
		},
	}

	deviceSvc := &mockDeviceService{
		rebootFunc: func(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
			return &models.ActionResult{
				Reboot: true,
				Error:  fmt.Errorf("%w: request system reboot: exit status 1", device.ErrOperation),
			}, nil
		},
	}

	svc := NewWithServices(testLogger(), deviceSvc, telegramSvc)

	cfg := testConfig()
	cfg.Action.Reboot = true
	cfg.Telegram = &models.TelegramConfig{BotToken: "t", ChatID: "c"}

	_, err := svc.Run(context.Background(), cfg)

	require.Error(t, err)
	assert.False(t, capturedMsg.Success)
	assert.Equal(t, "operation", capturedMsg.FailedStep)
	assert.Contains(t, capturedMsg.ErrorMessage, "exit status 1")
}

func TestRun_NoNotificationWhenUnconfigured(t *testing.T) {
	notified := false

	telegramSvc := &mockTelegramService{
		sendFunc: func(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
			notified = true
			return &models.TelegramResult{MessageSent: true}, nil
		},
	}

	svc := NewWithServices(testLogger(), &mockDeviceService{}, telegramSvc)
	_, err := svc.Run(context.Background(), testConfig())

	require.NoError(t, err)
	assert.False(t, notified)
}

func TestFailedStep(t *testing.T) {
	assert.Equal(t, "connect", failedStep(fmt.Errorf("wrap: %w", device.ErrConnect)))
	assert.Equal(t, "connect", failedStep(fmt.Errorf("wrap: %w", device.ErrUnsupportedTransport)))
	assert.Equal(t, "operation", failedStep(fmt.Errorf("wrap: %w", device.ErrOperation)))
	assert.Equal(t, "operation", failedStep(errors.New("something else")))
}
