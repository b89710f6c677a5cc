// Package device issues power-off and reboot operational commands to a
// Junos device over SSH or telnet.
package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/andyjsharp/junos-power/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

const connectTimeout = 30 * time.Second

// Error kinds callers can branch on with errors.Is.
var (
	ErrConnect              = errors.New("device connection failed")
	ErrOperation            = errors.New("device operation failed")
	ErrUnsupportedTransport = errors.New("unsupported connection mode")
)

// Service defines the interface for device power operations.
type Service interface {
	PowerOff(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error)
	Reboot(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error)
}

// Client wraps a device connection for mocking.
type Client interface {
	NewSession() (Session, error)
	Close() error
}

// Session wraps a command channel on an open connection for mocking.
type Session interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// Dialer opens a connection to a device using the transport selected by
// the device config.
type Dialer interface {
	Dial(dev models.DeviceConfig) (Client, error)
}

// DefaultDialer is the production dialer: SSH by default, telnet when
// requested. Serial consoles are not reachable from this binary.
type DefaultDialer struct{}

// Dial connects to the device.
func (d *DefaultDialer) Dial(dev models.DeviceConfig) (Client, error) {
	addr := net.JoinHostPort(dev.Host, fmt.Sprintf("%d", dev.Port))

	switch dev.Mode {
	case models.ModeSSH:
		cfg, err := buildSSHConfig(dev)
		if err != nil {
			return nil, err
		}
		client, err := ssh.Dial("tcp", addr, cfg)
		if err != nil {
			return nil, err
		}
		return &sshClient{client: client}, nil
	case models.ModeTelnet:
		return dialTelnet(addr, dev)
	case models.ModeSerial:
		return nil, fmt.Errorf("%w: serial", ErrUnsupportedTransport)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, dev.Mode)
	}
}

func buildSSHConfig(dev models.DeviceConfig) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	switch {
	case dev.Password != "":
		auth = append(auth, ssh.Password(dev.Password))
	case dev.PrivateKey != nil || dev.KeyPath != "":
		key := dev.PrivateKey
		if key == nil {
			var err error
			key, err = os.ReadFile(dev.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read private key from %s: %w", dev.KeyPath, err)
			}
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	default:
		return nil, fmt.Errorf("no password or private key provided")
	}

	return &ssh.ClientConfig{
		User:            dev.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // lab devices, host keys unmanaged
		Timeout:         connectTimeout,
	}, nil
}

type sshClient struct {
	client *ssh.Client
}

func (c *sshClient) NewSession() (Session, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &sshSession{session: session}, nil
}

func (c *sshClient) Close() error {
	return c.client.Close()
}

type sshSession struct {
	session *ssh.Session
}

func (s *sshSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *sshSession) Close() error {
	return s.session.Close()
}

// Impl implements the device Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new device service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &DefaultDialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new device service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// PowerOff issues "request system power-off" with the configured delay.
func (s *Impl) PowerOff(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
	return s.run(ctx, dev, action, false)
}

// Reboot issues "request system reboot" with the configured schedule.
func (s *Impl) Reboot(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig) (*models.ActionResult, error) {
	return s.run(ctx, dev, action, true)
}

func (s *Impl) run(ctx context.Context, dev models.DeviceConfig, action models.ActionConfig, reboot bool) (*models.ActionResult, error) {
	result := &models.ActionResult{Reboot: reboot}
	cmd := command(action, reboot)

	s.logger.Info().
		Str("host", dev.Host).
		Int("port", dev.Port).
		Str("user", dev.User).
		Str("command", cmd).
		Msg("issuing power command")

	client, err := s.connect(ctx, dev)
	if err != nil {
		result.Error = err
		return result, nil
	}

	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		result.Error = fmt.Errorf("%w: creating session on %s: %v", ErrConnect, dev.Host, err)
		return result, nil
	}

	output, err := session.CombinedOutput(cmd)
	result.Msg = strings.TrimSpace(string(output))

	if err != nil {
		if action.Scheduled() {
			// The device stays up for a scheduled action, so a failed
			// command is a real failure.
			_ = session.Close()
			_ = client.Close()
			result.Error = fmt.Errorf("%w: %q on %s: %v", ErrOperation, cmd, dev.Host, err)
			return result, nil
		}
		// An immediate power-off or reboot tears down the transport
		// before the exit status arrives. Treat the dropped connection
		// as the expected outcome.
		s.logger.Warn().Err(err).Str("output", result.Msg).Msg("command returned error (expected for immediate actions)")
	}

	result.Changed = true

	// Close only when the device remains reachable. An immediate action
	// takes the device down right away; closing then would hang or error,
	// so the connection is abandoned instead.
	if action.Scheduled() {
		_ = session.Close()
		_ = client.Close()
	}

	s.logger.Info().
		Bool("changed", result.Changed).
		Bool("reboot", result.Reboot).
		Str("msg", result.Msg).
		Msg("power command completed")

	return result, nil
}

// connect dials the device, honouring context cancellation around the
// blocking dial.
func (s *Impl) connect(ctx context.Context, dev models.DeviceConfig) (Client, error) {
	dialChan := make(chan struct {
		client Client
		err    error
	}, 1)

	go func() {
		client, err := s.dialer.Dial(dev)
		dialChan <- struct {
			client Client
			err    error
		}{client, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-dialChan:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConnect, dev.Host, res.err)
		}
		return res.client, nil
	}
}

// command builds the Junos operational command for the requested action.
// A scheduled time wins over the delay on the reboot path; the validator
// has already rejected "at" without reboot.
func command(action models.ActionConfig, reboot bool) string {
	verb := "power-off"
	if reboot {
		verb = "reboot"
	}

	switch {
	case reboot && action.At != "":
		return fmt.Sprintf("request system reboot at %s", action.At)
	case action.InMin > 0:
		return fmt.Sprintf("request system %s in %d", verb, action.InMin)
	default:
		return "request system " + verb
	}
}
