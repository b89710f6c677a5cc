package device

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"github.com/andyjsharp/junos-power/internal/models"
)

const telnetReadTimeout = 15 * time.Second

// Telnet protocol bytes (RFC 854).
const (
	telnetIAC  = 255
	telnetDont = 254
	telnetDo   = 253
	telnetWont = 252
	telnetWill = 251
)

// telnetClient speaks just enough telnet to log in to a Junos CLI and run
// a single operational command. Option negotiation is refused wholesale.
type telnetClient struct {
	conn net.Conn
}

// dialTelnet connects and completes the login exchange before handing the
// client back.
func dialTelnet(addr string, dev models.DeviceConfig) (Client, error) {
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, err
	}

	c := &telnetClient{conn: conn}
	if err := c.login(dev.User, dev.Password); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("telnet login: %w", err)
	}

	return c, nil
}

func (c *telnetClient) login(user, password string) error {
	if _, err := c.readUntil("login:"); err != nil {
		return err
	}
	if err := c.sendLine(user); err != nil {
		return err
	}
	if password != "" {
		if _, err := c.readUntil("assword:"); err != nil {
			return err
		}
		if err := c.sendLine(password); err != nil {
			return err
		}
	}
	// Junos operational prompt.
	if _, err := c.readUntil("> "); err != nil {
		return err
	}
	return nil
}

func (c *telnetClient) NewSession() (Session, error) {
	return &telnetSession{client: c}, nil
}

func (c *telnetClient) Close() error {
	return c.conn.Close()
}

func (c *telnetClient) sendLine(line string) error {
	_, err := c.conn.Write([]byte(line + "\r\n"))
	return err
}

// readUntil consumes input until the marker appears, answering option
// negotiation with refusals as it goes. Returns everything read so far.
func (c *telnetClient) readUntil(marker string) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(telnetReadTimeout)); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	buf := make([]byte, 1)
	opt := make([]byte, 2)

	for {
		if _, err := c.conn.Read(buf); err != nil {
			return out.Bytes(), err
		}

		if buf[0] == telnetIAC {
			if _, err := c.conn.Read(opt[:1]); err != nil {
				return out.Bytes(), err
			}
			switch opt[0] {
			case telnetDo, telnetDont, telnetWill, telnetWont:
				if _, err := c.conn.Read(opt[1:]); err != nil {
					return out.Bytes(), err
				}
				refusal := byte(telnetWont)
				if opt[0] == telnetWill || opt[0] == telnetWont {
					refusal = telnetDont
				}
				if _, err := c.conn.Write([]byte{telnetIAC, refusal, opt[1]}); err != nil {
					return out.Bytes(), err
				}
			}
			continue
		}

		out.WriteByte(buf[0])
		if bytes.HasSuffix(out.Bytes(), []byte(marker)) {
			return out.Bytes(), nil
		}
	}
}

type telnetSession struct {
	client *telnetClient
}

// CombinedOutput sends the command and collects output until the prompt
// returns or the connection drops (which an immediate power action will
// cause).
func (s *telnetSession) CombinedOutput(cmd string) ([]byte, error) {
	if err := s.client.sendLine(cmd); err != nil {
		return nil, err
	}

	out, err := s.client.readUntil("> ")

	// Strip the echoed command from the front of the output.
	if idx := bytes.Index(out, []byte("\n")); idx >= 0 {
		out = out[idx+1:]
	}

	return out, err
}

func (s *telnetSession) Close() error {
	return nil
}
