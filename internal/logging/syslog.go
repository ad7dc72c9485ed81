// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"net"
	"time"
)

// SyslogConfig configures remote syslog forwarding.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Protocol string `hcl:"protocol,optional"` // "udp" or "tcp"
	Tag      string `hcl:"tag,optional"`
	Facility int    `hcl:"facility,optional"`
}

// DefaultSyslogConfig returns the default (disabled) syslog configuration.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "linkmgrd",
		Facility: 1,
	}
}

// SyslogWriter forwards log lines to a remote syslog server in RFC 3164 framing.
type SyslogWriter struct {
	conn     net.Conn
	tag      string
	facility int
}

// NewSyslogWriter connects to the configured syslog server.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "linkmgrd"
	}

	conn, err := net.DialTimeout(cfg.Protocol, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("syslog: dial %s://%s:%d: %w", cfg.Protocol, cfg.Host, cfg.Port, err)
	}

	return &SyslogWriter{conn: conn, tag: cfg.Tag, facility: cfg.Facility}, nil
}

// Write sends one log line as a syslog message at severity "info".
func (w *SyslogWriter) Write(p []byte) (int, error) {
	pri := w.facility*8 + 6
	msg := fmt.Sprintf("<%d>%s %s: %s", pri, time.Now().Format(time.Stamp), w.tag, p)
	if _, err := w.conn.Write([]byte(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying connection.
func (w *SyslogWriter) Close() error {
	return w.conn.Close()
}
