package sessionmanager

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Option func(*SFTPSessionManager)

// WithDialer returns an Option that replaces the SSH dialer.
func WithDialer(dialer SSHDialer) Option {
	return func(m *SFTPSessionManager) {
		m.dialer = dialer
	}
}

// WithDialTimeout returns an Option that bounds connect attempts.
func WithDialTimeout(timeout time.Duration) Option {
	return func(m *SFTPSessionManager) {
		if timeout > 0 {
			m.dialTimeout = timeout
		}
	}
}

// WithLogger returns an Option that sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *SFTPSessionManager) {
		m.log = log
	}
}
