package sessionmanager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const DefaultDialTimeout = 30 * time.Second

// SFTPSessionManager connects to an inbox with public key authentication
// and opens the SFTP subsystem on success. It is not safe for concurrent use.
type SFTPSessionManager struct {
	Address string

	dialer      SSHDialer
	dialTimeout time.Duration
	log         logrus.FieldLogger

	state  State
	client *ssh.Client
	sftp   *sftp.Client
	closed chan struct{}
}

func NewSFTPSessionManager(address string, options ...Option) *SFTPSessionManager {
	m := &SFTPSessionManager{
		Address:     address,
		dialer:      NetDialer{},
		dialTimeout: DefaultDialTimeout,
		log:         logrus.StandardLogger(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *SFTPSessionManager) Connect(ctx context.Context, user string, signer ssh.Signer) (State, error) {
	if signer == nil {
		return m.state, ErrNoCredential
	}
	if m.state == Connected {
		return m.state, ErrAlreadyConnected
	}

	log := m.log.WithFields(logrus.Fields{"address": m.Address, "user": user})
	log.Debug("Connecting to inbox")

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         m.dialTimeout,
	}

	ctx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()

	client, err := m.dialer.Dial(ctx, "tcp", m.Address, config)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnreachable):
		m.state = Disconnected
		log.WithError(err).Error("Inbox is unreachable")
		return m.state, err
	case errors.Is(err, ErrTransport):
		m.state = Disconnected
		log.WithError(err).Error("SSH handshake interrupted")
		return m.state, err
	case isAuthError(err):
		m.state = AuthFailed
		log.WithError(err).Info("Authentication rejected")
		return m.state, nil
	default:
		m.state = Disconnected
		log.WithError(err).Error("SSH handshake failed")
		return m.state, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	// The inbox refuses the subsystem for users it cannot serve; that counts
	// as a rejection, not a broken environment.
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		m.state = AuthFailed
		log.WithError(err).Info("SFTP subsystem refused")
		return m.state, nil
	}

	m.client = client
	m.sftp = sftpClient
	m.closed = make(chan struct{})
	go func(c *ssh.Client, closed chan struct{}) {
		c.Wait()
		close(closed)
	}(client, m.closed)

	m.state = Connected
	log.Info("Logged in to inbox")
	return m.state, nil
}

func (m *SFTPSessionManager) Disconnect() error {
	if m.state != Connected {
		return nil
	}

	var result *multierror.Error
	if err := m.sftp.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close sftp channel: %w", err))
	}
	if err := m.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		result = multierror.Append(result, fmt.Errorf("close ssh connection: %w", err))
	}

	m.sftp = nil
	m.client = nil
	m.state = Disconnected

	if err := result.ErrorOrNil(); err != nil {
		m.log.WithField("address", m.Address).WithError(err).Warn("Disconnect did not close cleanly")
		return err
	}
	m.log.WithField("address", m.Address).Debug("Disconnected from inbox")
	return nil
}

func (m *SFTPSessionManager) IsConnected() bool {
	if m.state != Connected {
		return false
	}
	select {
	case <-m.closed:
		return false
	default:
		return true
	}
}

func (m *SFTPSessionManager) State() State {
	return m.state
}

func (m *SFTPSessionManager) SFTP() *sftp.Client {
	return m.sftp
}
