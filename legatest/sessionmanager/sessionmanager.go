package sessionmanager

import (
	"context"
	"errors"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// State is where a session stands after the last connect or disconnect.
type State int

const (
	// Disconnected is the initial state, and the state after a disconnect
	// or a connect that never reached authentication.
	Disconnected State = iota
	// Connected means both the SSH handshake and the SFTP subsystem succeeded.
	Connected
	// AuthFailed means the server was reached and explicitly rejected us.
	AuthFailed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case AuthFailed:
		return "auth-failed"
	default:
		return "unknown"
	}
}

var (
	ErrNoCredential     = errors.New("no credential to authenticate with")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrUnreachable      = errors.New("inbox unreachable")
	ErrTransport        = errors.New("ssh transport failure")
)

// SessionManager owns a single SSH session and its SFTP sub-channel.
type SessionManager interface {
	// Connect authenticates user with signer. An authentication rejection is
	// reported as AuthFailed with a nil error; any other failure returns an
	// error and leaves the session Disconnected.
	Connect(ctx context.Context, user string, signer ssh.Signer) (State, error)

	// Disconnect closes the SFTP channel, then the SSH connection. The state
	// is Disconnected afterwards even when closing fails.
	Disconnect() error

	// IsConnected reports transport-level connectivity.
	IsConnected() bool

	State() State

	// SFTP returns the active SFTP client, or nil when not connected.
	SFTP() *sftp.Client
}
