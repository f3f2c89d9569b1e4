package scenario

import (
	"fmt"

	"github.com/steelcutops/legatest/legatest/keymanager"
	"github.com/steelcutops/legatest/legatest/sessionmanager"
)

// Outcome is the recorded result of the last connect attempt.
type Outcome int

const (
	NotAttempted Outcome = iota
	LoggedIn
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case NotAttempted:
		return "not attempted"
	case LoggedIn:
		return "logged in"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Context is the state shared by the steps of one scenario. A fresh one is
// built for every scenario and dropped when it ends.
type Context struct {
	User           string
	UID            int
	Instances      []string
	TargetInstance string

	// KeyPair is the credential the next connect will present.
	KeyPair *keymanager.KeyPair
	// RegisteredKey is the credential published to Central EGA, if any.
	RegisteredKey *keymanager.KeyPair

	Session   sessionmanager.SessionManager
	Outcome   Outcome
	LastError error

	DataFolder       string
	RawFile          string
	EncryptedFile    string
	HashingAlgorithm string
	RawChecksum      string
	EncChecksum      string

	// Broker settings for the ingestion steps; no step binds them yet.
	RoutingKey     string
	CegaMQUser     string
	CegaMQPassword string
	CegaMQVHost    string

	IngestionInformation map[string]string
}

func New(user string, instances ...string) *Context {
	c := &Context{
		User:                 user,
		Instances:            instances,
		IngestionInformation: make(map[string]string),
	}
	if len(instances) > 0 {
		c.TargetInstance = instances[0]
	}
	return c
}

// RecordConnect stores the outcome of a connect attempt. A failure that never
// reached authentication clears any earlier outcome and keeps the error.
func (c *Context) RecordConnect(state sessionmanager.State, err error) {
	c.LastError = err
	if err != nil {
		c.Outcome = NotAttempted
		return
	}
	switch state {
	case sessionmanager.Connected:
		c.Outcome = LoggedIn
	case sessionmanager.AuthFailed:
		c.Outcome = Rejected
	}
}

// ExpectOutcome fails unless the last connect attempt ended in want.
func (c *Context) ExpectOutcome(want Outcome) error {
	if c.Outcome == NotAttempted {
		if c.LastError != nil {
			return fmt.Errorf("expected %s, but the connect attempt failed: %w", want, c.LastError)
		}
		return fmt.Errorf("expected %s, but no connect attempt was made", want)
	}
	if c.Outcome != want {
		return fmt.Errorf("expected %s, got %s", want, c.Outcome)
	}
	return nil
}

// IsConnected reports whether the scenario holds a live session.
func (c *Context) IsConnected() bool {
	return c.Session != nil && c.Session.IsConnected()
}
