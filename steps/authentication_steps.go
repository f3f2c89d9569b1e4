package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/sirupsen/logrus"
	"github.com/steelcutops/legatest/legatest/fixturemanager"
	"github.com/steelcutops/legatest/legatest/scenario"
)

func initAuthenticationSteps(ctx *godog.ScenarioContext, s *legaSteps) {
	ctx.Step(`^I have an account at Central EGA$`, s.iHaveAnAccountAtCentralEGA)
	ctx.Step(`^I have correct private key$`, s.iHaveCorrectPrivateKey)
	ctx.Step(`^I have incorrect private key$`, s.iHaveIncorrectPrivateKey)
	ctx.Step(`^file is removed from the inbox$`, s.fileIsRemovedFromTheInbox)
	ctx.Step(`^I connect to the LocalEGA inbox via SFTP using private key$`, s.iConnectToTheLocalEGAInbox)
	ctx.Step(`^I disconnect from the LocalEGA inbox$`, s.iDisconnectFromTheLocalEGAInbox)
	ctx.Step(`^I am disconnected from the LocalEGA inbox$`, s.iAmDisconnectedFromTheLocalEGAInbox)
	ctx.Step(`^I'm logged in successfully$`, s.iAmLoggedInSuccessfully)
	ctx.Step(`^authentication fails$`, s.authenticationFails)
}

func (s *legaSteps) iHaveAnAccountAtCentralEGA() error {
	if err := s.ensureKeyPair(); err != nil {
		return err
	}

	uid, err := fixturemanager.RandomUID()
	if err != nil {
		return err
	}
	if err := s.Fixtures.WriteIdentity(s.sc.User, uid, s.sc.KeyPair.PublicKeyLine()); err != nil {
		return fmt.Errorf("could not register %s at Central EGA: %w", s.sc.User, err)
	}
	s.sc.UID = uid
	s.sc.RegisteredKey = s.sc.KeyPair

	if s.KeyDir != "" {
		p := filepath.Join(s.KeyDir, s.sc.User+".pem")
		if err := os.WriteFile(p, s.sc.KeyPair.PrivateKeyPEM(), 0600); err != nil {
			return fmt.Errorf("could not save private key: %w", err)
		}
	}

	s.Log.WithFields(logrus.Fields{
		"user":    s.sc.User,
		"uid":     uid,
		"fixture": s.Fixtures.Path(s.sc.User),
	}).Info("Registered account at Central EGA")
	return nil
}

func (s *legaSteps) iHaveCorrectPrivateKey() error {
	if s.sc.RegisteredKey != nil {
		s.sc.KeyPair = s.sc.RegisteredKey
		return nil
	}
	return s.ensureKeyPair()
}

func (s *legaSteps) iHaveIncorrectPrivateKey() error {
	kp, err := s.Keys.Generate()
	if err != nil {
		return err
	}
	s.sc.KeyPair = kp
	return nil
}

func (s *legaSteps) fileIsRemovedFromTheInbox() error {
	if s.sc.EncryptedFile == "" {
		return errors.New("no file was prepared in this scenario")
	}
	files, err := s.inboxFiles()
	if err != nil {
		return err
	}
	return files.DeleteFile(filepath.Base(s.sc.EncryptedFile))
}

func (s *legaSteps) iConnectToTheLocalEGAInbox(ctx context.Context) error {
	if err := s.ensureKeyPair(); err != nil {
		return err
	}

	if s.sc.Session == nil {
		session, err := s.newSession()
		if err != nil {
			s.sc.LastError = err
			return err
		}
		s.sc.Session = session
	}

	state, err := s.sc.Session.Connect(ctx, s.sc.User, s.sc.KeyPair.Signer)
	s.sc.RecordConnect(state, err)
	if err != nil {
		return fmt.Errorf("could not reach the LocalEGA inbox: %w", err)
	}
	return nil
}

// Close failures are logged only; a scenario never fails on disconnect.
func (s *legaSteps) iDisconnectFromTheLocalEGAInbox() error {
	if s.sc.Session == nil {
		return nil
	}
	if err := s.sc.Session.Disconnect(); err != nil {
		s.Log.WithField("user", s.sc.User).WithError(err).Warn("Disconnect from inbox was not clean")
	}
	return nil
}

func (s *legaSteps) iAmDisconnectedFromTheLocalEGAInbox() error {
	if s.sc.IsConnected() {
		return errors.New("still connected to the LocalEGA inbox")
	}
	return nil
}

func (s *legaSteps) iAmLoggedInSuccessfully() error {
	return s.sc.ExpectOutcome(scenario.LoggedIn)
}

func (s *legaSteps) authenticationFails() error {
	return s.sc.ExpectOutcome(scenario.Rejected)
}
