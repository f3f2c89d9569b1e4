package steps

import (
	"context"
	"errors"
	"os"

	"github.com/cucumber/godog"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/steelcutops/legatest/legatest/commandmanager"
	"github.com/steelcutops/legatest/legatest/config"
	"github.com/steelcutops/legatest/legatest/filemanager"
	"github.com/steelcutops/legatest/legatest/fixturemanager"
	"github.com/steelcutops/legatest/legatest/keymanager"
	"github.com/steelcutops/legatest/legatest/scenario"
	"github.com/steelcutops/legatest/legatest/sessionmanager"
)

// Harness holds what every scenario shares: configuration and the
// collaborators steps delegate to. Scenario state never lives here.
type Harness struct {
	Config   *config.Config
	Keys     keymanager.KeyManager
	Fixtures fixturemanager.FixtureManager
	Commands commandmanager.CommandManager
	Dialer   sessionmanager.SSHDialer
	Log      logrus.FieldLogger

	// KeyDir, when set, receives <user>.pem for every registered account.
	KeyDir string
}

func NewHarness(cfg *config.Config, log logrus.FieldLogger) *Harness {
	return &Harness{
		Config: cfg,
		Keys:   keymanager.RSAKeyManager{},
		Fixtures: fixturemanager.YAMLFixtureManager{
			Root:      cfg.PrivateFolder,
			Instance:  cfg.InstanceName,
			Extension: cfg.FixtureExtension,
		},
		Commands: &commandmanager.LocalCommandManager{Log: log},
		Dialer:   sessionmanager.NetDialer{},
		Log:      log,
	}
}

// InitializeScenario is the godog scenario initializer. godog calls it once
// per scenario, so each scenario gets its own scenario.Context.
func (h *Harness) InitializeScenario(ctx *godog.ScenarioContext) {
	s := &legaSteps{Harness: h, sc: scenario.New(h.Config.User, h.Config.Instances...)}

	initAuthenticationSteps(ctx, s)
	initUploadingSteps(ctx, s)

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		s.cleanup(sc.Name)
		return ctx, nil
	})
}

type legaSteps struct {
	*Harness
	sc *scenario.Context
}

func (s *legaSteps) ensureKeyPair() error {
	if s.sc.KeyPair != nil {
		return nil
	}
	kp, err := s.Keys.Generate()
	if err != nil {
		return err
	}
	s.sc.KeyPair = kp
	return nil
}

func (s *legaSteps) newSession() (sessionmanager.SessionManager, error) {
	addr, err := s.Config.InboxAddress()
	if err != nil {
		return nil, err
	}
	return sessionmanager.NewSFTPSessionManager(addr,
		sessionmanager.WithDialer(s.Dialer),
		sessionmanager.WithDialTimeout(s.Config.DialTimeout),
		sessionmanager.WithLogger(s.Log),
	), nil
}

var errNotConnected = errors.New("not connected to the LocalEGA inbox")

func (s *legaSteps) sftpFiles() (filemanager.FileManager, error) {
	if !s.sc.IsConnected() {
		return nil, errNotConnected
	}
	return filemanager.SFTPFileManager{Client: s.sc.Session.SFTP()}, nil
}

// inboxFiles prefers the container when one is configured so that checks
// do not depend on the scenario's own session.
func (s *legaSteps) inboxFiles() (filemanager.FileOperations, error) {
	if s.Config.InboxContainer != "" {
		return filemanager.DockerFileManager{
			CommandManager: s.Commands,
			Container:      s.Config.InboxContainer,
			InboxRoot:      s.Config.InboxRoot,
			User:           s.sc.User,
		}, nil
	}
	return s.sftpFiles()
}

func (s *legaSteps) cleanup(name string) {
	var result *multierror.Error

	if s.sc.Session != nil && s.sc.Session.State() == sessionmanager.Connected {
		if err := s.sc.Session.Disconnect(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.sc.RegisteredKey != nil {
		if err := s.Fixtures.RemoveIdentity(s.sc.User); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.sc.DataFolder != "" {
		if err := os.RemoveAll(s.sc.DataFolder); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		s.Log.WithField("scenario", name).WithError(err).Warn("Scenario cleanup incomplete")
	}
}
