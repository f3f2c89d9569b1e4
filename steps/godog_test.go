package steps

import (
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
	"github.com/steelcutops/legatest/legatest/config"
	"github.com/steelcutops/legatest/legatest/inboxstub"
	"github.com/steelcutops/legatest/legatest/keymanager"
	"github.com/steelcutops/legatest/logger"
)

// newStubHarness points a harness at an in-process inbox.
func newStubHarness(t *testing.T) (*Harness, *inboxstub.Server) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.PrivateFolder = filepath.Join(dir, "private")
	cfg.FileSize = 64 << 10

	log := logger.Discard()
	h := NewHarness(cfg, log)
	h.Keys = keymanager.RSAKeyManager{Bits: 1024}

	server, err := inboxstub.New(filepath.Join(dir, "inbox"), h.Fixtures, log)
	if err != nil {
		t.Fatalf("could not create inbox stub: %v", err)
	}
	if err := server.Start("localhost:0"); err != nil {
		t.Fatalf("could not start inbox stub: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	cfg.InboxPort = server.Port()
	return h, server
}

func TestFeatures(t *testing.T) {
	h, _ := newStubHarness(t)

	suite := godog.TestSuite{
		ScenarioInitializer: h.InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
