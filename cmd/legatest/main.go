package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/sirupsen/logrus"
	"github.com/steelcutops/legatest/legatest/config"
	"github.com/steelcutops/legatest/legatest/inboxstub"
	"github.com/steelcutops/legatest/logger"
	"github.com/steelcutops/legatest/steps"
	"golang.org/x/term"
)

type flags struct {
	ConfigPath  string
	Debug       bool
	Features    featuresValue
	Format      string
	LogFileName string
	Passphrase  bool
	SaveKeys    string
	Strict      bool
	Stub        bool
	Tags        string
}

// defaultFeatures is where the bundled feature files live, relative to the
// repository root.
const defaultFeatures = "steps/features"

type featuresValue []string

func (f *featuresValue) String() string {
	return strings.Join(*f, ",")
}

func (f *featuresValue) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (*flags, error) {
	f := &flags{}
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	fs.BoolVar(&f.Strict, "strict", true, "Fail on undefined or pending steps")
	fs.BoolVar(&f.Stub, "stub", false, "Run against an in-process inbox instead of a deployment")
	fs.BoolVar(&f.Passphrase, "passphrase", false, "Prompt for the file encryption passphrase")
	fs.StringVar(&f.ConfigPath, "config", "", "Path to INI file with harness configuration")
	fs.StringVar(&f.Format, "format", "pretty", "godog output format")
	fs.StringVar(&f.LogFileName, "log", "", "Log file name (default stderr)")
	fs.StringVar(&f.SaveKeys, "save-keys", "", "Directory to save generated private keys to")
	fs.StringVar(&f.Tags, "tags", "", "Only run scenarios matching this tag expression")
	fs.Var(&f.Features, "features", "Feature file or directory, repeatable (default "+defaultFeatures+")")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(f.Features) == 0 {
		f.Features = append(f.Features, defaultFeatures)
	}
	return f, nil
}

func configureLogger(f *flags) (*logrus.Logger, io.Closer, error) {
	if f.LogFileName == "" {
		return logger.New(os.Stderr, f.Debug), io.NopCloser(nil), nil
	}
	file, err := os.OpenFile(f.LogFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, err
	}
	return logger.New(file, f.Debug), file, nil
}

func readPassphrase() (string, error) {
	fmt.Print("Enter the encryption passphrase: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(b), nil
}

// startStub serves an in-process inbox backed by the harness fixtures and
// points the configuration at it.
func startStub(h *steps.Harness, log logrus.FieldLogger) (*inboxstub.Server, error) {
	root, err := os.MkdirTemp("", "legatest-inbox-")
	if err != nil {
		return nil, err
	}
	server, err := inboxstub.New(filepath.Join(root, "inbox"), h.Fixtures, log)
	if err != nil {
		return nil, err
	}
	if err := server.Start("localhost:0"); err != nil {
		return nil, err
	}
	h.Config.InboxHost = "localhost"
	h.Config.InboxPort = server.Port()
	return server, nil
}

func run(f *flags, log *logrus.Logger) (int, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return 1, fmt.Errorf("could not load configuration: %w", err)
	}

	if f.Passphrase {
		if cfg.Passphrase, err = readPassphrase(); err != nil {
			return 1, err
		}
	}

	h := steps.NewHarness(cfg, log)
	if f.SaveKeys != "" {
		if err := os.MkdirAll(f.SaveKeys, 0700); err != nil {
			return 1, err
		}
		h.KeyDir = f.SaveKeys
	}

	if f.Stub {
		server, err := startStub(h, log)
		if err != nil {
			return 1, fmt.Errorf("could not start inbox stub: %w", err)
		}
		defer os.RemoveAll(filepath.Dir(server.Root))
		defer server.Close()
	}

	log.WithFields(logrus.Fields{
		"features": f.Features.String(),
		"instance": cfg.InstanceName,
		"user":     cfg.User,
		"stub":     f.Stub,
	}).Info("Running LocalEGA acceptance suite")

	suite := godog.TestSuite{
		Name:                "legatest",
		ScenarioInitializer: h.InitializeScenario,
		Options: &godog.Options{
			Output: colors.Colored(os.Stdout),
			Format: f.Format,
			Paths:  f.Features,
			Tags:   f.Tags,
			Strict: f.Strict,
		},
	}
	return suite.Run(), nil
}

func main() {
	f, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	log, closer, err := configureLogger(f)
	if err != nil {
		logrus.Fatal(err)
	}

	status, err := run(f, log)
	if err != nil {
		log.WithError(err).Error("Suite did not run")
	}
	closer.Close()
	os.Exit(status)
}
