package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// InboxPortKey names the inbox port both in the environment and in the
// trace file written by the deployment scripts.
const InboxPortKey = "DOCKER_PORT_inbox"

var ErrNoInboxPort = errors.New("inbox port not configured")

type Config struct {
	// [cega]
	PrivateFolder    string
	InstanceName     string
	Instances        []string
	User             string
	FixtureExtension string

	// [inbox]
	InboxHost      string
	InboxPort      int
	TraceFile      string
	DialTimeout    time.Duration
	InboxContainer string
	InboxRoot      string

	// [files]
	HashingAlgorithm string
	Passphrase       string
	FileSize         int64
}

func Default() *Config {
	return &Config{
		PrivateFolder:    "private",
		InstanceName:     "lega",
		Instances:        []string{"lega"},
		User:             "john",
		FixtureExtension: "yml",
		InboxHost:        "localhost",
		TraceFile:        "private/.trace",
		DialTimeout:      30 * time.Second,
		InboxRoot:        "/ega/inbox",
		HashingAlgorithm: "SHA256",
		Passphrase:       "legatest",
		FileSize:         1 << 20,
	}
}

// Load reads an ini file over the defaults. An empty path yields Default().
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	cega := f.Section("cega")
	c.PrivateFolder = cega.Key("private_folder").MustString(c.PrivateFolder)
	c.InstanceName = cega.Key("instance_name").MustString(c.InstanceName)
	c.Instances = cega.Key("instances").Strings(",")
	if len(c.Instances) == 0 {
		c.Instances = []string{c.InstanceName}
	}
	c.User = cega.Key("user").MustString(c.User)
	c.FixtureExtension = cega.Key("fixture_extension").MustString(c.FixtureExtension)

	inbox := f.Section("inbox")
	c.InboxHost = inbox.Key("host").MustString(c.InboxHost)
	c.InboxPort = inbox.Key("port").MustInt(0)
	c.TraceFile = inbox.Key("trace_file").MustString(c.TraceFile)
	c.DialTimeout = inbox.Key("dial_timeout").MustDuration(c.DialTimeout)
	c.InboxContainer = inbox.Key("container").String()
	c.InboxRoot = inbox.Key("root").MustString(c.InboxRoot)

	files := f.Section("files")
	c.HashingAlgorithm = files.Key("hashing_algorithm").MustString(c.HashingAlgorithm)
	c.Passphrase = files.Key("passphrase").MustString(c.Passphrase)
	c.FileSize = files.Key("size").MustInt64(c.FileSize)

	return c, nil
}

// InboxAddress resolves host:port of the inbox. The port comes from the
// config, then the environment, then the trace file.
func (c *Config) InboxAddress() (string, error) {
	port, err := c.inboxPort()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(c.InboxHost, strconv.Itoa(port)), nil
}

func (c *Config) inboxPort() (int, error) {
	if c.InboxPort > 0 {
		return c.InboxPort, nil
	}

	if v, ok := os.LookupEnv(InboxPortKey); ok && strings.TrimSpace(v) != "" {
		return parsePort(v, "environment")
	}

	if c.TraceFile == "" {
		return 0, ErrNoInboxPort
	}
	trace, err := ini.Load(c.TraceFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: no %s in environment and no trace file at %s", ErrNoInboxPort, InboxPortKey, c.TraceFile)
		}
		return 0, fmt.Errorf("could not read trace file: %w", err)
	}
	key := trace.Section(ini.DefaultSection).Key(InboxPortKey)
	if key.String() == "" {
		return 0, fmt.Errorf("%w: %s missing from %s", ErrNoInboxPort, InboxPortKey, c.TraceFile)
	}
	return parsePort(key.String(), c.TraceFile)
}

func parsePort(v, source string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s %q in %s", InboxPortKey, v, source)
	}
	return port, nil
}
