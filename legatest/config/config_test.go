package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad(t *testing.T) {
	p := writeFile(t, "legatest.ini", `[cega]
private_folder = /srv/lega/private
instance_name = lega-1
instances = lega-1, lega-2
user = bob

[inbox]
host = inbox.local
port = 2222
dial_timeout = 5s
container = inbox
root = /data/inbox

[files]
hashing_algorithm = MD5
size = 4096
`)

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "/srv/lega/private", c.PrivateFolder)
	assert.Equal(t, "lega-1", c.InstanceName)
	assert.Equal(t, []string{"lega-1", "lega-2"}, c.Instances)
	assert.Equal(t, "bob", c.User)
	assert.Equal(t, "yml", c.FixtureExtension)
	assert.Equal(t, "inbox.local", c.InboxHost)
	assert.Equal(t, 2222, c.InboxPort)
	assert.Equal(t, 5*time.Second, c.DialTimeout)
	assert.Equal(t, "inbox", c.InboxContainer)
	assert.Equal(t, "/data/inbox", c.InboxRoot)
	assert.Equal(t, "MD5", c.HashingAlgorithm)
	assert.Equal(t, "legatest", c.Passphrase)
	assert.Equal(t, int64(4096), c.FileSize)
}

func TestLoadInstancesDefaultToInstanceName(t *testing.T) {
	p := writeFile(t, "legatest.ini", "[cega]\ninstance_name = lega-3\n")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"lega-3"}, c.Instances)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestInboxAddressFromConfig(t *testing.T) {
	t.Setenv(InboxPortKey, "3333")
	c := Default()
	c.InboxPort = 2222

	addr, err := c.InboxAddress()
	require.NoError(t, err)
	assert.Equal(t, "localhost:2222", addr)
}

func TestInboxAddressFromEnvironment(t *testing.T) {
	t.Setenv(InboxPortKey, "3333")
	c := Default()
	c.TraceFile = writeFile(t, ".trace", InboxPortKey+" = 4444\n")

	addr, err := c.InboxAddress()
	require.NoError(t, err)
	assert.Equal(t, "localhost:3333", addr)
}

func TestInboxAddressFromTraceFile(t *testing.T) {
	t.Setenv(InboxPortKey, "")
	c := Default()
	c.TraceFile = writeFile(t, ".trace", "DOCKER_PORT_keys = 9010\n"+InboxPortKey+" = 4444\n")

	addr, err := c.InboxAddress()
	require.NoError(t, err)
	assert.Equal(t, "localhost:4444", addr)
}

func TestInboxAddressMissing(t *testing.T) {
	t.Setenv(InboxPortKey, "")
	c := Default()
	c.TraceFile = filepath.Join(t.TempDir(), ".trace")

	_, err := c.InboxAddress()
	assert.ErrorIs(t, err, ErrNoInboxPort)

	c.TraceFile = writeFile(t, ".trace", "DOCKER_PORT_keys = 9010\n")
	_, err = c.InboxAddress()
	assert.ErrorIs(t, err, ErrNoInboxPort)
}

func TestInboxAddressInvalidPort(t *testing.T) {
	t.Setenv(InboxPortKey, "not-a-port")

	_, err := Default().InboxAddress()
	assert.Error(t, err)
}
