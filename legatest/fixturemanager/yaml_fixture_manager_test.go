package fixturemanager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQC7"

func TestPath(t *testing.T) {
	m := YAMLFixtureManager{Root: "/srv/private", Instance: "lega"}
	assert.Equal(t, "/srv/private/cega/users/lega/john.yml", m.Path("john"))

	m.Extension = "yaml"
	assert.Equal(t, "/srv/private/cega/users/lega/john.yaml", m.Path("john"))
}

func TestWriteIdentity(t *testing.T) {
	m := YAMLFixtureManager{Root: t.TempDir(), Instance: "lega"}

	require.NoError(t, m.WriteIdentity("john", 42, testKey))

	data, err := os.ReadFile(filepath.Join(m.Root, "cega", "users", "lega", "john.yml"))
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "---\n"), "document marker missing: %q", content)
	assert.Contains(t, content, "username: john\n")
	assert.Contains(t, content, "uid: 42\n")
	assert.Contains(t, content, "gecos: EGA User john\n")
	assert.Contains(t, content, "pubkey: "+testKey+"\n")
}

func TestReadIdentity(t *testing.T) {
	m := YAMLFixtureManager{Root: t.TempDir(), Instance: "lega"}
	require.NoError(t, m.WriteIdentity("bob", 7, testKey))

	u, err := m.ReadIdentity("bob")
	require.NoError(t, err)
	assert.Equal(t, User{Username: "bob", UID: 7, Gecos: "EGA User bob", PublicKey: testKey}, u)

	_, err = m.ReadIdentity("alice")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteIdentityRejectsNegativeUID(t *testing.T) {
	m := YAMLFixtureManager{Root: t.TempDir(), Instance: "lega"}

	err := m.WriteIdentity("john", -1, testKey)
	assert.ErrorIs(t, err, ErrInvalidUID)
	assert.NoFileExists(t, m.Path("john"))
}

func TestWriteIdentityUnwritableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, nil, 0644))

	m := YAMLFixtureManager{Root: root, Instance: "lega"}
	assert.Error(t, m.WriteIdentity("john", 1, testKey))
}

func TestRemoveIdentity(t *testing.T) {
	m := YAMLFixtureManager{Root: t.TempDir(), Instance: "lega"}
	require.NoError(t, m.WriteIdentity("john", 1, testKey))

	require.NoError(t, m.RemoveIdentity("john"))
	assert.NoFileExists(t, m.Path("john"))

	// already gone
	assert.NoError(t, m.RemoveIdentity("john"))
}

func TestRandomUID(t *testing.T) {
	for i := 0; i < 100; i++ {
		uid, err := RandomUID()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, uid, 0)
	}
}
