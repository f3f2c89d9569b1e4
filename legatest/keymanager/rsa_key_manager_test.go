package keymanager

import (
	"encoding/pem"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

var publicKeyLine = regexp.MustCompile(`^ssh-rsa [A-Za-z0-9+/=]+$`)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerate(t *testing.T) {
	kp, err := RSAKeyManager{}.Generate()
	require.NoError(t, err)

	assert.Equal(t, DefaultBits, kp.Private.N.BitLen())
	assert.Equal(t, ssh.KeyAlgoRSA, kp.Signer.PublicKey().Type())
}

func TestPublicKeyLineFormat(t *testing.T) {
	for i := 0; i < 3; i++ {
		kp, err := RSAKeyManager{Bits: 1024}.Generate()
		require.NoError(t, err)

		line := kp.PublicKeyLine()
		assert.Regexp(t, publicKeyLine, line)

		parsed, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, kp.Signer.PublicKey().Marshal(), parsed.Marshal())
	}
}

func TestGenerateProducesDistinctKeys(t *testing.T) {
	a, err := RSAKeyManager{Bits: 1024}.Generate()
	require.NoError(t, err)
	b, err := RSAKeyManager{Bits: 1024}.Generate()
	require.NoError(t, err)

	assert.False(t, a.Matches(b))
	assert.True(t, a.Matches(a))
	assert.False(t, a.Matches(nil))
}

func TestGenerateRandomFailure(t *testing.T) {
	_, err := RSAKeyManager{Random: failingReader{}}.Generate()
	assert.Error(t, err)
}

func TestPrivateKeyPEMRoundTrip(t *testing.T) {
	kp, err := RSAKeyManager{Bits: 1024}.Generate()
	require.NoError(t, err)

	block, _ := pem.Decode(kp.PrivateKeyPEM())
	require.NotNil(t, block)
	assert.Equal(t, "RSA PRIVATE KEY", block.Type)

	signer, err := ssh.ParsePrivateKey(kp.PrivateKeyPEM())
	require.NoError(t, err)
	assert.Equal(t, kp.Signer.PublicKey().Marshal(), signer.PublicKey().Marshal())
}
