package keymanager

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"golang.org/x/crypto/ssh"
)

// KeyPair is an RSA credential usable for SSH public key authentication.
type KeyPair struct {
	Private *rsa.PrivateKey
	Signer  ssh.Signer
}

// KeyManager produces credentials for simulated users.
type KeyManager interface {
	Generate() (*KeyPair, error)
}

// NewKeyPair wraps an RSA private key.
func NewKeyPair(private *rsa.PrivateKey) (*KeyPair, error) {
	signer, err := ssh.NewSignerFromKey(private)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: private, Signer: signer}, nil
}

// PublicKeyLine renders the public key the way Central EGA stores it:
// "ssh-rsa " followed by the base64 wire encoding, without a comment.
func (k *KeyPair) PublicKeyLine() string {
	return string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(k.Signer.PublicKey())))
}

// PrivateKeyPEM returns the private key as a PKCS#1 PEM block.
func (k *KeyPair) PrivateKeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.Private),
	})
}

// Matches reports whether both pairs carry the same public key.
func (k *KeyPair) Matches(other *KeyPair) bool {
	if k == nil || other == nil {
		return false
	}
	return bytes.Equal(k.Signer.PublicKey().Marshal(), other.Signer.PublicKey().Marshal())
}
