package keymanager

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
)

const DefaultBits = 2048

type RSAKeyManager struct {
	Bits   int
	Random io.Reader
}

func (m RSAKeyManager) Generate() (*KeyPair, error) {
	bits := m.Bits
	if bits == 0 {
		bits = DefaultBits
	}
	random := m.Random
	if random == nil {
		random = rand.Reader
	}

	private, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("could not generate %d-bit RSA key: %w", bits, err)
	}

	return NewKeyPair(private)
}
