// Package datamanager prepares the files a submitter uploads: a random
// plaintext, its OpenPGP-encrypted counterpart and their checksums.
package datamanager

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	MD5    = "MD5"
	SHA256 = "SHA256"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported hashing algorithm")

// CreateRawFile writes size random bytes to dir/name.
func CreateRawFile(dir, name string, size int64) (string, error) {
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.CopyN(f, rand.Reader, size); err != nil {
		return "", fmt.Errorf("could not fill %s: %w", p, err)
	}
	return p, f.Close()
}

// EncryptFile writes src, symmetrically encrypted with passphrase, to dst.
func EncryptFile(src, dst string, passphrase []byte) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := openpgp.SymmetricallyEncrypt(out, passphrase, &openpgp.FileHints{IsBinary: true, FileName: filepath.Base(src)}, nil)
	if err != nil {
		return fmt.Errorf("could not start encryption: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return fmt.Errorf("could not encrypt %s: %w", src, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	return out.Close()
}

// DecryptFile reverses EncryptFile and returns the plaintext.
func DecryptFile(src string, passphrase []byte) ([]byte, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	prompted := false
	md, err := openpgp.ReadMessage(in, nil, func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if prompted {
			return nil, errors.New("wrong passphrase")
		}
		prompted = true
		return passphrase, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(md.UnverifiedBody)
}

// Checksum returns the hex digest of the file at p.
func Checksum(p, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newHash(algorithm string) (hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case MD5:
		return md5.New(), nil
	case SHA256, "SHA-256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}
