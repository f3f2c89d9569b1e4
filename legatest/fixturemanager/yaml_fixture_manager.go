package fixturemanager

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const DefaultExtension = "yml"

var ErrInvalidUID = errors.New("uid must be non-negative")

// YAMLFixtureManager writes one YAML document per user under
// <Root>/cega/users/<Instance>/.
type YAMLFixtureManager struct {
	Root      string
	Instance  string
	Extension string
}

func (m YAMLFixtureManager) Dir() string {
	return filepath.Join(m.Root, "cega", "users", m.Instance)
}

func (m YAMLFixtureManager) Path(user string) string {
	ext := m.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return filepath.Join(m.Dir(), user+"."+ext)
}

func (m YAMLFixtureManager) WriteIdentity(user string, uid int, publicKeyLine string) error {
	if uid < 0 {
		return fmt.Errorf("identity for %s: %w", user, ErrInvalidUID)
	}

	record := User{
		Username:  user,
		UID:       uid,
		Gecos:     "EGA User " + user,
		PublicKey: publicKeyLine,
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(record); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(m.Dir(), 0755); err != nil {
		return fmt.Errorf("could not create fixture directory: %w", err)
	}
	if err := os.WriteFile(m.Path(user), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write identity for %s: %w", user, err)
	}
	return nil
}

func (m YAMLFixtureManager) ReadIdentity(user string) (User, error) {
	data, err := os.ReadFile(m.Path(user))
	if err != nil {
		return User{}, err
	}

	var record User
	if err := yaml.Unmarshal(data, &record); err != nil {
		return User{}, fmt.Errorf("malformed identity for %s: %w", user, err)
	}
	return record, nil
}

func (m YAMLFixtureManager) RemoveIdentity(user string) error {
	err := os.Remove(m.Path(user))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
