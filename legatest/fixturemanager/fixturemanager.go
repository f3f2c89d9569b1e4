package fixturemanager

import (
	"crypto/rand"
	"math"
	"math/big"
)

// User is the identity record Central EGA publishes for a submitter.
type User struct {
	Username  string `yaml:"username"`
	UID       int    `yaml:"uid"`
	Gecos     string `yaml:"gecos"`
	PublicKey string `yaml:"pubkey"`
}

// FixtureManager persists user identities where the environment's
// Central EGA stub picks them up.
type FixtureManager interface {
	// WriteIdentity stores the record for user, replacing any previous one.
	WriteIdentity(user string, uid int, publicKeyLine string) error

	// ReadIdentity loads the record for user.
	ReadIdentity(user string) (User, error)

	// RemoveIdentity deletes the record for user.
	RemoveIdentity(user string) error

	// Path returns where the record for user lives.
	Path(user string) string
}

// RandomUID returns a non-negative 31-bit user id.
func RandomUID() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt32))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
