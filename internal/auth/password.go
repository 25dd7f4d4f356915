package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const defaultBcryptCost = 14

// Password hashes and verifies user passwords with bcrypt. The cost is
// injectable so tests can run at the bcrypt minimum.
type Password struct {
	cost int
}

func NewPassword() *Password {
	return &Password{cost: defaultBcryptCost}
}

func NewPasswordWithCost(cost int) *Password {
	return &Password{cost: cost}
}

func (p *Password) Digest(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(hash), nil
}

// Matches reports whether plaintext matches the stored digest.
func (p *Password) Matches(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
