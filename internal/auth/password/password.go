package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 6
	// bcrypt ignores input past 72 bytes.
	MaxLength = 72
)

var ErrTooShort = errors.New("password too short")

// Hash returns a bcrypt hash at the default cost.
func Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}
	if len(password) > MaxLength {
		return "", bcrypt.ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks whether a password matches the encoded bcrypt hash.
func Verify(password, encoded string) bool {
	if encoded == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
}
