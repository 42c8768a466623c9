package record

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordBearer marks models that carry a password column. Store.Save and
// Store.BulkSave hash the plaintext in place before writing, so consumers
// never persist a raw password by accident.
type PasswordBearer interface {
	Password() string
	SetPassword(string)
}

// HashPassword returns the bcrypt hash of plain at the default cost.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// looksHashed reports whether s already is a bcrypt hash. Save uses this to
// avoid re-hashing an already-hashed value on a second save of the same
// record.
func looksHashed(s string) bool {
	return strings.HasPrefix(s, "$2a$") ||
		strings.HasPrefix(s, "$2b$") ||
		strings.HasPrefix(s, "$2y$")
}

// hashBearer hashes the bearer's password in place if it holds a non-empty
// plaintext value.
func hashBearer(b PasswordBearer) error {
	pw := b.Password()
	if pw == "" || looksHashed(pw) {
		return nil
	}
	hash, err := HashPassword(pw)
	if err != nil {
		return err
	}
	b.SetPassword(hash)
	return nil
}
