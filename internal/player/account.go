package player

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pixil98/go-errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNameLength = 2
	maxNameLength = 16
)

// Account is a stored sign-in. The asset id is the lower-cased name.
type Account struct {
	Name         string    `json:"name" yaml:"name"`
	PasswordHash string    `json:"password_hash" yaml:"password_hash"`
	Created      time.Time `json:"created" yaml:"created"`
}

// NewAccount hashes password and returns a new account for name.
func NewAccount(name, password string, cost int) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &Account{
		Name:         name,
		PasswordHash: string(hash),
		Created:      time.Now().UTC(),
	}, nil
}

func (a *Account) Validate() error {
	el := errors.NewErrorList()

	if err := validName(a.Name); err != nil {
		el.Add(err)
	}
	if a.PasswordHash == "" {
		el.Add(fmt.Errorf("password hash not set"))
	}

	return el.Err()
}

// CheckPassword reports whether password matches the stored hash.
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// accountKey is the store id for name.
func accountKey(name string) string {
	return strings.ToLower(name)
}

// validName accepts ASCII letters only so the name can double as a file
// name.
func validName(name string) error {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return fmt.Errorf("name must be %d to %d letters", minNameLength, maxNameLength)
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return fmt.Errorf("name may only contain letters")
		}
	}
	return nil
}
