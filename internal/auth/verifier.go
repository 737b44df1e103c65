package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials are what the admin submits at login.
type Credentials struct {
	Username string
	Password string
}

// Verifier decides whether credentials grant admin access.
type Verifier interface {
	Verify(ctx context.Context, c Credentials) bool
}

// StaticVerifier checks against one configured admin account. The password
// is compared against a bcrypt hash when one is configured, otherwise
// against the plaintext password.
type StaticVerifier struct {
	username string
	password string
	hash     []byte
}

// NewStaticVerifier creates a verifier. passwordHash takes precedence over password.
func NewStaticVerifier(username, password, passwordHash string) (*StaticVerifier, error) {
	if username == "" {
		return nil, errors.New("admin username is empty")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		return &StaticVerifier{username: username, hash: []byte(passwordHash)}, nil
	}
	if password == "" {
		return nil, errors.New("admin password is empty")
	}
	return &StaticVerifier{username: username, password: password}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, c Credentials) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(v.username)) == 1
	var passOK bool
	if v.hash != nil {
		passOK = bcrypt.CompareHashAndPassword(v.hash, []byte(c.Password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(c.Password), []byte(v.password)) == 1
	}
	return userOK && passOK
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
