package auth

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted at registration
	MinPasswordLength = 6

	// MaxPasswordLength is the bcrypt input limit in bytes
	MaxPasswordLength = 72
)

var (
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, errdefs.ErrInvalidArgument)

	// ErrLongPassword is returned for passwords over MaxPasswordLength bytes
	ErrLongPassword = fmt.Errorf("password must be at most %d bytes: %w", MaxPasswordLength, errdefs.ErrInvalidArgument)

	// ErrInvalidCredentials is returned when an email/password pair does not match
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", errdefs.ErrUnauthenticated)
)

// Hasher hashes and verifies passwords with bcrypt
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher; cost 0 selects bcrypt.DefaultCost
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of pass
func (h *Hasher) Hash(pass string) (string, error) {
	if len(pass) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	if len(pass) > MaxPasswordLength {
		return "", ErrLongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks pass against hash
func (h *Hasher) Verify(hash, pass string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrHashTooShort) {
		return ErrInvalidCredentials
	}
	return err
}
