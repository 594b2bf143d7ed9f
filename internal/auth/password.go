// Password hashing.
//
// bcrypt is deliberately slow, generates a random salt per hash and embeds
// the salt and cost in its output:
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (10 rounds → 2^10 iterations)
//	 version

package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the production bcrypt work factor and also its floor.
	DefaultCost = 10

	// MaxPasswordBytes is where bcrypt starts truncating input.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong is returned by Hash for inputs bcrypt would truncate.
var ErrPasswordTooLong = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests. Using a lower cost (e.g. 4) makes tests run much faster
// without compromising the logic being tested.
type PasswordService struct {
	cost int

	// dummyHash is compared against when a login names an unknown user,
	// so both branches cost one bcrypt comparison. Built on first use.
	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordService creates a PasswordService with the given cost.
// Costs below DefaultCost or above bcrypt.MaxCost are rejected.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost < DefaultCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost must be between %d and %d, got %d", DefaultCost, bcrypt.MaxCost, cost)
	}
	return newPasswordServiceWithCost(cost), nil
}

// NewPasswordServiceForTest creates a PasswordService with an arbitrary
// cost (usually bcrypt.MinCost). Use this in tests in other packages.
//
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Cost returns the configured work factor.
func (p *PasswordService) Cost() int {
	return p.cost
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns ErrPasswordTooLong if the plaintext is over 72 bytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil if they match, a non-nil error if they don't.
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDummy burns one comparison against a throwaway hash and always
// returns an error.
func (p *PasswordService) VerifyDummy(plaintext string) error {
	p.dummyOnce.Do(func() {
		if h, err := bcrypt.GenerateFromPassword([]byte("notekeeper-dummy-password"), p.cost); err == nil {
			p.dummyHash = h
		}
	})
	if len(p.dummyHash) > 0 {
		_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
	}
	return fmt.Errorf("auth: invalid password")
}
