package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the salted, cost-parameterised password hash. It holds no state
// beyond the work factor and is safe for concurrent use.
type Hasher struct {
	cost int
}

func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost must be in [%d, %d]", ErrMisconfigured, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

func (h *Hasher) Hash(plaintext string) ([]byte, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return nil, err
	}
	return digest, nil
}

// Verify reports whether plaintext matches digest. A wrong password or a
// malformed digest yields false with no error; only an unexpected library
// failure is returned as an error.
func (h *Hasher) Verify(plaintext string, digest []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword(digest, []byte(plaintext))
	if err == nil {
		return true, nil
	}

	var (
		prefixErr  bcrypt.InvalidHashPrefixError
		versionErr bcrypt.HashVersionTooNewError
		costErr    bcrypt.InvalidCostError
	)
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort),
		errors.As(err, &prefixErr),
		errors.As(err, &versionErr),
		errors.As(err, &costErr):
		return false, nil
	}
	return false, err
}
