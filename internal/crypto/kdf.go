package crypto

import (
	stdcrypto "crypto"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize = 16 // Salt size in bytes
	KeySize  = 32 // AES-256 key size

	MinIterations = 600_000   // Lowest iteration count ever accepted
	MaxIterations = 4_000_000 // Highest iteration count ever accepted

	// passwordPrefix separates wallet keys from any other use of the same PIN.
	passwordPrefix = "seedlock/wallet-key/v1:"
)

var (
	ErrPlatformUnavailable = errors.New("cryptographic primitives unavailable")
	ErrInvalidSalt         = errors.New("invalid salt length")
	ErrInvalidIterations   = errors.New("invalid iteration count")
)

// DeriveKey derives an AES-256 key from a password.
// Every call performs the full derivation; the caller must ClearBytes the result.
func DeriveKey(password, salt []byte, iterations uint32) ([]byte, error) {
	if !stdcrypto.SHA256.Available() {
		return nil, fmt.Errorf("%w: sha256", ErrPlatformUnavailable)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}

	input := make([]byte, 0, len(passwordPrefix)+len(password))
	input = append(input, passwordPrefix...)
	input = append(input, password...)
	defer ClearBytes(input)

	return pbkdf2.Key(input, salt, int(iterations), KeySize, sha256.New), nil
}

// ValidIterations reports whether n lies within the accepted bounds
func ValidIterations(n uint32) bool {
	return n >= MinIterations && n <= MaxIterations
}
