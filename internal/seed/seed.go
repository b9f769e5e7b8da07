// Package seed defines the wallet secret seedlock protects and helpers for
// BIP-39 mnemonic seeds.
package seed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tyler-smith/go-bip39"
)

// Kinds of seed material
const (
	KindMnemonic = "mnemonic"
	KindRaw      = "raw"
)

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrEmptySeed       = errors.New("seed is empty")
	ErrWordCount       = errors.New("word count must be 12, 15, 18, 21 or 24")
)

// Secret is the JSON document encrypted for each wallet
type Secret struct {
	Seed    string    `json:"seed"`
	Kind    string    `json:"kind,omitempty"`
	Created time.Time `json:"created,omitzero"`
}

// NewRaw wraps arbitrary seed text (for example a ledger family seed)
func NewRaw(value string) (*Secret, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptySeed
	}
	return &Secret{Seed: value, Kind: KindRaw, Created: time.Now().UTC()}, nil
}

// NewMnemonic validates and normalizes a BIP-39 mnemonic
func NewMnemonic(mnemonic string) (*Secret, error) {
	normalized := Normalize(mnemonic)
	if normalized == "" {
		return nil, ErrEmptySeed
	}
	if !bip39.IsMnemonicValid(normalized) {
		return nil, ErrInvalidMnemonic
	}
	return &Secret{Seed: normalized, Kind: KindMnemonic, Created: time.Now().UTC()}, nil
}

// Generate creates a fresh BIP-39 mnemonic with the given number of words
func Generate(words int) (*Secret, error) {
	bits, err := entropyBits(words)
	if err != nil {
		return nil, err
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to build mnemonic: %w", err)
	}
	return &Secret{Seed: mnemonic, Kind: KindMnemonic, Created: time.Now().UTC()}, nil
}

// Normalize lowercases and collapses whitespace between mnemonic words
func Normalize(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// Words returns the number of words in the secret's seed
func (s *Secret) Words() int {
	return len(strings.Fields(s.Seed))
}

// Validate checks the secret is well-formed for its kind
func (s *Secret) Validate() error {
	if strings.TrimSpace(s.Seed) == "" {
		return ErrEmptySeed
	}
	if s.Kind == KindMnemonic && !bip39.IsMnemonicValid(s.Seed) {
		return ErrInvalidMnemonic
	}
	return nil
}

func entropyBits(words int) (int, error) {
	switch words {
	case 12, 15, 18, 21, 24:
		// Each word encodes 11 bits, one in 33 of which is checksum
		return words * 11 * 32 / 33, nil
	default:
		return 0, ErrWordCount
	}
}
