package envelope

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Encoding is a reversible byte to text mapping for storing envelopes
type Encoding int

const (
	Base64 Encoding = iota
	Base58
)

func (e Encoding) String() string {
	switch e {
	case Base64:
		return "base64"
	case Base58:
		return "base58"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding maps a user-supplied name to an Encoding
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "base64":
		return Base64, nil
	case "base58":
		return Base58, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", name)
	}
}

// Encode serializes e with the default Base64 transport
func Encode(e *Envelope) (string, error) {
	return EncodeWith(Base64, e)
}

// Decode parses a Base64 transport string
func Decode(s string) (*Envelope, error) {
	return DecodeWith(Base64, s)
}

// EncodeWith serializes e using the given transport encoding
func EncodeWith(enc Encoding, e *Envelope) (string, error) {
	raw, err := e.MarshalBinary()
	if err != nil {
		return "", err
	}

	switch enc {
	case Base64:
		return base64.StdEncoding.EncodeToString(raw), nil
	case Base58:
		return base58.Encode(raw), nil
	default:
		return "", fmt.Errorf("unsupported encoding %s", enc)
	}
}

// DecodeWith transport-decodes s and validates the envelope structure
func DecodeWith(enc Encoding, s string) (*Envelope, error) {
	s = strings.TrimSpace(s)

	var (
		raw []byte
		err error
	)
	switch enc {
	case Base64:
		raw, err = base64.StdEncoding.DecodeString(s)
	case Base58:
		raw, err = base58.Decode(s)
	default:
		return nil, fmt.Errorf("unsupported encoding %s", enc)
	}
	if err != nil {
		return nil, &FormatError{Reason: ReasonInvalidEncoding}
	}

	return Parse(raw)
}
