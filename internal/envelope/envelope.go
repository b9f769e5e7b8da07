package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/illarion/seedlock/internal/crypto"
)

const (
	HeaderSize = 1 + 4 + crypto.SaltSize + crypto.NonceSize // 33
	MinSize    = HeaderSize + crypto.TagSize                // 49

	offIterations = 1
	offSalt       = 5
	offNonce      = offSalt + crypto.SaltSize
)

// Version selects how the ciphertext is bound
type Version uint8

const (
	VersionDeviceBound Version = 1
	VersionPortable    Version = 2
)

func (v Version) String() string {
	switch v {
	case VersionDeviceBound:
		return "device-bound"
	case VersionPortable:
		return "portable"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Bind returns the binding an envelope of this version is opened with.
// deviceID is ignored for portable envelopes.
func (v Version) Bind(deviceID string) (Binding, error) {
	switch v {
	case VersionDeviceBound:
		return DeviceBound{DeviceID: deviceID}, nil
	case VersionPortable:
		return Portable{}, nil
	default:
		return nil, &FormatError{Reason: ReasonUnknownVersion}
	}
}

// Binding is either DeviceBound or Portable
type Binding interface {
	Version() Version
	// AAD returns the additional authenticated data for the cipher
	AAD() []byte
	isBinding()
}

// DeviceBound ties the ciphertext to one device identity.
// An empty DeviceID is a valid, if weak, identity.
type DeviceBound struct {
	DeviceID string
}

func (DeviceBound) Version() Version { return VersionDeviceBound }
func (d DeviceBound) AAD() []byte    { return []byte(d.DeviceID) }
func (DeviceBound) isBinding()       {}

// Portable envelopes open on any device
type Portable struct{}

func (Portable) Version() Version { return VersionPortable }
func (Portable) AAD() []byte      { return nil }
func (Portable) isBinding()       {}

// Envelope holds everything needed to decrypt a secret except the password
// and, for device-bound envelopes, the device identity.
type Envelope struct {
	Version    Version
	Iterations uint32
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// Header is the password-free part of an envelope
type Header struct {
	Version    Version
	Iterations uint32
	Size       int
}

// MarshalBinary lays the envelope out in wire order
func (e *Envelope) MarshalBinary() ([]byte, error) {
	if len(e.Salt) != crypto.SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", crypto.SaltSize, len(e.Salt))
	}
	if len(e.Nonce) != crypto.NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", crypto.NonceSize, len(e.Nonce))
	}
	if len(e.Ciphertext) < crypto.TagSize {
		return nil, fmt.Errorf("ciphertext shorter than tag")
	}

	out := make([]byte, HeaderSize+len(e.Ciphertext))
	out[0] = byte(e.Version)
	binary.BigEndian.PutUint32(out[offIterations:offSalt], e.Iterations)
	copy(out[offSalt:offNonce], e.Salt)
	copy(out[offNonce:HeaderSize], e.Nonce)
	copy(out[HeaderSize:], e.Ciphertext)
	return out, nil
}

// Parse validates raw envelope bytes, cheapest checks first
func Parse(raw []byte) (*Envelope, error) {
	if len(raw) < MinSize {
		return nil, &FormatError{Reason: ReasonTooShort}
	}

	version := Version(raw[0])
	if version != VersionDeviceBound && version != VersionPortable {
		return nil, &FormatError{Reason: ReasonUnknownVersion}
	}

	iterations := binary.BigEndian.Uint32(raw[offIterations:offSalt])
	if !crypto.ValidIterations(iterations) {
		return nil, &InvalidIterationCountError{Iterations: iterations}
	}

	// Copy so the envelope does not alias the caller's buffer
	return &Envelope{
		Version:    version,
		Iterations: iterations,
		Salt:       append([]byte(nil), raw[offSalt:offNonce]...),
		Nonce:      append([]byte(nil), raw[offNonce:HeaderSize]...),
		Ciphertext: append([]byte(nil), raw[HeaderSize:]...),
	}, nil
}

// Header returns the envelope metadata without the ciphertext
func (e *Envelope) Header() Header {
	return Header{
		Version:    e.Version,
		Iterations: e.Iterations,
		Size:       HeaderSize + len(e.Ciphertext),
	}
}
