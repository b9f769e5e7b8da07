// Package keyring supplies the per-installation device identity used to bind
// wallets to this machine. The identity is a random UUID kept in the OS
// keyring, so it survives reinstalls of the binary but not a new machine.
package keyring

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

const deviceAccount = "device-id"

var ErrNoDeviceID = errors.New("no device id stored")

// Provider returns a stable opaque device identity
type Provider interface {
	DeviceID() (string, error)
}

// DeviceIdentity is a Provider backed by the OS keyring
type DeviceIdentity struct {
	service string
}

// NewDeviceIdentity creates a keyring-backed identity under service
func NewDeviceIdentity(service string) *DeviceIdentity {
	return &DeviceIdentity{service: service}
}

// DeviceID returns the stored identity, generating and saving one on first use
func (d *DeviceIdentity) DeviceID() (string, error) {
	id, err := d.Lookup()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoDeviceID) {
		return "", err
	}

	id = uuid.NewString()
	if err := keyring.Set(d.service, deviceAccount, id); err != nil {
		return "", fmt.Errorf("failed to save device id to keyring: %w", err)
	}
	return id, nil
}

// Lookup returns the stored identity without creating one
func (d *DeviceIdentity) Lookup() (string, error) {
	id, err := keyring.Get(d.service, deviceAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoDeviceID
	}
	if err != nil {
		return "", fmt.Errorf("failed to read device id from keyring: %w", err)
	}
	return id, nil
}

// Reset deletes the stored identity. Device-bound wallets sealed under the
// old identity can no longer be opened.
func (d *DeviceIdentity) Reset() error {
	err := keyring.Delete(d.service, deviceAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoDeviceID
	}
	return err
}

// Static is a Provider with a fixed identity, used for configured overrides
type Static string

func (s Static) DeviceID() (string, error) {
	return string(s), nil
}
