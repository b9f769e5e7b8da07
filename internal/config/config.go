package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	EnvPrefix = "SEEDLOCK_"

	DefaultTarget         = 250 * time.Millisecond
	DefaultKeyringService = "seedlock"
	DefaultLogLevel       = "warn"
	defaultDirName        = ".seedlock"
	defaultDBName         = "wallet.db"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full seedlock configuration
type Config struct {
	Storage     Storage     `envPrefix:"STORAGE_" yaml:"storage"`
	Calibration Calibration `envPrefix:"CALIBRATION_" yaml:"calibration"`
	Device      Device      `envPrefix:"DEVICE_" yaml:"device"`
	Log         Log         `envPrefix:"LOG_" yaml:"log"`

	// File is the optional YAML file merged below env and flags
	File string `env:"CONFIG" yaml:"-"`
}

// Storage locates the wallet database
type Storage struct {
	Path string `env:"PATH" yaml:"path"`
}

// Calibration tunes the key-derivation benchmark
type Calibration struct {
	// Target is the wall-clock budget for one key derivation
	Target time.Duration `env:"TARGET" yaml:"target"`
}

// Device configures the device identity used for device-bound wallets
type Device struct {
	// ID overrides the keyring-backed identity when set
	ID             string `env:"ID" yaml:"id"`
	KeyringService string `env:"KEYRING_SERVICE" yaml:"keyring_service"`
}

type Log struct {
	Level string `env:"LEVEL" yaml:"level"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Storage: Storage{Path: defaultDBPath()},
		Calibration: Calibration{
			Target: DefaultTarget,
		},
		Device: Device{KeyringService: DefaultKeyringService},
		Log:    Log{Level: DefaultLogLevel},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDBName
	}
	return filepath.Join(home, defaultDirName, defaultDBName)
}

func (c *Config) validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is empty", ErrInvalidConfig)
	}
	if c.Calibration.Target < 10*time.Millisecond || c.Calibration.Target > 10*time.Second {
		return fmt.Errorf("%w: calibration target %s outside [10ms, 10s]", ErrInvalidConfig, c.Calibration.Target)
	}
	if c.Device.KeyringService == "" {
		return fmt.Errorf("%w: keyring service is empty", ErrInvalidConfig)
	}
	return nil
}
