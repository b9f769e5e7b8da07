package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/seedlock/internal/config"
	"github.com/illarion/seedlock/internal/core"
	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/envelope"
	"github.com/illarion/seedlock/internal/seed"
)

// GetPassword retrieves password from environment or prompts user
// The caller is responsible for calling crypto.ClearBytes on the returned password
func GetPassword(prompt string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, core.ErrPasswordRequired
	}
	return password, nil
}

// GetNewPassword retrieves a password for sealing: environment first, then a
// prompt with confirmation
func GetNewPassword(prompt string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return core.ReadPasswordConfirm(prompt)
}

// confirm asks a yes/no question; anything but y or yes means no
func confirm(in *core.LineReader, prompt string) (bool, error) {
	answer, err := in.ReadLine(prompt)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// HandleError prints a user-facing message for err and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrAuthentication):
		fmt.Fprintf(os.Stderr, "Error: %s\n", core.ErrAuthentication)
	case errors.Is(err, core.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'seedlock status' to list stored wallets\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use --force to replace it\n")
	case errors.Is(err, envelope.ErrFormat):
		fmt.Fprintf(os.Stderr, "Error: not a valid seedlock envelope: %s\n", err)
	case errors.Is(err, crypto.ErrPlatformUnavailable):
		fmt.Fprintf(os.Stderr, "Error: required cryptography is unavailable on this platform: %s\n", err)
	case errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Check --config, SEEDLOCK_* variables and flags\n")
	case errors.Is(err, seed.ErrInvalidMnemonic):
		fmt.Fprintf(os.Stderr, "Error: the mnemonic failed its BIP-39 checksum\n")
	case errors.Is(err, core.ErrInvalidSecret):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "The wallet decrypted but its contents are not a usable seed\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
