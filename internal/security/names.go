// Package security holds the input and filesystem checks applied around the
// wallet store.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"
)

// MaxNameLen bounds wallet names in bytes
const MaxNameLen = 64

var (
	ErrEmptyName           = errors.New("empty name not allowed")
	ErrNameTooLong         = errors.New("name too long")
	ErrNameWhitespace      = errors.New("name has leading or trailing whitespace")
	ErrNameCharacters      = errors.New("name contains control characters")
	ErrInsecurePermissions = errors.New("file is accessible by other users")
)

// ValidateName checks a user-provided wallet name. Names are stored as bbolt
// keys and echoed to the terminal, so control characters are rejected.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrNameTooLong, len(name), MaxNameLen)
	}
	if strings.TrimSpace(name) != name {
		return ErrNameWhitespace
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrNameCharacters
		}
	}
	return nil
}

// CheckPermissions reports ErrInsecurePermissions when path is readable or
// writable by group or others. A missing file is not an error.
func CheckPermissions(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return fmt.Errorf("%w: %s has mode %04o", ErrInsecurePermissions, path, mode)
	}
	return nil
}
