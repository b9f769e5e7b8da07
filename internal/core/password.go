package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/illarion/seedlock/internal/crypto"
	"golang.org/x/term"
)

// PasswordEnv names the environment variable consulted before prompting
const PasswordEnv = "SEEDLOCK_PASSWORD"

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	if len(password1) == 0 {
		return nil, ErrPasswordRequired
	}

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	// Return a copy of the password
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// GetPasswordFromEnv reads the password from SEEDLOCK_PASSWORD
func GetPasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	// Return a copy to avoid issues when clearing the bytes
	result := make([]byte, len(password))
	copy(result, []byte(password))
	return result
}

// LineReader reads user input line by line from one buffered source
type LineReader struct {
	r           *bufio.Reader
	interactive bool
}

// NewLineReader wraps in. Prompts are only shown when in is a terminal.
func NewLineReader(in io.Reader) *LineReader {
	var interactive bool
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &LineReader{r: bufio.NewReader(in), interactive: interactive}
}

// Interactive reports whether the input is a terminal
func (l *LineReader) Interactive() bool {
	return l.interactive
}

// ReadLine reads one trimmed line. A final line without a newline is
// returned as is; an exhausted input yields "".
func (l *LineReader) ReadLine(prompt string) (string, error) {
	if l.interactive && prompt != "" {
		fmt.Fprint(os.Stderr, prompt)
	}
	line, err := l.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
