package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/companion/internal/crypto"
	"golang.org/x/term"
)

// PasswordEnv may hold the password for non-interactive use
const PasswordEnv = "COMPANION_PASSWORD"

// ErrPasswordMismatch is returned when a confirmation differs
var ErrPasswordMismatch = errors.New("passwords do not match")

// ReadPassword prompts on stderr and reads a password from the terminal
// without echo
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password and its confirmation. Only the
// returned slice survives; the confirmation is cleared.
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	confirm, err := ReadPassword("Confirm password: ")
	defer crypto.ClearBytes(confirm)
	if err != nil {
		crypto.ClearBytes(password)
		return nil, err
	}
	if !crypto.ConstantTimeCompare(password, confirm) {
		crypto.ClearBytes(password)
		return nil, ErrPasswordMismatch
	}
	return password, nil
}

// GetPasswordFromEnv returns a copy of $COMPANION_PASSWORD, or nil when unset
func GetPasswordFromEnv() []byte {
	if password, ok := os.LookupEnv(PasswordEnv); ok && password != "" {
		return []byte(password)
	}
	return nil
}
