package security

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/illarion/companion/internal/crypto"
)

// Token is an in-memory credential used for a single setup or verify call.
// Tokens are never persisted; only the password hash and salt strings are.
type Token interface {
	Type() Type
}

// SaltSource yields the salt for a fresh password token.
// A nil salt (or a nil SaltSource) means a new random salt.
type SaltSource func() ([]byte, error)

// ExplicitSalt uses the given salt as-is
func ExplicitSalt(salt []byte) SaltSource {
	return func() ([]byte, error) {
		return salt, nil
	}
}

// StoredSalt looks up the persisted password salt. When none is stored the
// token gets a fresh salt, which makes the token suitable for first-time setup.
func StoredSalt(prefs Preferences) SaltSource {
	return func() ([]byte, error) {
		encoded, ok, err := prefs.Get(SaltKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read stored salt: %w", err)
		}
		if !ok {
			return nil, nil
		}
		return DecodeString(encoded)
	}
}

// StoredHasher returns a hasher using the cost parameters recorded in the
// persisted password hash, so a password keeps verifying after the
// configured parameters change. Without a stored hash it returns fallback.
func StoredHasher(prefs Preferences, fallback *crypto.Hasher) (*crypto.Hasher, error) {
	encoded, ok, err := prefs.Get(HashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored hash: %w", err)
	}
	if !ok {
		return fallback, nil
	}
	raw, err := DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid stored hash: %w", err)
	}
	params, err := crypto.DecodeParams(raw)
	if err != nil {
		return nil, err
	}
	return crypto.NewHasher(params), nil
}

// PasswordToken wraps a password hash
type PasswordToken struct {
	hash crypto.Hash
}

// NewPasswordToken hashes password on a background goroutine and returns when
// the hash is ready or ctx is done. The password slice is copied, so callers
// may clear it as soon as this returns.
func NewPasswordToken(ctx context.Context, hasher *crypto.Hasher, password []byte, salt SaltSource) (*PasswordToken, error) {
	var s []byte
	if salt != nil {
		var err error
		if s, err = salt(); err != nil {
			return nil, err
		}
	}

	pw := append([]byte(nil), password...)
	done := make(chan crypto.Hash, 1)
	go func() {
		defer crypto.ClearBytes(pw)
		done <- hasher.Hash(pw, s)
	}()

	select {
	case h := <-done:
		return &PasswordToken{hash: h}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PasswordTokenFromPersisted rebuilds a token from its stored strings
// without hashing anything.
func PasswordTokenFromPersisted(hash, salt string) (*PasswordToken, error) {
	h, err := DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("invalid stored hash: %w", err)
	}
	s, err := DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("invalid stored salt: %w", err)
	}
	return &PasswordToken{hash: crypto.Hash{Encoded: h, Salt: s}}, nil
}

// Type implements Token
func (t *PasswordToken) Type() Type {
	return TypePassword
}

// Equal compares hash bytes only. The salt is already part of the hash, so
// two tokens with equal hashes and different salt fields are equal.
func (t *PasswordToken) Equal(other *PasswordToken) bool {
	if t == nil || other == nil {
		return false
	}
	return crypto.ConstantTimeCompare(t.hash.Encoded, other.hash.Encoded)
}

// HashString returns the storage form of the hash
func (t *PasswordToken) HashString() string {
	return EncodeBytes(t.hash.Encoded)
}

// SaltString returns the storage form of the salt
func (t *PasswordToken) SaltString() string {
	return EncodeBytes(t.hash.Salt)
}

func (t *PasswordToken) String() string {
	return t.HashString()
}

// EncodeBytes converts raw bytes to their lossless storage string
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeString reverses EncodeBytes
func DecodeString(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
