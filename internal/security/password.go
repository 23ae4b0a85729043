package security

import (
	"context"
	"fmt"

	"github.com/illarion/companion/internal/result"
)

// PasswordBackend stores a salted Argon2id hash in Preferences
type PasswordBackend struct {
	prefs Preferences
}

// NewPasswordBackend creates a password backend over prefs
func NewPasswordBackend(prefs Preferences) *PasswordBackend {
	return &PasswordBackend{prefs: prefs}
}

// Type implements Backend
func (b *PasswordBackend) Type() Type {
	return TypePassword
}

// ActorAvailable implements Backend. Passwords have no environmental dependency.
func (b *PasswordBackend) ActorAvailable() result.Result {
	return result.OK
}

// HasCredentials implements Backend
func (b *PasswordBackend) HasCredentials(_ context.Context) (bool, error) {
	_, ok, err := b.prefs.Get(HashKey)
	if err != nil {
		return false, fmt.Errorf("failed to read password hash: %w", err)
	}
	return ok, nil
}

// SetCredentials implements Backend
func (b *PasswordBackend) SetCredentials(ctx context.Context, oldToken, newToken Token, clearance int) result.Result {
	has, err := b.HasCredentials(ctx)
	if err != nil {
		return result.FromError(result.KindIO, err)
	}

	check := result.OK
	// Must provide the old password when one exists and the caller is not logged in
	if has && clearance == 0 {
		if isNilToken(oldToken) {
			return result.Fail(result.KindBadInput,
				"Existing credentials detected. Caller must provide old verification token for verification.")
		}
		check = b.Verify(ctx, oldToken)
	}

	return check.Pipe(func() result.Result {
		token, ok := newToken.(*PasswordToken)
		if !ok || token == nil {
			return result.Fail(result.KindBadInput, "Password actor requires password verification token")
		}
		err := b.prefs.SetAll(map[string]string{
			HashKey: token.HashString(),
			SaltKey: token.SaltString(),
		})
		if err != nil {
			return result.Failf(result.KindIO, "failed to store credentials: %v", err)
		}
		return result.OK
	})
}

// Verify implements Backend
func (b *PasswordBackend) Verify(ctx context.Context, token Token) result.Result {
	if err := ctx.Err(); err != nil {
		return result.Fail(result.KindCancelled, "verification was cancelled")
	}

	given, ok := token.(*PasswordToken)
	if !ok || given == nil {
		return result.Fail(result.KindBadInput, "Password actor requires password verification token")
	}

	hash, ok, err := b.prefs.Get(HashKey)
	if err != nil {
		return result.Failf(result.KindIO, "failed to read password hash: %v", err)
	}
	if !ok {
		return result.Fail(result.KindNotInitialized, "Did not initialize security type")
	}
	salt, ok, err := b.prefs.Get(SaltKey)
	if err != nil {
		return result.Failf(result.KindIO, "failed to read password salt: %v", err)
	}
	if !ok {
		return result.Fail(result.KindNotInitialized, "Did not initialize salt")
	}

	known, err := PasswordTokenFromPersisted(hash, salt)
	if err != nil {
		return result.Failf(result.KindOther, "stored credentials are corrupt: %v", err)
	}

	if !given.Equal(known) {
		return result.Fail(result.KindIncorrect, "Incorrect password")
	}
	return result.OK
}

func isNilToken(t Token) bool {
	if t == nil {
		return true
	}
	if pt, ok := t.(*PasswordToken); ok && pt == nil {
		return true
	}
	return false
}
