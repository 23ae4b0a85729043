package security

import (
	"context"

	"github.com/illarion/companion/internal/crypto"
	"github.com/illarion/companion/internal/result"
	"go.uber.org/zap"
)

// Persisted keys for the password backend
const (
	HashKey = "PASS_ACTOR_HASH"
	SaltKey = "PASS_ACTOR_SALT"
)

// Preferences is the durable key-value store holding password credentials
type Preferences interface {
	// Get returns the value for key and whether it exists
	Get(key string) (string, bool, error)
	// SetAll writes all values, overwriting existing ones
	SetAll(values map[string]string) error
}

// Backend is one authentication mechanism
type Backend interface {
	Type() Type

	// ActorAvailable reports whether the method can be used right now
	ActorAvailable() result.Result

	// HasCredentials reports whether a credential has been set up
	HasCredentials(ctx context.Context) (bool, error)

	// SetCredentials stores newToken. When credentials exist and clearance
	// is 0, oldToken must verify first.
	SetCredentials(ctx context.Context, oldToken, newToken Token, clearance int) result.Result

	// Verify checks token. Some backends ignore the token entirely.
	Verify(ctx context.Context, token Token) result.Result
}

// Dependencies are the collaborators backends need
type Dependencies struct {
	Preferences Preferences
	Platform    Platform
	Prompt      PromptInfo
	Hasher      *crypto.Hasher
	Logger      *zap.Logger
	// Methods limits the selectable types; zero allows all of them
	Methods CompactTypeSet
}

// newBackend maps a type to a fresh backend instance, nil if unknown.
// Adding a Type means adding it here and in MethodName.
func newBackend(t Type, deps Dependencies) Backend {
	switch t {
	case TypePassword:
		return NewPasswordBackend(deps.Preferences)
	case TypeBiometric:
		return NewBiometricBackend(deps.Platform, deps.Prompt, deps.Logger)
	default:
		return nil
	}
}
