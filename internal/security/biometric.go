package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/illarion/companion/internal/result"
	"go.uber.org/zap"
)

// AvailabilityStatus is the platform's answer to "can biometrics be used"
type AvailabilityStatus int

const (
	BiometricAvailable              AvailabilityStatus = 0
	BiometricHardwareUnavailable    AvailabilityStatus = 1
	BiometricNoneEnrolled           AvailabilityStatus = 11
	BiometricNoHardware             AvailabilityStatus = 12
	BiometricSecurityUpdateRequired AvailabilityStatus = 15
	BiometricUnsupported            AvailabilityStatus = -2
	BiometricStatusUnknown          AvailabilityStatus = -1
)

// AuthCode is a platform authentication error code
type AuthCode int

const (
	AuthHardwareUnavailable AuthCode = 1
	AuthUnableToProcess     AuthCode = 2
	AuthTimeout             AuthCode = 3
	AuthCanceled            AuthCode = 5
	AuthLockout             AuthCode = 7
	AuthLockoutPermanent    AuthCode = 9
	AuthUserCanceled        AuthCode = 10
	AuthNoBiometrics        AuthCode = 11
	AuthNegativeButton      AuthCode = 13
)

// AuthError is returned by Platform.Authenticate when the challenge fails
type AuthError struct {
	Code    AuthCode
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("biometric authentication failed (%d): %s", e.Code, e.Message)
}

// PromptInfo describes the platform authentication prompt
type PromptInfo struct {
	Title       string
	Subtitle    string
	Description string
}

// DefaultPrompt is shown when the caller does not configure one
var DefaultPrompt = PromptInfo{
	Title:    "Log in",
	Subtitle: "Log in to continue",
}

// Platform is the host biometric capability
type Platform interface {
	// CanAuthenticate reports the current availability status
	CanAuthenticate() AvailabilityStatus
	// Authenticate runs a challenge and blocks until it resolves or ctx is done.
	// A nil error means success; failures should be *AuthError.
	Authenticate(ctx context.Context, prompt PromptInfo) error
}

// UnsupportedPlatform is the Platform for hosts without biometric hardware
type UnsupportedPlatform struct{}

// CanAuthenticate implements Platform
func (UnsupportedPlatform) CanAuthenticate() AvailabilityStatus {
	return BiometricNoHardware
}

// Authenticate implements Platform
func (UnsupportedPlatform) Authenticate(context.Context, PromptInfo) error {
	return &AuthError{Code: AuthHardwareUnavailable, Message: "No biometrics hardware detected"}
}

// BiometricBackend defers enrollment and verification to the platform
type BiometricBackend struct {
	platform Platform
	prompt   PromptInfo
	log      *zap.Logger
}

// NewBiometricBackend creates a biometric backend.
// A nil platform behaves like UnsupportedPlatform.
func NewBiometricBackend(platform Platform, prompt PromptInfo, log *zap.Logger) *BiometricBackend {
	if platform == nil {
		platform = UnsupportedPlatform{}
	}
	if prompt == (PromptInfo{}) {
		prompt = DefaultPrompt
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BiometricBackend{platform: platform, prompt: prompt, log: log}
}

// Type implements Backend
func (b *BiometricBackend) Type() Type {
	return TypeBiometric
}

// ActorAvailable implements Backend
func (b *BiometricBackend) ActorAvailable() result.Result {
	switch status := b.platform.CanAuthenticate(); status {
	case BiometricAvailable:
		return result.OK
	case BiometricHardwareUnavailable:
		return result.Fail(result.KindUnavailable, "Biometrics hardware in use by other app.")
	case BiometricNoneEnrolled:
		return result.Fail(result.KindNotInitialized, "No biometrics enrolled")
	case BiometricNoHardware:
		return result.Fail(result.KindUnavailable, "No biometrics hardware detected")
	case BiometricUnsupported:
		return result.Fail(result.KindUnavailable, "Biometrics hardware does not satisfy this app's requirements")
	case BiometricSecurityUpdateRequired:
		return result.Fail(result.KindUnavailable, "Outdated software for biometrics hardware detected. Update required.")
	case BiometricStatusUnknown:
		return result.Fail(result.KindOther, "Unknown error occurred. Please try again.")
	default:
		b.log.Warn("received unknown biometrics status code", zap.Int("status", int(status)))
		return result.Fail(result.KindOther, "Unknown error occurred. Please try again.")
	}
}

// HasCredentials implements Backend. Biometrics count as set up unless the
// platform reports nothing enrolled.
func (b *BiometricBackend) HasCredentials(_ context.Context) (bool, error) {
	return b.platform.CanAuthenticate() != BiometricNoneEnrolled, nil
}

// SetCredentials implements Backend. Enrollment happens on the platform.
func (b *BiometricBackend) SetCredentials(context.Context, Token, Token, int) result.Result {
	return result.OK
}

// Verify implements Backend. The token is ignored; every call runs a fresh
// platform challenge.
func (b *BiometricBackend) Verify(ctx context.Context, _ Token) result.Result {
	err := b.platform.Authenticate(ctx, b.prompt)
	if err == nil {
		return result.OK
	}
	if ctx.Err() != nil {
		return result.Fail(result.KindBadInput, "Authentication was cancelled")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return result.Fail(result.KindOther, err.Error())
	}

	switch authErr.Code {
	case AuthLockoutPermanent, AuthCanceled, AuthUserCanceled, AuthNegativeButton, AuthTimeout, AuthUnableToProcess:
		return result.Fail(result.KindBadInput, authErr.Message)
	case AuthLockout:
		return result.Fail(result.KindLocked, authErr.Message)
	case AuthHardwareUnavailable:
		return result.Fail(result.KindUnavailable, authErr.Message)
	case AuthNoBiometrics:
		return result.Fail(result.KindNotInitialized, authErr.Message)
	default:
		return result.Fail(result.KindOther, authErr.Message)
	}
}
