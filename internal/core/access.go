package core

import (
	"context"

	"github.com/illarion/companion/internal/result"
	"github.com/illarion/companion/internal/security"
)

// Access describes what a method allows right now
type Access struct {
	Method    security.Type
	Clearance int
	Setup     []security.Type
	NotSetup  []security.Type
	CanLogin  bool
	CanSetup  bool
	CanReset  bool
}

// token builds the credential for method t. Only passwords carry one.
// verify selects the cost parameters of the stored hash instead of the
// configured ones.
func (c *Companion) token(ctx context.Context, t security.Type, password []byte, verify bool) result.DataResult[security.Token] {
	if t != security.TypePassword {
		return result.With[security.Token](nil)
	}
	if len(password) == 0 {
		return result.FailData[security.Token](result.Fail(result.KindBadInput, "Password must not be empty"))
	}

	hasher, salt := c.hasher, security.SaltSource(nil)
	if verify {
		var err error
		if hasher, err = security.StoredHasher(c.prefs, c.hasher); err != nil {
			return result.FailData[security.Token](result.Failf(result.KindOther, "stored credentials are corrupt: %v", err))
		}
		salt = security.StoredSalt(c.prefs)
	}

	tok, err := security.NewPasswordToken(ctx, hasher, password, salt)
	if err != nil {
		if ctx.Err() != nil {
			return result.FailData[security.Token](result.Fail(result.KindCancelled, "Hashing was cancelled"))
		}
		return result.FailData[security.Token](result.FromError(result.KindIO, err))
	}
	return result.With[security.Token](tok)
}

func switchResult(s *security.Session, t security.Type) result.Result {
	if err := s.SwitchTo(t); err != nil {
		return result.FromError(result.KindBadInput, err)
	}
	return s.ActorAvailable()
}

// Login verifies password (ignored for biometrics) against method t and
// raises clearance on success
func (c *Companion) Login(ctx context.Context, t security.Type, password []byte) result.Result {
	return c.actor.WithLock(func(s *security.Session) result.Result {
		return switchResult(s, t).Pipe(func() result.Result {
			return result.Then(c.token(ctx, t, password, true), func(tok security.Token) result.Result {
				return s.Verify(ctx, tok)
			})
		})
	})
}

// SetCredentials sets up or changes the credentials of method t.
// oldPassword may be empty when no credentials exist yet or when logged in.
// Otherwise it is verified first, which logs the caller in. A new password
// always gets a fresh salt.
func (c *Companion) SetCredentials(ctx context.Context, t security.Type, oldPassword, newPassword []byte) result.Result {
	return c.actor.WithLock(func(s *security.Session) result.Result {
		return switchResult(s, t).Pipe(func() result.Result {
			var old security.Token
			if len(oldPassword) > 0 {
				r := c.token(ctx, t, oldPassword, true)
				if !r.Succeeded() {
					return r.Result
				}
				old = r.Data
			}
			check := result.OK
			if old != nil && s.Clearance() == 0 {
				check = s.Verify(ctx, old)
			}
			return check.Pipe(func() result.Result {
				return result.Then(c.token(ctx, t, newPassword, false), func(tok security.Token) result.Result {
					return s.SetCredentials(ctx, old, tok)
				})
			})
		})
	})
}

// Logout drops clearance
func (c *Companion) Logout() {
	c.actor.Logout()
}

// Access reports the state of method t. Selecting t is a side effect.
func (c *Companion) Access(ctx context.Context, t security.Type) (*Access, error) {
	var (
		access *Access
		err    error
	)
	r := c.actor.WithLock(func(s *security.Session) result.Result {
		if err = s.SwitchTo(t); err != nil {
			return result.FromError(result.KindBadInput, err)
		}
		access = &Access{Method: t, Clearance: s.Clearance()}
		if access.Setup, err = s.SetupMethods(ctx); err != nil {
			return result.FromError(result.KindIO, err)
		}
		if access.NotSetup, err = s.NotSetupMethods(ctx); err != nil {
			return result.FromError(result.KindIO, err)
		}
		if access.CanLogin, err = s.CanLogin(ctx); err != nil {
			return result.FromError(result.KindIO, err)
		}
		if access.CanSetup, err = s.CanSetup(ctx); err != nil {
			return result.FromError(result.KindIO, err)
		}
		if access.CanReset, err = s.CanReset(ctx); err != nil {
			return result.FromError(result.KindIO, err)
		}
		return result.OK
	})
	if !r.Succeeded() {
		return nil, err
	}
	return access, nil
}
