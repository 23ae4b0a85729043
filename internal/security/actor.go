package security

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/illarion/companion/internal/crypto"
	"github.com/illarion/companion/internal/result"
	"go.uber.org/zap"
)

var ErrNoBackend = errors.New("internal problem with security actor: no method selected")

const internalProblem = "Internal problem with security actor"

// Actor is the security facade. It holds the selected backend and the
// clearance level. Construct one per process and inject it.
type Actor struct {
	deps Dependencies
	log  *zap.Logger

	mu        sync.Mutex // guards backend, clearance
	backend   Backend
	clearance int

	subMu   sync.Mutex
	subs    map[int]chan int
	nextSub int
}

// NewActor creates an actor with no method selected
func NewActor(deps Dependencies) *Actor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Hasher == nil {
		deps.Hasher = crypto.NewHasher(crypto.DefaultParams())
	}
	if deps.Methods == 0 {
		deps.Methods = AllTypes
	}
	return &Actor{
		deps: deps,
		log:  deps.Logger.Named("security"),
		subs: make(map[int]chan int),
	}
}

// Session exposes actor operations inside a critical section.
// It is only valid during the WithLock callback.
type Session struct {
	a *Actor
}

// WithLock runs fn while holding the actor lock, so a switch followed by
// checks and a credential change is observed atomically by other callers.
func (a *Actor) WithLock(fn func(s *Session) result.Result) result.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(&Session{a: a})
}

// SwitchTo selects the active method. Clearance is left untouched.
func (s *Session) SwitchTo(t Type) error {
	if s.a.deps.Methods.IsForbidden(t) {
		return fmt.Errorf("security type %s is not allowed", t)
	}
	b := newBackend(t, s.a.deps)
	if b == nil {
		return fmt.Errorf("could not find security type for %d", int(t))
	}
	s.a.backend = b
	s.a.log.Debug("switched security method", zap.Stringer("type", t))
	return nil
}

// Type returns the active method, TypeUndefined when none is selected
func (s *Session) Type() Type {
	if s.a.backend == nil {
		return TypeUndefined
	}
	return s.a.backend.Type()
}

// Clearance returns the current clearance level
func (s *Session) Clearance() int {
	return s.a.clearance
}

// ActorAvailable delegates to the active backend
func (s *Session) ActorAvailable() result.Result {
	if s.a.backend == nil {
		return result.Fail(result.KindOther, internalProblem)
	}
	return s.a.backend.ActorAvailable()
}

// HasCredentials delegates to the active backend
func (s *Session) HasCredentials(ctx context.Context) (bool, error) {
	if s.a.backend == nil {
		return false, ErrNoBackend
	}
	return s.a.backend.HasCredentials(ctx)
}

// SetCredentials refuses to set up a method while logged out if any method
// already has credentials, then delegates to the active backend.
func (s *Session) SetCredentials(ctx context.Context, oldToken, newToken Token) result.Result {
	if s.a.backend == nil {
		return result.Fail(result.KindOther, internalProblem)
	}

	if s.a.clearance == 0 {
		exists, err := s.anyCredentials(ctx)
		if err != nil {
			return result.Failf(result.KindIO, "failed to check existing credentials: %v", err)
		}
		if exists {
			return result.Fail(result.KindBadInput,
				"Cannot reset credentials: Another method has already been setup. Login first using that method.")
		}
	}

	r := s.a.backend.SetCredentials(ctx, oldToken, newToken, s.a.clearance)
	if r.Succeeded() {
		s.a.log.Info("credentials updated", zap.Stringer("type", s.a.backend.Type()))
	} else {
		s.a.log.Warn("credential update refused", zap.Stringer("type", s.a.backend.Type()), zap.Stringer("kind", r.Kind))
	}
	return r
}

// Verify delegates to the active backend and raises clearance on success
func (s *Session) Verify(ctx context.Context, token Token) result.Result {
	if s.a.backend == nil {
		return result.Fail(result.KindOther, internalProblem)
	}
	r := s.a.backend.Verify(ctx, token)
	if r.Succeeded() {
		s.a.setClearance(1)
		s.a.log.Info("verification succeeded", zap.Stringer("type", s.a.backend.Type()))
	} else {
		s.a.log.Warn("verification failed", zap.Stringer("type", s.a.backend.Type()), zap.Stringer("kind", r.Kind))
	}
	return r
}

// Logout drops clearance to 0
func (s *Session) Logout() {
	s.a.setClearance(0)
}

// SetupMethods returns the methods that have credentials
func (s *Session) SetupMethods(ctx context.Context) ([]Type, error) {
	return s.filterTypes(ctx, true)
}

// NotSetupMethods returns the methods without credentials
func (s *Session) NotSetupMethods(ctx context.Context) ([]Type, error) {
	return s.filterTypes(ctx, false)
}

// CanLogin reports whether the active method has credentials
func (s *Session) CanLogin(ctx context.Context) (bool, error) {
	return s.HasCredentials(ctx)
}

// CanSetup reports whether credentials may be created for the active method
func (s *Session) CanSetup(ctx context.Context) (bool, error) {
	has, err := s.HasCredentials(ctx)
	if err != nil || has {
		return false, err
	}
	if s.a.clearance > 0 {
		return true, nil
	}
	exists, err := s.anyCredentials(ctx)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// CanReset reports whether the active method's credentials may be changed
// without the old credential
func (s *Session) CanReset(ctx context.Context) (bool, error) {
	has, err := s.HasCredentials(ctx)
	if err != nil {
		return false, err
	}
	return has && s.a.clearance > 0, nil
}

// MethodName returns the display name of the active method
func (s *Session) MethodName() (string, error) {
	return MethodName(s.Type())
}

// filterTypes checks each type on a throwaway backend
func (s *Session) filterTypes(ctx context.Context, wantSetup bool) ([]Type, error) {
	var out []Type
	for _, t := range s.a.deps.Methods.Allowed() {
		has, err := newBackend(t, s.a.deps).HasCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s credentials: %w", t, err)
		}
		if has == wantSetup {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Session) anyCredentials(ctx context.Context) (bool, error) {
	setup, err := s.SetupMethods(ctx)
	if err != nil {
		return false, err
	}
	return len(setup) > 0, nil
}

// SwitchTo selects the active method
func (a *Actor) SwitchTo(t Type) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (&Session{a: a}).SwitchTo(t)
}

// Type returns the active method
func (a *Actor) Type() Type {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (&Session{a: a}).Type()
}

// ActorAvailable delegates to the active backend
func (a *Actor) ActorAvailable() result.Result {
	return a.WithLock(func(s *Session) result.Result { return s.ActorAvailable() })
}

// HasCredentials delegates to the active backend
func (a *Actor) HasCredentials(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (&Session{a: a}).HasCredentials(ctx)
}

// SetCredentials sets credentials on the active backend
func (a *Actor) SetCredentials(ctx context.Context, oldToken, newToken Token) result.Result {
	return a.WithLock(func(s *Session) result.Result { return s.SetCredentials(ctx, oldToken, newToken) })
}

// Verify verifies token against the active backend
func (a *Actor) Verify(ctx context.Context, token Token) result.Result {
	return a.WithLock(func(s *Session) result.Result { return s.Verify(ctx, token) })
}

// Logout drops clearance to 0
func (a *Actor) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setClearance(0)
}

// SetupMethods returns the methods that have credentials
func (a *Actor) SetupMethods(ctx context.Context) ([]Type, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (&Session{a: a}).SetupMethods(ctx)
}

// NotSetupMethods returns the methods without credentials
func (a *Actor) NotSetupMethods(ctx context.Context) ([]Type, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (&Session{a: a}).NotSetupMethods(ctx)
}

// NewPasswordToken hashes password with the persisted salt and cost
// parameters when a hash is stored, and with the actor's hasher otherwise
func (a *Actor) NewPasswordToken(ctx context.Context, password []byte) (*PasswordToken, error) {
	hasher, err := StoredHasher(a.deps.Preferences, a.deps.Hasher)
	if err != nil {
		return nil, err
	}
	return NewPasswordToken(ctx, hasher, password, StoredSalt(a.deps.Preferences))
}

// Clearance returns the current clearance level
func (a *Actor) Clearance() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clearance
}

// Subscribe returns a stream of clearance values, starting with the current
// one. Slow readers only see the latest value. Call cancel to unsubscribe.
func (a *Actor) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 1)

	a.mu.Lock()
	ch <- a.clearance
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	a.subMu.Unlock()
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// setClearance must be called with a.mu held
func (a *Actor) setClearance(level int) {
	if a.clearance == level {
		return
	}
	a.clearance = level

	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- level
	}
}
