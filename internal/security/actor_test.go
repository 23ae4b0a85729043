package security

import (
	"context"
	"testing"
	"time"

	"github.com/illarion/companion/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestActor(prefs *memPrefs, platform Platform) *Actor {
	return NewActor(Dependencies{
		Preferences: prefs,
		Platform:    platform,
		Hasher:      testHasher(),
	})
}

func TestActorUndefinedBackend(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(newMemPrefs(), nil)

	assert.Equal(t, TypeUndefined, a.Type())

	r := a.ActorAvailable()
	assert.Equal(t, result.KindOther, r.Kind)
	assert.Equal(t, "Internal problem with security actor", r.Message)

	_, err := a.HasCredentials(ctx)
	assert.ErrorIs(t, err, ErrNoBackend)

	assert.Equal(t, result.KindOther, a.SetCredentials(ctx, nil, nil).Kind)
	assert.Equal(t, result.KindOther, a.Verify(ctx, nil).Kind)
	assert.Equal(t, 0, a.Clearance())
}

func TestActorSwitchToUnknownType(t *testing.T) {
	a := newTestActor(newMemPrefs(), nil)
	require.NoError(t, a.SwitchTo(TypePassword))

	assert.Error(t, a.SwitchTo(Type(99)))
	assert.Equal(t, TypePassword, a.Type())
}

func TestActorBootstrapSetup(t *testing.T) {
	ctx := context.Background()
	prefs := newMemPrefs()
	a := newTestActor(prefs, &fakePlatform{status: BiometricNoneEnrolled})

	setup, err := a.SetupMethods(ctx)
	require.NoError(t, err)
	assert.Empty(t, setup)

	require.NoError(t, a.SwitchTo(TypePassword))
	tok, err := a.NewPasswordToken(ctx, []byte("hunter2"))
	require.NoError(t, err)

	r := a.SetCredentials(ctx, nil, tok)
	require.True(t, r.Succeeded(), r.String())

	setup, err = a.SetupMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Type{TypePassword}, setup)

	notSetup, err := a.NotSetupMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Type{TypeBiometric}, notSetup)
}

func TestActorCrossBackendGuard(t *testing.T) {
	ctx := context.Background()
	prefs := newMemPrefs()
	a := newTestActor(prefs, &fakePlatform{status: BiometricNoneEnrolled})

	require.NoError(t, a.SwitchTo(TypePassword))
	tok, err := a.NewPasswordToken(ctx, []byte("hunter2"))
	require.NoError(t, err)
	require.True(t, a.SetCredentials(ctx, nil, tok).Succeeded())

	require.NoError(t, a.SwitchTo(TypeBiometric))
	r := a.SetCredentials(ctx, nil, nil)
	assert.Equal(t, result.Failed, r.Status)
	assert.Equal(t, result.KindBadInput, r.Kind)
	assert.Equal(t, "Cannot reset credentials: Another method has already been setup. Login first using that method.", r.Message)

	// logged in, the guard no longer applies
	require.NoError(t, a.SwitchTo(TypePassword))
	login, err := a.NewPasswordToken(ctx, []byte("hunter2"))
	require.NoError(t, err)
	require.True(t, a.Verify(ctx, login).Succeeded())

	require.NoError(t, a.SwitchTo(TypeBiometric))
	assert.True(t, a.SetCredentials(ctx, nil, nil).Succeeded())
}

func TestActorClearanceTransitions(t *testing.T) {
	ctx := context.Background()
	prefs := newMemPrefs()
	a := newTestActor(prefs, nil)
	require.NoError(t, a.SwitchTo(TypePassword))

	tok, err := a.NewPasswordToken(ctx, []byte("right"))
	require.NoError(t, err)
	require.True(t, a.SetCredentials(ctx, nil, tok).Succeeded())
	assert.Equal(t, 0, a.Clearance())

	wrong, err := a.NewPasswordToken(ctx, []byte("wrong"))
	require.NoError(t, err)
	assert.Equal(t, result.KindIncorrect, a.Verify(ctx, wrong).Kind)
	assert.Equal(t, 0, a.Clearance())

	right, err := a.NewPasswordToken(ctx, []byte("right"))
	require.NoError(t, err)
	require.True(t, a.Verify(ctx, right).Succeeded())
	assert.Equal(t, 1, a.Clearance())

	// a failed verification does not log the user out
	assert.False(t, a.Verify(ctx, wrong).Succeeded())
	assert.Equal(t, 1, a.Clearance())

	require.NoError(t, a.SwitchTo(TypeBiometric))
	assert.Equal(t, 1, a.Clearance())

	a.Logout()
	assert.Equal(t, 0, a.Clearance())
}

func TestActorSubscribe(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(newMemPrefs(), &fakePlatform{})
	require.NoError(t, a.SwitchTo(TypeBiometric))

	ch, cancel := a.Subscribe()
	defer cancel()

	assert.Equal(t, 0, receive(t, ch))

	require.True(t, a.Verify(ctx, nil).Succeeded())
	assert.Equal(t, 1, receive(t, ch))

	a.Logout()
	assert.Equal(t, 0, receive(t, ch))

	// logging out twice is not a change
	a.Logout()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()
}

func TestActorSubscribeSlowReaderSeesLatest(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(newMemPrefs(), &fakePlatform{})
	require.NoError(t, a.SwitchTo(TypeBiometric))

	ch, cancel := a.Subscribe()
	defer cancel()

	require.True(t, a.Verify(ctx, nil).Succeeded())
	a.Logout()
	require.True(t, a.Verify(ctx, nil).Succeeded())

	assert.Equal(t, 1, receive(t, ch))
}

func TestActorCanSetupAndReset(t *testing.T) {
	ctx := context.Background()
	prefs := newMemPrefs()
	a := newTestActor(prefs, &fakePlatform{status: BiometricNoneEnrolled})
	require.NoError(t, a.SwitchTo(TypePassword))

	var canSetup, canReset, canLogin bool
	inspect := func(s *Session) result.Result {
		var err error
		if canSetup, err = s.CanSetup(ctx); err != nil {
			return result.FromError(result.KindOther, err)
		}
		if canReset, err = s.CanReset(ctx); err != nil {
			return result.FromError(result.KindOther, err)
		}
		if canLogin, err = s.CanLogin(ctx); err != nil {
			return result.FromError(result.KindOther, err)
		}
		return result.OK
	}

	require.True(t, a.WithLock(inspect).Succeeded())
	assert.True(t, canSetup)
	assert.False(t, canReset)
	assert.False(t, canLogin)

	tok, err := a.NewPasswordToken(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, a.SetCredentials(ctx, nil, tok).Succeeded())

	require.True(t, a.WithLock(inspect).Succeeded())
	assert.False(t, canSetup)
	assert.False(t, canReset)
	assert.True(t, canLogin)

	login, err := a.NewPasswordToken(ctx, []byte("pw"))
	require.NoError(t, err)
	require.True(t, a.Verify(ctx, login).Succeeded())

	require.True(t, a.WithLock(inspect).Succeeded())
	assert.False(t, canSetup)
	assert.True(t, canReset)
}

func TestActorWithLockSequence(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(newMemPrefs(), &fakePlatform{status: BiometricAvailable})

	var name string
	r := a.WithLock(func(s *Session) result.Result {
		if err := s.SwitchTo(TypeBiometric); err != nil {
			return result.FromError(result.KindOther, err)
		}
		var err error
		if name, err = s.MethodName(); err != nil {
			return result.FromError(result.KindOther, err)
		}
		return s.ActorAvailable().Pipe(func() result.Result {
			return s.Verify(ctx, nil)
		})
	})
	require.True(t, r.Succeeded(), r.String())
	assert.Equal(t, "Fingerprint", name)
	assert.Equal(t, 1, a.Clearance())
}

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for clearance update")
		return -1
	}
}

func TestActorRestrictedMethods(t *testing.T) {
	ctx := context.Background()
	a := NewActor(Dependencies{
		Preferences: newMemPrefs(),
		Platform:    UnsupportedPlatform{},
		Hasher:      testHasher(),
		Methods:     NewCompactTypeSet(TypePassword),
	})

	assert.Error(t, a.SwitchTo(TypeBiometric))
	assert.Equal(t, TypeUndefined, a.Type())

	// Without hardware the biometric method would count as set up
	setup, err := a.SetupMethods(ctx)
	require.NoError(t, err)
	assert.Empty(t, setup)

	require.NoError(t, a.SwitchTo(TypePassword))
	tok, err := a.NewPasswordToken(ctx, []byte("hunter2"))
	require.NoError(t, err)
	r := a.SetCredentials(ctx, nil, tok)
	assert.True(t, r.Succeeded(), r.String())
}
