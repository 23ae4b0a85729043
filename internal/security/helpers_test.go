package security

import (
	"context"
	"sync"
	"testing"

	"github.com/illarion/companion/internal/crypto"
	"github.com/stretchr/testify/require"
)

type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func newMemPrefs() *memPrefs {
	return &memPrefs{values: make(map[string]string)}
}

func (m *memPrefs) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memPrefs) SetAll(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

type fakePlatform struct {
	status AvailabilityStatus
	err    error
	calls  int
}

func (f *fakePlatform) CanAuthenticate() AvailabilityStatus {
	return f.status
}

func (f *fakePlatform) Authenticate(ctx context.Context, _ PromptInfo) error {
	f.calls++
	return f.err
}

func testHasher() *crypto.Hasher {
	return crypto.NewHasher(crypto.Params{Time: 1, MemoryKiB: 8 * 1024})
}

func passwordToken(t *testing.T, password string, prefs Preferences) *PasswordToken {
	t.Helper()
	var salt SaltSource
	if prefs != nil {
		salt = StoredSalt(prefs)
	}
	tok, err := NewPasswordToken(context.Background(), testHasher(), []byte(password), salt)
	require.NoError(t, err)
	return tok
}
