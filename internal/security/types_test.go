package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodName(t *testing.T) {
	name, err := MethodName(TypePassword)
	require.NoError(t, err)
	assert.Equal(t, "Password", name)

	name, err = MethodName(TypeBiometric)
	require.NoError(t, err)
	assert.Equal(t, "Fingerprint", name)

	_, err = MethodName(TypeUndefined)
	assert.Error(t, err)

	names, err := MethodNames(Types)
	require.NoError(t, err)
	assert.Equal(t, []string{"Password", "Fingerprint"}, names)
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"password":    TypePassword,
		" Pass ":      TypePassword,
		"fingerprint": TypeBiometric,
		"BIO":         TypeBiometric,
		"biometric":   TypeBiometric,
	} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseType("retina")
	assert.Error(t, err)
}

func TestEveryTypeHasBackendAndName(t *testing.T) {
	for _, typ := range Types {
		_, err := MethodName(typ)
		assert.NoError(t, err)
		b := newBackend(typ, Dependencies{Preferences: newMemPrefs()})
		require.NotNil(t, b)
		assert.Equal(t, typ, b.Type())
	}
	assert.Nil(t, newBackend(TypeUndefined, Dependencies{}))
}

func TestCompactTypeSet(t *testing.T) {
	all := AllTypes
	assert.Equal(t, Types, all.Allowed())
	assert.Empty(t, all.Forbidden())

	onlyPassword := NewCompactTypeSet(TypePassword)
	assert.True(t, onlyPassword.IsAllowed(TypePassword))
	assert.True(t, onlyPassword.IsForbidden(TypeBiometric))
	assert.Equal(t, []Type{TypePassword}, onlyPassword.Allowed())
	assert.Equal(t, []Type{TypeBiometric}, onlyPassword.Forbidden())

	none := NewCompactTypeSet()
	assert.Empty(t, none.Allowed())
	assert.Equal(t, Types, none.Forbidden())
}
