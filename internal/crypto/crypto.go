package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	DefaultTime       = 5         // Argon2id passes over memory
	DefaultMemoryKiB  = 64 * 1024 // Argon2id memory cost (64 MiB)
	DefaultThreads    = 1         // Argon2id lanes
	DefaultKeyLength  = 32        // Raw derived key length in bytes
	DefaultSaltLength = 16        // Random salt length in bytes
	algorithmID       = "argon2id"
)

var ErrInvalidEncoding = errors.New("invalid encoded hash")

// Params holds the tunable Argon2id cost constants.
type Params struct {
	Time       uint32
	MemoryKiB  uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultParams returns the reference cost constants
func DefaultParams() Params {
	return Params{
		Time:       DefaultTime,
		MemoryKiB:  DefaultMemoryKiB,
		Threads:    DefaultThreads,
		KeyLength:  DefaultKeyLength,
		SaltLength: DefaultSaltLength,
	}
}

// Hash is the output of a single hashing operation.
// Encoded holds the PHC-formatted Argon2id string, which already embeds the salt.
type Hash struct {
	Encoded []byte
	Salt    []byte
}

// Hasher derives password hashes with a fixed set of parameters
type Hasher struct {
	params Params
}

// NewHasher creates a hasher, filling zero-valued params with defaults
func NewHasher(p Params) *Hasher {
	d := DefaultParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.KeyLength == 0 {
		p.KeyLength = d.KeyLength
	}
	if p.SaltLength == 0 {
		p.SaltLength = d.SaltLength
	}
	return &Hasher{params: p}
}

// Params returns the parameters used by this hasher
func (h *Hasher) Params() Params {
	return h.params
}

// Hash derives an Argon2id hash from password. A nil salt generates a fresh
// random one of the configured length.
func (h *Hasher) Hash(password, salt []byte) Hash {
	if salt == nil {
		salt = MustRandom(int(h.params.SaltLength))
	}

	key := argon2.IDKey(password, salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLength)
	defer ClearBytes(key)

	encoded := fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return Hash{
		Encoded: []byte(encoded),
		Salt:    append([]byte(nil), salt...),
	}
}

// DecodeParams parses the cost parameters out of a PHC-encoded hash
func DecodeParams(encoded []byte) (Params, error) {
	parts := strings.Split(string(encoded), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return Params{}, ErrInvalidEncoding
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return Params{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidEncoding, parts[2])
	}

	var p Params
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &threads); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	p.Threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, fmt.Errorf("%w: salt: %v", ErrInvalidEncoding, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, fmt.Errorf("%w: key: %v", ErrInvalidEncoding, err)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// MustRandom is like GenerateRandom but panics when the system RNG fails.
// There is nothing a caller can do to recover from that.
func MustRandom(n int) []byte {
	b, err := GenerateRandom(n)
	if err != nil {
		panic(err)
	}
	return b
}
