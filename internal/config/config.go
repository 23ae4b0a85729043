// Package config loads companion settings from defaults, an optional
// config file and COMPANION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illarion/companion/internal/crypto"
	"github.com/spf13/viper"
)

// Where the password backend keeps its hash and salt
const (
	PreferencesBolt    = "bolt"
	PreferencesKeyring = "keyring"
)

type Config struct {
	Database     string
	PostgresDSN  string
	Preferences  string
	Methods      []string
	LogLevel     string
	TempDir      string
	PollInterval time.Duration
	BatchSize    int
	Argon2       Argon2Config
}

type Argon2Config struct {
	Time       uint32
	MemoryKiB  uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// Params converts the settings to hasher parameters
func (a Argon2Config) Params() crypto.Params {
	return crypto.Params{
		Time:       a.Time,
		MemoryKiB:  a.MemoryKiB,
		Threads:    a.Threads,
		KeyLength:  a.KeyLength,
		SaltLength: a.SaltLength,
	}
}

func setDefaults(v *viper.Viper) {
	d := crypto.DefaultParams()
	v.SetDefault("database", "companion.db")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("preferences", PreferencesBolt)
	v.SetDefault("methods", []string{"password"})
	v.SetDefault("log_level", "warn")
	v.SetDefault("temp_dir", "")
	v.SetDefault("poll_interval", 100*time.Millisecond)
	v.SetDefault("batch_size", 100)
	v.SetDefault("argon2.time", d.Time)
	v.SetDefault("argon2.memory_kib", d.MemoryKiB)
	v.SetDefault("argon2.threads", d.Threads)
	v.SetDefault("argon2.key_length", d.KeyLength)
	v.SetDefault("argon2.salt_length", d.SaltLength)
}

// Load reads the configuration. path may be empty, in which case
// COMPANION_CONFIG names the file, and no file at all is fine.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("companion")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("COMPANION_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Database:     v.GetString("database"),
		PostgresDSN:  v.GetString("postgres_dsn"),
		Preferences:  strings.ToLower(v.GetString("preferences")),
		Methods:      v.GetStringSlice("methods"),
		LogLevel:     v.GetString("log_level"),
		TempDir:      v.GetString("temp_dir"),
		PollInterval: v.GetDuration("poll_interval"),
		BatchSize:    v.GetInt("batch_size"),
		Argon2: Argon2Config{
			Time:       v.GetUint32("argon2.time"),
			MemoryKiB:  v.GetUint32("argon2.memory_kib"),
			Threads:    uint8(v.GetUint("argon2.threads")),
			KeyLength:  v.GetUint32("argon2.key_length"),
			SaltLength: v.GetUint32("argon2.salt_length"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Preferences {
	case PreferencesBolt, PreferencesKeyring:
	default:
		return fmt.Errorf("preferences must be %q or %q, got %q", PreferencesBolt, PreferencesKeyring, c.Preferences)
	}
	if len(c.Methods) == 0 {
		return errors.New("at least one security method must be enabled")
	}
	if c.Database == "" {
		return errors.New("database path must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Argon2.Threads == 0 {
		return errors.New("argon2.threads must be at least 1")
	}
	return nil
}
