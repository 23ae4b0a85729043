// Package keyring stores security preferences in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "companion"

// Preferences keeps preference values as keyring secrets, one secret per
// key. The profile separates databases that share one keyring.
type Preferences struct {
	service string
}

type saved struct {
	value  string
	exists bool
}

// New returns keyring-backed preferences for profile
func New(profile string) *Preferences {
	service := serviceName
	if profile != "" {
		service = serviceName + ":" + profile
	}
	return &Preferences{service: service}
}

// Get returns the value for key and whether it exists
func (p *Preferences) Get(key string) (string, bool, error) {
	value, err := keyring.Get(p.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from keyring: %w", key, err)
	}
	return value, true, nil
}

// SetAll stores every value. The keyring has no transactions, so when a
// write fails the keys written before it are put back.
func (p *Preferences) SetAll(values map[string]string) error {
	before := make(map[string]saved, len(values))
	for k := range values {
		v, ok, err := p.Get(k)
		if err != nil {
			return err
		}
		before[k] = saved{value: v, exists: ok}
	}

	var written []string
	for k, v := range values {
		if err := keyring.Set(p.service, k, v); err != nil {
			p.restore(written, before)
			return fmt.Errorf("failed to store %s in keyring: %w", k, err)
		}
		written = append(written, k)
	}
	return nil
}

func (p *Preferences) restore(keys []string, before map[string]saved) {
	for _, k := range keys {
		if prev := before[k]; prev.exists {
			keyring.Set(p.service, k, prev.value)
		} else {
			keyring.Delete(p.service, k)
		}
	}
}

// Delete removes keys, ignoring ones that do not exist
func (p *Preferences) Delete(keys ...string) error {
	for _, k := range keys {
		if err := keyring.Delete(p.service, k); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete %s from keyring: %w", k, err)
		}
	}
	return nil
}
