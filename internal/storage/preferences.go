package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// mirrors security.HashKey; storage does not import security
const passwordHashKey = "PASS_ACTOR_HASH"

// Preferences is a string key-value store in the preferences bucket
type Preferences struct {
	s *Storage
}

// Preferences returns the preferences store of this database
func (s *Storage) Preferences() *Preferences {
	return &Preferences{s: s}
}

// Get returns the value for key and whether it exists
func (p *Preferences) Get(key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := p.s.db.View(func(tx *bolt.Tx) error {
		prefs := tx.Bucket(PreferencesBucket)
		if prefs == nil {
			return fmt.Errorf("preferences bucket not found")
		}
		if data := prefs.Get([]byte(key)); data != nil {
			value, ok = string(data), true
		}
		return nil
	})
	return value, ok, err
}

// SetAll writes every value in one transaction
func (p *Preferences) SetAll(values map[string]string) error {
	return p.s.db.Update(func(tx *bolt.Tx) error {
		prefs := tx.Bucket(PreferencesBucket)
		for k, v := range values {
			if err := prefs.Put([]byte(k), []byte(v)); err != nil {
				return fmt.Errorf("failed to store %s: %w", k, err)
			}
		}
		return touch(tx)
	})
}

// Delete removes keys, ignoring ones that do not exist
func (p *Preferences) Delete(keys ...string) error {
	return p.s.db.Update(func(tx *bolt.Tx) error {
		prefs := tx.Bucket(PreferencesBucket)
		for _, k := range keys {
			if err := prefs.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return touch(tx)
	})
}
