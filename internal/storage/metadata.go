package storage

import (
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Info summarizes the database for status output
type Info struct {
	Path       string
	Version    string
	Created    time.Time
	Modified   time.Time
	Size       int64
	Notes      int
	Categories int
	HasLogin   bool
}

// Info reads the database summary
func (s *Storage) Info() (*Info, error) {
	info := &Info{Path: s.db.Path()}

	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}
		info.Version = string(meta.Get(MetaVersion))
		if data := meta.Get(MetaCreated); data != nil {
			if err := info.Created.UnmarshalBinary(data); err != nil {
				return fmt.Errorf("invalid created time: %w", err)
			}
		}
		if data := meta.Get(MetaModified); data != nil {
			if err := info.Modified.UnmarshalBinary(data); err != nil {
				return fmt.Errorf("invalid modified time: %w", err)
			}
		}

		info.Notes = tx.Bucket(NotesBucket).Stats().KeyN
		info.Categories = tx.Bucket(CategoriesBucket).Stats().KeyN
		info.HasLogin = tx.Bucket(PreferencesBucket).Get([]byte(passwordHashKey)) != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if st, err := os.Stat(info.Path); err == nil {
		info.Size = st.Size()
	}
	return info, nil
}
