package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"

	bolt "go.etcd.io/bbolt"
)

// ErrIDTaken is returned when an explicit ID already belongs to another record
var ErrIDTaken = errors.New("record id already in use")

var errStop = errors.New("stop")

// Record is an item stored in a Collection. Names and IDs are unique within
// a collection; IDs are assigned from the bucket sequence when zero.
type Record[T any] interface {
	RecordName() string
	RecordID() int64
	WithID(id int64) T
}

// Collection stores JSON-encoded records in one bucket, keyed by name
type Collection[T Record[T]] struct {
	s      *Storage
	bucket []byte
}

// NewCollection binds a collection to bucket. The bucket must exist.
func NewCollection[T Record[T]](s *Storage, bucket []byte) *Collection[T] {
	return &Collection[T]{s: s, bucket: bucket}
}

// GetAll returns every record ordered by name
func (c *Collection[T]) GetAll() ([]T, error) {
	var items []T
	err := c.s.db.View(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			item, err := decode[T](v)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", k, err)
			}
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// GetAllSorted returns every record ordered by cmp
func (c *Collection[T]) GetAllSorted(cmp func(a, b T) int, ascending bool) ([]T, error) {
	items, err := c.GetAll()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, cmp)
	if !ascending {
		slices.Reverse(items)
	}
	return items, nil
}

// Pages yields records ordered by name, pageSize at a time. Each page is
// read in its own transaction, so the sequence is lazy and sees writes
// made between pages.
func (c *Collection[T]) Pages(pageSize int, ascending bool) iter.Seq2[[]T, error] {
	if pageSize <= 0 {
		pageSize = 20
	}
	return func(yield func([]T, error) bool) {
		var last []byte
		for {
			page, next, err := c.page(last, pageSize, ascending)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) || len(page) < pageSize {
				return
			}
			last = next
		}
	}
}

func (c *Collection[T]) page(after []byte, size int, ascending bool) ([]T, []byte, error) {
	var (
		items []T
		last  []byte
	)
	err := c.s.db.View(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		cur := b.Cursor()

		var k, v []byte
		switch {
		case after == nil && ascending:
			k, v = cur.First()
		case after == nil:
			k, v = cur.Last()
		case ascending:
			k, v = cur.Seek(after)
			if k != nil && bytes.Equal(k, after) {
				k, v = cur.Next()
			}
		default:
			k, v = cur.Seek(after)
			// Seek lands on the first key >= after; step back past it
			if k == nil {
				k, v = cur.Last()
			}
			for k != nil && bytes.Compare(k, after) >= 0 {
				k, v = cur.Prev()
			}
		}

		for k != nil && len(items) < size {
			item, err := decode[T](v)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", k, err)
			}
			items = append(items, item)
			last = append([]byte(nil), k...)
			if ascending {
				k, v = cur.Next()
			} else {
				k, v = cur.Prev()
			}
		}
		return nil
	})
	return items, last, err
}

// GetByName returns the record with name and whether it exists
func (c *Collection[T]) GetByName(name string) (T, bool, error) {
	var (
		item T
		ok   bool
	)
	err := c.s.db.View(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		data := b.Get([]byte(name))
		if data == nil {
			return nil
		}
		item, err = decode[T](data)
		ok = err == nil
		return err
	})
	return item, ok, err
}

// Add stores item unless a record with the same name exists. It returns the
// stored item and false on conflict.
func (c *Collection[T]) Add(item T) (T, bool, error) {
	added := false
	err := c.s.db.Update(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		if b.Get([]byte(item.RecordName())) != nil {
			return nil
		}
		if item, err = c.put(tx, b, item); err != nil {
			return err
		}
		added = true
		return nil
	})
	return item, added, err
}

// Upsert stores item, replacing a record with the same name
func (c *Collection[T]) Upsert(item T) (T, error) {
	err := c.s.db.Update(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		if item.RecordID() == 0 {
			if existing := b.Get([]byte(item.RecordName())); existing != nil {
				old, err := decode[T](existing)
				if err != nil {
					return err
				}
				item = item.WithID(old.RecordID())
			}
		}
		item, err = c.put(tx, b, item)
		return err
	})
	return item, err
}

// Update replaces the record with the same name. It returns false when no
// such record exists.
func (c *Collection[T]) Update(item T) (bool, error) {
	updated := false
	err := c.s.db.Update(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		existing := b.Get([]byte(item.RecordName()))
		if existing == nil {
			return nil
		}
		if item.RecordID() == 0 {
			old, err := decode[T](existing)
			if err != nil {
				return err
			}
			item = item.WithID(old.RecordID())
		}
		if _, err := c.put(tx, b, item); err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}

// Delete removes the record with name. It returns false when no such
// record exists.
func (c *Collection[T]) Delete(name string) (bool, error) {
	deleted := false
	err := c.s.db.Update(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		if b.Get([]byte(name)) == nil {
			return nil
		}
		if err := b.Delete([]byte(name)); err != nil {
			return err
		}
		deleted = true
		return touch(tx)
	})
	return deleted, err
}

// DeleteAll removes every record. The ID sequence is kept.
func (c *Collection[T]) DeleteAll() error {
	return c.s.db.Update(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		seq := b.Sequence()
		if err := tx.DeleteBucket(c.bucket); err != nil {
			return err
		}
		nb, err := tx.CreateBucket(c.bucket)
		if err != nil {
			return err
		}
		if err := nb.SetSequence(seq); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Count returns the number of records
func (c *Collection[T]) Count() (int, error) {
	var n int
	err := c.s.db.View(func(tx *bolt.Tx) error {
		b, err := c.open(tx)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

func (c *Collection[T]) open(tx *bolt.Tx) (*bolt.Bucket, error) {
	b := tx.Bucket(c.bucket)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", c.bucket)
	}
	return b, nil
}

func (c *Collection[T]) put(tx *bolt.Tx, b *bolt.Bucket, item T) (T, error) {
	if item.RecordName() == "" {
		return item, fmt.Errorf("record name must not be empty")
	}
	if id := item.RecordID(); id == 0 {
		seq, err := b.NextSequence()
		if err != nil {
			return item, fmt.Errorf("failed to allocate id: %w", err)
		}
		item = item.WithID(int64(seq))
	} else if uint64(id) > b.Sequence() {
		if err := b.SetSequence(uint64(id)); err != nil {
			return item, err
		}
	} else if owner, err := idOwner[T](b, id); err != nil {
		return item, err
	} else if owner != "" && owner != item.RecordName() {
		return item, fmt.Errorf("%w: %d belongs to %s", ErrIDTaken, id, owner)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return item, err
	}
	if err := b.Put([]byte(item.RecordName()), data); err != nil {
		return item, err
	}
	return item, touch(tx)
}

// idOwner returns the name of the record with id, or "" when there is none
func idOwner[T Record[T]](b *bolt.Bucket, id int64) (string, error) {
	var owner string
	err := b.ForEach(func(k, v []byte) error {
		item, err := decode[T](v)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", k, err)
		}
		if item.RecordID() == id {
			owner = string(k)
			return errStop
		}
		return nil
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	return owner, err
}

func decode[T any](data []byte) (T, error) {
	var item T
	err := json.Unmarshal(data, &item)
	return item, err
}
