package exim

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MergeStrategy decides how imported records combine with stored ones
type MergeStrategy int

const (
	DeleteAllBefore    MergeStrategy = iota // empty the store, then add everything
	SkipOnConflict                          // keep stored records with the same name
	OverrideOnConflict                      // replace stored records with the same name
)

func (s MergeStrategy) String() string {
	switch s {
	case DeleteAllBefore:
		return "delete-all"
	case SkipOnConflict:
		return "skip"
	case OverrideOnConflict:
		return "override"
	default:
		return fmt.Sprintf("MergeStrategy(%d)", int(s))
	}
}

// ParseMergeStrategy parses the String form of a strategy
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delete-all", "delete_all_before", "replace":
		return DeleteAllBefore, nil
	case "skip", "skip_on_conflict":
		return SkipOnConflict, nil
	case "override", "override_on_conflict":
		return OverrideOnConflict, nil
	default:
		return 0, fmt.Errorf("unknown merge strategy %q (use delete-all, skip or override)", s)
	}
}

// Store is the record store imported batches are written to
type Store[T any] interface {
	GetAll() ([]T, error)
	GetByName(name string) (T, bool, error)
	// Add stores item and returns false when a record with the same name exists
	Add(item T) (T, bool, error)
	Upsert(item T) (T, error)
	DeleteAll() error
}

// Record is what the import pipeline needs from a record type
type Record[T any] interface {
	Exportable
	Importable[T]
	RecordName() string
}

// ConflictAction is what happened to a conflicting record
type ConflictAction int

const (
	ConflictSkipped ConflictAction = iota
	ConflictOverridden
)

func (a ConflictAction) String() string {
	if a == ConflictOverridden {
		return "overridden"
	}
	return "skipped"
}

// Conflict describes an imported record whose name already existed
type Conflict struct {
	Name   string
	Action ConflictAction
	Diff   string // stored -> imported, empty when identical
}

// Report summarizes an import into one store
type Report struct {
	Collection string
	Added      int
	Overridden int
	Skipped    int
	Conflicts  []Conflict
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %d added, %d overridden, %d skipped", r.Collection, r.Added, r.Overridden, r.Skipped)
}

// identified is implemented by records that carry a store ID
type identified[T any] interface {
	RecordID() int64
	WithID(id int64) T
}

// withIDOf gives item the ID of stored when T carries IDs, so that
// diffs and overrides keep the stored identity
func withIDOf[T any](item, stored T) T {
	from, ok := any(stored).(identified[T])
	if !ok {
		return item
	}
	if to, ok := any(item).(identified[T]); ok {
		return to.WithID(from.RecordID())
	}
	return item
}

// storeBatch writes a batch according to strategy. DeleteAllBefore is
// applied by the caller before the first batch.
func (s *sink[T]) storeBatch(batch []T, strategy MergeStrategy, report *Report) error {
	for _, imported := range batch {
		item := imported
		if s.prepare != nil {
			item = s.prepare(item)
		}
		name := item.RecordName()

		if strategy == OverrideOnConflict {
			old, exists, err := s.store.GetByName(name)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", name, err)
			}
			if exists {
				item = withIDOf(item, old)
				stored, err := s.store.Upsert(item)
				if err != nil {
					return fmt.Errorf("failed to override %s: %w", name, err)
				}
				s.notify(imported, stored)
				report.Overridden++
				report.Conflicts = append(report.Conflicts, Conflict{
					Name:   name,
					Action: ConflictOverridden,
					Diff:   RecordDiff(name, old, item),
				})
				continue
			}
		}

		stored, added, err := s.store.Add(item)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		if added {
			s.notify(imported, stored)
			report.Added++
			continue
		}
		if s.stored != nil {
			existing, ok, err := s.store.GetByName(name)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", name, err)
			}
			if ok {
				s.stored(imported, existing)
			}
		}
		report.Skipped++
		report.Conflicts = append(report.Conflicts, Conflict{Name: name, Action: ConflictSkipped})
	}
	return nil
}

func (s *sink[T]) notify(imported, stored T) {
	if s.stored != nil {
		s.stored(imported, stored)
	}
}

// RecordDiff renders a unified diff of two records' fields, one field per
// line. It returns "" when the records are equal.
func RecordDiff(name string, stored, imported Exportable) string {
	a, b := fieldText(stored), fieldText(imported)
	if a == b {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff so each field is one unit
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(a, diffs)
	if len(patches) == 0 {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- stored/%s\n", name)
	fmt.Fprintf(&out, "+++ imported/%s\n", name)
	out.WriteString(dmp.PatchToText(patches))
	return out.String()
}

func fieldText(r Exportable) string {
	var b strings.Builder
	for _, f := range r.Fields() {
		switch v := f.Value.(type) {
		case []byte:
			fmt.Fprintf(&b, "%s: %x\n", f.Name, v)
		case string:
			fmt.Fprintf(&b, "%s: %q\n", f.Name, v)
		default:
			fmt.Fprintf(&b, "%s: %v\n", f.Name, v)
		}
	}
	return b.String()
}
