package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// item is a minimal Record for collection tests
type item struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (i item) RecordName() string { return i.Name }
func (i item) RecordID() int64    { return i.ID }

func (i item) WithID(id int64) item {
	i.ID = id
	return i
}

func compareValue(a, b item) int {
	return strings.Compare(a.Value, b.Value)
}

func openTest(t *testing.T) *Storage {
	return openAt(t, filepath.Join(t.TempDir(), "test.companion"))
}

func openAt(t *testing.T, path string) *Storage {
	t.Helper()
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenInitializes(t *testing.T) {
	db := openTest(t)

	info, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if info.Version != schemaVersion {
		t.Errorf("Version mismatch: got %q, want %q", info.Version, schemaVersion)
	}
	if info.Created.IsZero() {
		t.Error("Created time should be set")
	}
	if info.Notes != 0 || info.Categories != 0 {
		t.Errorf("Expected empty database, got %d notes and %d categories", info.Notes, info.Categories)
	}
	if info.HasLogin {
		t.Error("Fresh database should have no login")
	}
	if info.Size == 0 {
		t.Error("Size should be reported")
	}
}

func TestReopenKeepsCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.companion")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	before, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	db.Close()

	db = openAt(t, path)
	after, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if !after.Created.Equal(before.Created) {
		t.Errorf("Created changed on reopen: %v -> %v", before.Created, after.Created)
	}
}

func TestPreferences(t *testing.T) {
	db := openTest(t)
	prefs := db.Preferences()

	if _, ok, err := prefs.Get("missing"); err != nil || ok {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := prefs.SetAll(map[string]string{passwordHashKey: "hash", "PASS_ACTOR_SALT": "salt"}); err != nil {
		t.Fatalf("Failed to set preferences: %v", err)
	}

	value, ok, err := prefs.Get(passwordHashKey)
	if err != nil || !ok {
		t.Fatalf("Failed to get preference: ok=%v err=%v", ok, err)
	}
	if value != "hash" {
		t.Errorf("Value mismatch: got %q, want %q", value, "hash")
	}

	info, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if !info.HasLogin {
		t.Error("Info should report a login once the hash is stored")
	}

	if err := prefs.Delete(passwordHashKey, "never-set"); err != nil {
		t.Fatalf("Failed to delete preferences: %v", err)
	}
	if _, ok, _ := prefs.Get(passwordHashKey); ok {
		t.Error("Key should be gone after delete")
	}
	if _, ok, _ := prefs.Get("PASS_ACTOR_SALT"); !ok {
		t.Error("Untouched key should remain")
	}
}

func TestEmptyPreferenceValue(t *testing.T) {
	db := openTest(t)
	prefs := db.Preferences()

	if err := prefs.SetAll(map[string]string{"empty": ""}); err != nil {
		t.Fatalf("Failed to set preference: %v", err)
	}
	value, ok, err := prefs.Get("empty")
	if err != nil {
		t.Fatalf("Failed to get preference: %v", err)
	}
	if !ok || value != "" {
		t.Errorf("Expected present empty value, got ok=%v value=%q", ok, value)
	}
}

func TestCollectionAddAssignsIDs(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	first, added, err := items.Add(item{Name: "b", Value: "2"})
	if err != nil || !added {
		t.Fatalf("Failed to add: added=%v err=%v", added, err)
	}
	second, _, err := items.Add(item{Name: "a", Value: "1"})
	if err != nil {
		t.Fatalf("Failed to add: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Errorf("IDs mismatch: got %d and %d, want 1 and 2", first.ID, second.ID)
	}

	dup, added, err := items.Add(item{Name: "a", Value: "other"})
	if err != nil {
		t.Fatalf("Failed to add duplicate: %v", err)
	}
	if added {
		t.Error("Duplicate name should not be added")
	}
	if dup.ID != 0 {
		t.Errorf("Rejected item should keep its ID, got %d", dup.ID)
	}

	all, err := items.GetAll()
	if err != nil {
		t.Fatalf("Failed to get all: %v", err)
	}
	if len(all) != 2 || all[0].Name != "a" || all[1].Name != "b" {
		t.Errorf("Expected [a b] by name, got %+v", all)
	}
	if all[0].Value != "1" {
		t.Errorf("Duplicate add overwrote value: %q", all[0].Value)
	}
}

func TestCollectionKeepsExplicitIDs(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	if _, _, err := items.Add(item{ID: 40, Name: "imported"}); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}
	next, _, err := items.Add(item{Name: "fresh"})
	if err != nil {
		t.Fatalf("Failed to add: %v", err)
	}
	if next.ID != 41 {
		t.Errorf("Sequence should continue after explicit ID, got %d", next.ID)
	}
}

func TestCollectionRejectsTakenIDs(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	home, _, err := items.Add(item{Name: "home"})
	if err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	if _, _, err := items.Add(item{ID: home.ID, Name: "work"}); !errors.Is(err, ErrIDTaken) {
		t.Errorf("Expected ErrIDTaken for Add, got %v", err)
	}
	if _, err := items.Upsert(item{ID: home.ID, Name: "work"}); !errors.Is(err, ErrIDTaken) {
		t.Errorf("Expected ErrIDTaken for Upsert, got %v", err)
	}
	if _, ok, _ := items.GetByName("work"); ok {
		t.Error("Rejected item must not be stored")
	}

	// a record may keep its own ID
	if _, err := items.Upsert(item{ID: home.ID, Name: "home", Value: "v2"}); err != nil {
		t.Errorf("Upsert with own ID failed: %v", err)
	}
}

func TestCollectionRejectsEmptyName(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	if _, _, err := items.Add(item{}); err == nil {
		t.Error("Expected error for empty name")
	}
}

func TestCollectionUpsertAndUpdate(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	stored, _, err := items.Add(item{Name: "a", Value: "1"})
	if err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	upserted, err := items.Upsert(item{Name: "a", Value: "2"})
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if upserted.ID != stored.ID {
		t.Errorf("Upsert should keep ID %d, got %d", stored.ID, upserted.ID)
	}

	ok, err := items.Update(item{Name: "a", Value: "3"})
	if err != nil || !ok {
		t.Fatalf("Failed to update: ok=%v err=%v", ok, err)
	}
	ok, err = items.Update(item{Name: "missing", Value: "x"})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if ok {
		t.Error("Update of missing record should report false")
	}

	got, found, err := items.GetByName("a")
	if err != nil || !found {
		t.Fatalf("Failed to get: found=%v err=%v", found, err)
	}
	if got.Value != "3" || got.ID != stored.ID {
		t.Errorf("Unexpected record: %+v", got)
	}

	if _, found, _ := items.GetByName("missing"); found {
		t.Error("Update should not create records")
	}
}

func TestCollectionDelete(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	for _, name := range []string{"a", "b", "c"} {
		if _, _, err := items.Add(item{Name: name}); err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
	}

	deleted, err := items.Delete("b")
	if err != nil || !deleted {
		t.Fatalf("Failed to delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = items.Delete("b")
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if deleted {
		t.Error("Second delete should report false")
	}

	if err := items.DeleteAll(); err != nil {
		t.Fatalf("Failed to delete all: %v", err)
	}
	if n, _ := items.Count(); n != 0 {
		t.Errorf("Expected empty collection, got %d", n)
	}

	next, _, err := items.Add(item{Name: "d"})
	if err != nil {
		t.Fatalf("Failed to add: %v", err)
	}
	if next.ID != 4 {
		t.Errorf("DeleteAll should keep the sequence, got ID %d", next.ID)
	}
}

func TestCollectionsAreIndependent(t *testing.T) {
	db := openTest(t)
	notes := NewCollection[item](db, NotesBucket)
	categories := NewCollection[item](db, CategoriesBucket)

	if _, _, err := notes.Add(item{Name: "shared"}); err != nil {
		t.Fatalf("Failed to add note: %v", err)
	}
	if _, added, err := categories.Add(item{Name: "shared"}); err != nil || !added {
		t.Fatalf("Same name in another bucket should be added: added=%v err=%v", added, err)
	}

	info, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if info.Notes != 1 || info.Categories != 1 {
		t.Errorf("Expected 1 note and 1 category, got %d and %d", info.Notes, info.Categories)
	}
}

func TestGetAllSorted(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	for name, value := range map[string]string{"a": "3", "b": "1", "c": "2"} {
		if _, _, err := items.Add(item{Name: name, Value: value}); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}
	}

	asc, err := items.GetAllSorted(compareValue, true)
	if err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}
	if names(asc) != "b,c,a" {
		t.Errorf("Ascending order mismatch: got %s", names(asc))
	}

	desc, err := items.GetAllSorted(compareValue, false)
	if err != nil {
		t.Fatalf("Failed to sort: %v", err)
	}
	if names(desc) != "a,c,b" {
		t.Errorf("Descending order mismatch: got %s", names(desc))
	}
}

func TestPages(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	for i := range 7 {
		if _, _, err := items.Add(item{Name: fmt.Sprintf("n%02d", i)}); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}
	}

	var pages []string
	for page, err := range items.Pages(3, true) {
		if err != nil {
			t.Fatalf("Failed to read page: %v", err)
		}
		pages = append(pages, names(page))
	}
	want := []string{"n00,n01,n02", "n03,n04,n05", "n06"}
	if strings.Join(pages, "|") != strings.Join(want, "|") {
		t.Errorf("Ascending pages mismatch: got %v, want %v", pages, want)
	}

	pages = nil
	for page, err := range items.Pages(3, false) {
		if err != nil {
			t.Fatalf("Failed to read page: %v", err)
		}
		pages = append(pages, names(page))
	}
	want = []string{"n06,n05,n04", "n03,n02,n01", "n00"}
	if strings.Join(pages, "|") != strings.Join(want, "|") {
		t.Errorf("Descending pages mismatch: got %v, want %v", pages, want)
	}
}

func TestPagesStopEarly(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	for i := range 6 {
		if _, _, err := items.Add(item{Name: fmt.Sprintf("n%d", i)}); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}
	}

	count := 0
	for range items.Pages(2, true) {
		count++
		break
	}
	if count != 1 {
		t.Errorf("Expected to stop after one page, got %d", count)
	}

	count = 0
	for range NewCollection[item](db, CategoriesBucket).Pages(2, true) {
		count++
	}
	if count != 0 {
		t.Errorf("Empty collection should yield no pages, got %d", count)
	}
}

func TestPagesAreLazy(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	for _, name := range []string{"a", "b", "c", "d"} {
		if _, _, err := items.Add(item{Name: name}); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}
	}

	var seen []string
	for page, err := range items.Pages(2, true) {
		if err != nil {
			t.Fatalf("Failed to read page: %v", err)
		}
		seen = append(seen, names(page))
		if len(seen) == 1 {
			// written between pages, must show up in the next one
			if _, _, err := items.Add(item{Name: "c2"}); err != nil {
				t.Fatalf("Failed to add: %v", err)
			}
		}
	}
	if strings.Join(seen, "|") != "a,b|c,c2|d" {
		t.Errorf("Pages mismatch: got %v", seen)
	}
}

func TestCompact(t *testing.T) {
	db := openTest(t)
	items := NewCollection[item](db, NotesBucket)

	for i := range 50 {
		if _, _, err := items.Add(item{Name: fmt.Sprintf("n%02d", i), Value: strings.Repeat("x", 1024)}); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}
	}
	for i := range 45 {
		if _, err := items.Delete(fmt.Sprintf("n%02d", i)); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
	}
	before, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Failed to compact: %v", err)
	}

	after, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if after.Notes != 5 {
		t.Errorf("Expected 5 notes after compact, got %d", after.Notes)
	}
	if after.Size > before.Size {
		t.Errorf("Compact should not grow the file: %d -> %d", before.Size, after.Size)
	}

	// collections opened before compaction keep working
	next, _, err := items.Add(item{Name: "after"})
	if err != nil {
		t.Fatalf("Failed to add after compact: %v", err)
	}
	if next.ID != 51 {
		t.Errorf("Compact should keep the sequence, got ID %d", next.ID)
	}
}

func TestInfoModifiedAdvances(t *testing.T) {
	db := openTest(t)
	before, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, _, err := NewCollection[item](db, NotesBucket).Add(item{Name: "a"}); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	after, err := db.Info()
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if !after.Modified.After(before.Modified) {
		t.Errorf("Modified should advance: %v -> %v", before.Modified, after.Modified)
	}
}

func names(items []item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Name
	}
	return strings.Join(parts, ",")
}
