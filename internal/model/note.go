package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/illarion/companion/internal/exim"
)

// Note is a named text note. Names are unique.
type Note struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Content       string    `json:"content"`
	Favorite      bool      `json:"favorite"`
	SecurityLevel int32     `json:"securityLevel"` // 0 = public, >0 requires clearance
	IV            []byte    `json:"iv,omitempty"`
	Date          time.Time `json:"date"`
	CategoryKey   int64     `json:"categoryKey"`
}

// Secure reports whether the note requires clearance to read
func (n Note) Secure() bool {
	return n.SecurityLevel > 0
}

// RecordName implements storage.Record
func (n Note) RecordName() string { return n.Name }

// RecordID implements storage.Record
func (n Note) RecordID() int64 { return n.ID }

// WithID implements storage.Record
func (n Note) WithID(id int64) Note {
	n.ID = id
	return n
}

// Fields implements exim.Exportable. The order is the column order of
// exported files and must not change.
func (n Note) Fields() []exim.FieldInfo {
	return []exim.FieldInfo{
		{Name: "id", Value: n.ID},
		{Name: "name", Value: n.Name},
		{Name: "content", Value: n.Content},
		{Name: "favorite", Value: n.Favorite},
		{Name: "securityLevel", Value: n.SecurityLevel},
		{Name: "iv", Value: n.IV},
		{Name: "date", Value: n.Date.UnixMilli()},
		{Name: "categoryKey", Value: n.CategoryKey},
	}
}

// FromValues implements exim.Importable
func (Note) FromValues(values []any) (Note, error) {
	var (
		n  Note
		ms int64
	)
	err := exim.Scan(values,
		&n.ID, &n.Name, &n.Content, &n.Favorite, &n.SecurityLevel, &n.IV, &ms, &n.CategoryKey)
	if err != nil {
		return Note{}, fmt.Errorf("invalid note row: %w", err)
	}
	n.Date = time.UnixMilli(ms).UTC()
	return n, nil
}

// Describe returns a progress label for the note
func (n Note) Describe() string {
	return fmt.Sprintf("Processing note '%s'", n.Name)
}

// Preview returns the first line of the content, at most limit runes
func (n Note) Preview(limit int) string {
	line, _, _ := strings.Cut(n.Content, "\n")
	r := []rune(line)
	if len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return line
}

// CompareNotesByDate orders notes by date, then name
func CompareNotesByDate(a, b Note) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}
