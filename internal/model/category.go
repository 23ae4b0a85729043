package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/illarion/companion/internal/exim"
)

// DefaultColor is the ARGB color of new categories
const DefaultColor int64 = 0xFFFFFFFF

// NoteCategory groups notes. Names are unique.
type NoteCategory struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Color    int64     `json:"color"` // ARGB
	Favorite bool      `json:"favorite"`
	Date     time.Time `json:"date"`
}

// DefaultCategory is assigned to notes without a category
var DefaultCategory = NoteCategory{ID: 0, Name: "default", Color: DefaultColor}

// RecordName implements storage.Record
func (c NoteCategory) RecordName() string { return c.Name }

// RecordID implements storage.Record
func (c NoteCategory) RecordID() int64 { return c.ID }

// WithID implements storage.Record
func (c NoteCategory) WithID(id int64) NoteCategory {
	c.ID = id
	return c
}

// Fields implements exim.Exportable
func (c NoteCategory) Fields() []exim.FieldInfo {
	return []exim.FieldInfo{
		{Name: "id", Value: c.ID},
		{Name: "name", Value: c.Name},
		{Name: "color", Value: c.Color},
		{Name: "favorite", Value: c.Favorite},
		{Name: "date", Value: c.Date.UnixMilli()},
	}
}

// FromValues implements exim.Importable
func (NoteCategory) FromValues(values []any) (NoteCategory, error) {
	var (
		c  NoteCategory
		ms int64
	)
	if err := exim.Scan(values, &c.ID, &c.Name, &c.Color, &c.Favorite, &ms); err != nil {
		return NoteCategory{}, fmt.Errorf("invalid category row: %w", err)
	}
	c.Date = time.UnixMilli(ms).UTC()
	return c, nil
}

// Describe returns a progress label for the category
func (c NoteCategory) Describe() string {
	return fmt.Sprintf("Processing category '%s'", c.Name)
}

// ColorHex formats the color as #AARRGGBB
func (c NoteCategory) ColorHex() string {
	return fmt.Sprintf("#%08X", uint32(c.Color))
}

// ParseColor parses #RRGGBB or #AARRGGBB
func ParseColor(s string) (int64, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return 0, fmt.Errorf("invalid color %q: expected #RRGGBB or #AARRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xFF000000
	}
	return int64(v), nil
}
