package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/illarion/companion/internal/model"
)

// NoteView is a note as listed to the user. Content of secure notes is
// withheld while logged out.
type NoteView struct {
	model.Note
	Category string
	Hidden   bool
}

func (c *Companion) loggedIn() bool {
	return c.actor.Clearance() > 0
}

// category returns the category named name, creating it when missing.
// An empty name is the default category.
func (c *Companion) category(name string) (model.NoteCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == model.DefaultCategory.Name {
		return model.DefaultCategory, nil
	}
	cat, ok, err := c.categories.GetByName(name)
	if err != nil {
		return cat, fmt.Errorf("failed to look up category %s: %w", name, err)
	}
	if ok {
		return cat, nil
	}
	cat, _, err = c.categories.Add(model.NoteCategory{
		Name:  name,
		Color: model.DefaultColor,
		Date:  time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return cat, fmt.Errorf("failed to create category %s: %w", name, err)
	}
	return cat, nil
}

// AddNote stores a new note in category (created on demand). Secure notes
// require a login.
func (c *Companion) AddNote(n model.Note, category string) (model.Note, error) {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return n, errors.New("note name must not be empty")
	}
	if n.Secure() && !c.loggedIn() {
		return n, ErrLoginRequired
	}
	if n.Date.IsZero() {
		n.Date = time.Now().UTC().Truncate(time.Millisecond)
	}

	cat, err := c.category(category)
	if err != nil {
		return n, err
	}
	n.CategoryKey = cat.ID

	stored, added, err := c.notes.Add(n)
	if err != nil {
		return n, fmt.Errorf("failed to add note: %w", err)
	}
	if !added {
		return n, fmt.Errorf("%w: %s", ErrNoteExists, n.Name)
	}
	return stored, nil
}

// Notes lists all notes, newest first
func (c *Companion) Notes() ([]NoteView, error) {
	notes, err := c.notes.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	cats, err := c.categories.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	names := map[int64]string{model.DefaultCategory.ID: model.DefaultCategory.Name}
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}

	slices.SortFunc(notes, func(a, b model.Note) int {
		return model.CompareNotesByDate(b, a)
	})

	loggedIn := c.loggedIn()
	views := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		v := NoteView{Note: n, Category: names[n.CategoryKey]}
		if n.Secure() && !loggedIn {
			v.Content = ""
			v.Hidden = true
		}
		views = append(views, v)
	}
	return views, nil
}

// RemoveNote deletes a note by name. Secure notes require a login.
func (c *Companion) RemoveNote(name string) error {
	n, ok, err := c.notes.GetByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up note: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, name)
	}
	if n.Secure() && !c.loggedIn() {
		return ErrLoginRequired
	}
	if _, err := c.notes.Delete(name); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// Categories lists the stored categories
func (c *Companion) Categories() ([]model.NoteCategory, error) {
	return c.categories.GetAll()
}
