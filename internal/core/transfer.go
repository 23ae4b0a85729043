package core

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/illarion/companion/internal/exim"
	"github.com/illarion/companion/internal/git"
	"github.com/illarion/companion/internal/model"
	"github.com/illarion/companion/internal/result"
	"go.uber.org/zap"
)

// Collection file names inside an archive
const (
	NotesFile      = "notes.pq"
	CategoriesFile = "notecategories.pq"
)

const (
	secureNotesMessage       = "It seems there are some secured notes. Login first to export them."
	secureNotesImportMessage = "It seems there are some secured notes. Login first to import."
)

// ArchiveName is the default export file name for an export started at t
func ArchiveName(t time.Time) string {
	return "companion-" + t.UTC().Format(time.RFC3339) + ".zip"
}

// Export writes notes and categories as a password-protected archive to out.
// While logged out the export is refused if any note is secure.
func (c *Companion) Export(ctx context.Context, out io.Writer, password string, onProgress func(exim.Progress)) result.Result {
	notes, err := c.notes.GetAll()
	if err != nil {
		return result.Failf(result.KindIO, "Could not load notes: %v", err)
	}
	if !c.loggedIn() && slices.ContainsFunc(notes, model.Note.Secure) {
		return result.Fail(result.KindUnavailable, secureNotesMessage)
	}

	sources := []exim.Source{
		exim.NewSource(NotesFile, "notes", func(context.Context) ([]model.Note, error) {
			return notes, nil
		}),
		exim.NewSource(CategoriesFile, "categories", func(context.Context) ([]model.NoteCategory, error) {
			return c.categories.GetAll()
		}),
	}
	return c.pipeline.Export(ctx, out, password, sources, onProgress)
}

// ExportToFile exports to path, which must not exist yet. A failed export
// leaves no file behind.
func (c *Companion) ExportToFile(ctx context.Context, path, password string, onProgress func(exim.Progress)) result.Result {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePermSecure)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return result.Failf(result.KindBadInput, "%s already exists", path)
		}
		return result.Failf(result.KindIO, "Could not create %s: %v", path, err)
	}

	res := c.Export(ctx, f, password, onProgress)
	if err := f.Close(); err != nil && res.Succeeded() {
		res = result.Failf(result.KindIO, "Could not write %s: %v", path, err)
	}
	if !res.Succeeded() {
		if err := os.Remove(path); err != nil {
			c.log.Warn("failed to remove partial archive", zap.String("path", path), zap.Error(err))
		}
	}
	return res
}

// Import reads an archive from in and merges both collections into the
// stores using strategy. While logged out the import is refused if any
// stored note is secure.
//
// Imported records get fresh IDs. Categories are imported first and notes
// are relinked to the IDs their categories got here.
func (c *Companion) Import(ctx context.Context, in io.Reader, password string, strategy exim.MergeStrategy, onProgress func(exim.Progress)) result.DataResult[[]exim.Report] {
	notes, err := c.notes.GetAll()
	if err != nil {
		return result.FailData[[]exim.Report](result.Failf(result.KindIO, "Could not load notes: %v", err))
	}
	if !c.loggedIn() && slices.ContainsFunc(notes, model.Note.Secure) {
		return result.FailData[[]exim.Report](result.Fail(result.KindUnavailable, secureNotesImportMessage))
	}

	ids := newIDMap()
	sinks := []exim.Sink{
		exim.NewSink[model.NoteCategory](CategoriesFile, "categories", c.categories,
			exim.Prepare(func(cat model.NoteCategory) model.NoteCategory {
				return cat.WithID(0)
			}),
			exim.OnStored(func(imported, stored model.NoteCategory) {
				ids.set(imported.ID, stored.ID)
			}),
		),
		exim.NewSink[model.Note](NotesFile, "notes", c.notes,
			exim.After[model.Note](CategoriesFile),
			exim.Prepare(func(n model.Note) model.Note {
				n.CategoryKey = ids.get(n.CategoryKey)
				return n.WithID(0)
			}),
		),
	}
	return c.pipeline.Import(ctx, in, password, sinks, strategy, onProgress)
}

// idMap translates category IDs from an archive to local ones
type idMap struct {
	mu  sync.Mutex
	ids map[int64]int64
}

func newIDMap() *idMap {
	return &idMap{ids: make(map[int64]int64)}
}

func (m *idMap) set(from, to int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[from] = to
}

// get returns the local ID for from. Unknown categories fall back to the
// default category.
func (m *idMap) get(from int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[from]
}

// ImportFile imports the archive at path
func (c *Companion) ImportFile(ctx context.Context, path, password string, strategy exim.MergeStrategy, onProgress func(exim.Progress)) result.DataResult[[]exim.Report] {
	f, err := os.Open(path)
	if err != nil {
		return result.FailData[[]exim.Report](result.Failf(result.KindIO, "Could not open %s: %v", path, err))
	}
	defer f.Close()
	return c.Import(ctx, f, password, strategy, onProgress)
}

// ArchiveExposure reports whether an archive at path could end up in a
// git commit
func ArchiveExposure(path string) *git.Status {
	return git.Check(path)
}
