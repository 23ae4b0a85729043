package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/illarion/companion/internal/config"
	"github.com/illarion/companion/internal/crypto"
	"github.com/illarion/companion/internal/exim"
	"github.com/illarion/companion/internal/git"
	"github.com/illarion/companion/internal/keyring"
	"github.com/illarion/companion/internal/model"
	"github.com/illarion/companion/internal/repository"
	"github.com/illarion/companion/internal/security"
	"github.com/illarion/companion/internal/storage"
	"go.uber.org/zap"
)

const (
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only
)

// Note store backends reported by Status
const (
	BackendBolt     = "bbolt"
	BackendPostgres = "postgres"
)

var (
	ErrNoteExists    = errors.New("note already exists")
	ErrNoteNotFound  = errors.New("note not found")
	ErrLoginRequired = errors.New("login required")
)

// NoteStore is where notes live: the bbolt notes bucket or a PostgreSQL table
type NoteStore interface {
	exim.Store[model.Note]
	Delete(name string) (bool, error)
	Count() (int, error)
}

// Options configures Open. Only Config is required.
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// Platform answers biometric queries; nil means no biometric hardware
	Platform security.Platform
	// Preferences overrides the store selected by Config.Preferences
	Preferences security.Preferences
	// Notes overrides the store selected by Config.PostgresDSN
	Notes NoteStore
}

// Companion ties the database, the security actor and the export/import
// pipeline together
type Companion struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *storage.Storage
	sqlDB      *sql.DB
	backend    string
	prefs      security.Preferences
	hasher     *crypto.Hasher
	actor      *security.Actor
	notes      NoteStore
	categories *storage.Collection[model.NoteCategory]
	pipeline   *exim.Pipeline
}

// Open opens (or creates) the database named by the configuration
func Open(ctx context.Context, opts Options) (*Companion, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	methods, err := parseMethods(cfg.Methods)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &Companion{
		cfg:        cfg,
		log:        log,
		db:         db,
		backend:    BackendBolt,
		hasher:     crypto.NewHasher(cfg.Argon2.Params()),
		categories: storage.NewCollection[model.NoteCategory](db, storage.CategoriesBucket),
	}

	switch {
	case opts.Preferences != nil:
		c.prefs = opts.Preferences
	case cfg.Preferences == config.PreferencesKeyring:
		c.prefs = keyring.New("")
	default:
		c.prefs = db.Preferences()
	}

	switch {
	case opts.Notes != nil:
		c.notes = opts.Notes
	case cfg.PostgresDSN != "":
		sqlDB, err := repository.Open(cfg.PostgresDSN)
		if err != nil {
			db.Close()
			return nil, err
		}
		repo := repository.NewNoteRepository(sqlDB, "")
		if err := repo.Migrate(ctx); err != nil {
			sqlDB.Close()
			db.Close()
			return nil, err
		}
		c.sqlDB = sqlDB
		c.notes = repo
		c.backend = BackendPostgres
	default:
		c.notes = storage.NewCollection[model.Note](db, storage.NotesBucket)
	}

	platform := opts.Platform
	if platform == nil {
		platform = security.UnsupportedPlatform{}
	}
	c.actor = security.NewActor(security.Dependencies{
		Preferences: c.prefs,
		Platform:    platform,
		Prompt:      security.DefaultPrompt,
		Hasher:      c.hasher,
		Logger:      log,
		Methods:     methods,
	})

	c.pipeline = exim.New(exim.Config{
		TempDir:      cfg.TempDir,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		Logger:       log,
	})

	log.Debug("opened companion",
		zap.String("database", cfg.Database),
		zap.String("notes", c.backend),
		zap.String("preferences", cfg.Preferences))
	return c, nil
}

func parseMethods(names []string) (security.CompactTypeSet, error) {
	if len(names) == 0 {
		return security.AllTypes, nil
	}
	var types []security.Type
	for _, name := range names {
		t, err := security.ParseType(name)
		if err != nil {
			return 0, err
		}
		types = append(types, t)
	}
	return security.NewCompactTypeSet(types...), nil
}

// Close releases the databases
func (c *Companion) Close() error {
	var errs []error
	if c.sqlDB != nil {
		errs = append(errs, c.sqlDB.Close())
	}
	errs = append(errs, c.db.Close())
	return errors.Join(errs...)
}

// Actor returns the security actor
func (c *Companion) Actor() *security.Actor {
	return c.actor
}

// DatabasePath returns the bbolt file path
func (c *Companion) DatabasePath() string {
	return c.db.Path()
}

// Status summarizes the database and the security setup
type Status struct {
	Database   *storage.Info
	Backend    string
	Notes      int
	Categories int
	Setup      []security.Type
	NotSetup   []security.Type
	Clearance  int
	Git        *git.Status
}

// Status gathers the current state. It does not require a login.
func (c *Companion) Status(ctx context.Context) (*Status, error) {
	info, err := c.db.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read database info: %w", err)
	}
	notes, err := c.notes.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}
	setup, err := c.actor.SetupMethods(ctx)
	if err != nil {
		return nil, err
	}
	notSetup, err := c.actor.NotSetupMethods(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		Database:   info,
		Backend:    c.backend,
		Notes:      notes,
		Categories: info.Categories,
		Setup:      setup,
		NotSetup:   notSetup,
		Clearance:  c.actor.Clearance(),
		Git:        git.Check(c.db.Path()),
	}, nil
}

// Compact rewrites the bbolt file to reclaim space
func (c *Companion) Compact() error {
	if err := c.db.Compact(); err != nil {
		return fmt.Errorf("failed to compact database: %w", err)
	}
	c.log.Info("compacted database", zap.String("path", c.db.Path()))
	return nil
}
