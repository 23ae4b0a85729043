package exim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeka/zip"
	"go.uber.org/zap"
)

// Archiver creates and extracts password-protected archives. Both methods
// return immediately; the work runs in the background and reports through
// the monitor. Jobs must stop when ctx is done and finish the monitor.
type Archiver interface {
	Zip(ctx context.Context, files []string, destination, password string) *ProgressMonitor
	Unzip(ctx context.Context, archive, destination, password string) *ProgressMonitor
}

// AESArchiver writes zip archives with AES-256 encrypted entries
type AESArchiver struct {
	log *zap.Logger
}

// NewAESArchiver creates an archiver. A nil logger disables logging.
func NewAESArchiver(log *zap.Logger) *AESArchiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &AESArchiver{log: log}
}

// Zip implements Archiver. Entries are named after the base names of files.
func (a *AESArchiver) Zip(ctx context.Context, files []string, destination, password string) *ProgressMonitor {
	m := NewProgressMonitor()
	go func() {
		err := a.zip(ctx, files, destination, password, m)
		if err != nil {
			a.log.Error("got error during zipping process", zap.String("destination", destination), zap.Error(err))
			os.Remove(destination)
		}
		m.Finish(err)
	}()
	return m
}

func (a *AESArchiver) zip(ctx context.Context, files []string, destination, password string, m *ProgressMonitor) error {
	if password == "" {
		return errors.New("archive password must not be empty")
	}

	var total int64
	for _, path := range files {
		st, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		total += st.Size()
	}
	m.SetTotal(total)

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range files {
		w, err := zw.Encrypt(filepath.Base(path), password, zip.AES256Encryption)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", filepath.Base(path), err)
		}
		if err := copyFileInto(ctx, path, w, m); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return out.Close()
}

func copyFileInto(ctx context.Context, path string, w io.Writer, m *ProgressMonitor) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = copyStream(ctx, in, w, func(n int64) { m.Add(n) })
	if err != nil {
		return fmt.Errorf("failed to compress %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Unzip implements Archiver. Every entry must be encrypted.
func (a *AESArchiver) Unzip(ctx context.Context, archive, destination, password string) *ProgressMonitor {
	m := NewProgressMonitor()
	go func() {
		err := a.unzip(ctx, archive, destination, password, m)
		if err != nil {
			a.log.Error("got error during unzipping process", zap.String("archive", archive), zap.Error(err))
		}
		m.Finish(err)
	}()
	return m
}

func (a *AESArchiver) unzip(ctx context.Context, archive, destination, password string, m *ProgressMonitor) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	var total int64
	for _, f := range r.File {
		total += int64(f.UncompressedSize64)
	}
	m.SetTotal(total)

	root, err := openExtractRoot(destination)
	if err != nil {
		return err
	}
	defer root.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasSuffix(f.Name, "/") {
			local, err := normalizeEntry(f.Name)
			if err != nil {
				return err
			}
			if err := root.Mkdir(local); err != nil {
				return err
			}
			continue
		}
		if !f.IsEncrypted() {
			return fmt.Errorf("entry %s is not password protected", f.Name)
		}
		f.SetPassword(password)
		if err := extractEntry(ctx, root, f, m); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(ctx context.Context, root *extractRoot, f *zip.File, m *ProgressMonitor) error {
	in, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s (wrong password?): %w", f.Name, err)
	}
	defer in.Close()

	out, err := root.Create(f.Name)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := copyStream(ctx, in, out, func(n int64) { m.Add(n) }); err != nil {
		return fmt.Errorf("failed to extract %s (wrong password?): %w", f.Name, err)
	}
	return out.Close()
}

// VerifyZip reports whether path parses as a zip archive
func VerifyZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()
	return true
}
