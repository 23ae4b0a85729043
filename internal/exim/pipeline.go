package exim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/companion/internal/result"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage names passed to Progress.Stage besides collection file names
const (
	StageArchive = "archive"
	StageVerify  = "verify"
	StageCopy    = "copy"
	StageExtract = "extract"
)

// DefaultBatchSize is the number of records imported per batch
const DefaultBatchSize = 100

// Progress is one progress update of a pipeline run
type Progress struct {
	Stage    string // collection file name or one of the Stage constants
	Fraction float64
	Detail   string
}

// Config configures a Pipeline
type Config struct {
	// TempDir holds per-run temporary directories; "" means os.TempDir()
	TempDir      string
	PollInterval time.Duration
	BatchSize    int
	Archiver     Archiver
	Logger       *zap.Logger
}

// Pipeline runs exports and imports. Runs are independent and may overlap.
type Pipeline struct {
	cfg Config
	log *zap.Logger
}

// New creates a pipeline, filling unset Config fields with defaults
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Archiver == nil {
		cfg.Archiver = NewAESArchiver(cfg.Logger)
	}
	return &Pipeline{cfg: cfg, log: cfg.Logger.Named("exim")}
}

// run holds the state of one export or import
type run struct {
	log        *zap.Logger
	dir        string
	onProgress func(Progress)
	mu         sync.Mutex
}

func (p *Pipeline) newRun(kind string, onProgress func(Progress)) (*run, error) {
	dir, err := os.MkdirTemp(p.cfg.TempDir, "companion-"+kind+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	id := uuid.NewString()
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	return &run{
		log:        p.log.With(zap.String("run", id), zap.String("op", kind)),
		dir:        dir,
		onProgress: onProgress,
	}, nil
}

func (r *run) progress(stage string) ProgressFunc {
	return func(fraction float64, detail string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.onProgress(Progress{Stage: stage, Fraction: fraction, Detail: detail})
	}
}

// cleanup removes everything the run created
func (r *run) cleanup() {
	if err := os.RemoveAll(r.dir); err != nil {
		r.log.Warn("failed to remove temporary files", zap.String("dir", r.dir), zap.Error(err))
		return
	}
	r.log.Debug("removed temporary files", zap.String("dir", r.dir))
}

func (r *run) finish(res result.Result, started time.Time) {
	if res.Succeeded() {
		r.log.Info("finished", zap.Duration("elapsed", time.Since(started)))
		return
	}
	r.log.Warn("failed", zap.Stringer("kind", res.Kind), zap.String("message", res.Message))
}

// Export writes every source to a columnar file, archives the files with
// password, verifies the archive and copies it to out. Temporary files are
// removed on every exit path.
func (p *Pipeline) Export(ctx context.Context, out io.Writer, password string, sources []Source, onProgress func(Progress)) result.Result {
	if password == "" {
		return result.Fail(result.KindBadInput, "Archive password must not be empty")
	}
	if err := checkFileNames(sources); err != nil {
		return result.FromError(result.KindBadInput, err)
	}

	r, err := p.newRun("export", onProgress)
	if err != nil {
		return result.FromError(result.KindIO, err)
	}
	defer r.cleanup()

	started := time.Now()
	r.log.Info("starting export", zap.Int("collections", len(sources)))

	// os.CreateTemp leaves an empty placeholder at the archive path that the
	// archive stage has to clear first
	placeholder, err := os.CreateTemp(r.dir, "companion-*.zip")
	if err != nil {
		return result.Failf(result.KindIO, "Could not create archive file: %v", err)
	}
	zipPath := placeholder.Name()
	placeholder.Close()

	var files []string
	res := p.exportSources(ctx, r, sources, &files).
		Pipe(func() result.Result { return p.zipStage(ctx, r, files, zipPath, password) }).
		Pipe(func() result.Result { return p.verifyStage(r, zipPath) }).
		Pipe(func() result.Result { return p.copyOutStage(ctx, r, zipPath, out) })

	r.finish(res, started)
	return res
}

// exportSources writes all sources concurrently and reports the first failure
// in source order
func (p *Pipeline) exportSources(ctx context.Context, r *run, sources []Source, files *[]string) result.Result {
	results := make([]result.DataResult[bool], len(sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range sources {
		g.Go(func() error {
			r.log.Debug("export job started", zap.String("file", src.FileName()))
			results[i] = src.Export(gctx, filepath.Join(r.dir, src.FileName()), r.progress(src.FileName()))
			r.log.Debug("export job joined", zap.String("file", src.FileName()), zap.Stringer("status", results[i].Status))
			return results[i].Err()
		})
	}
	g.Wait()

	for i, res := range results {
		if !res.Succeeded() {
			// a job cancelled because a sibling failed is not the first failure
			if res.Kind == result.KindCancelled && ctx.Err() == nil {
				continue
			}
			return res.Result
		}
		if res.Data {
			*files = append(*files, filepath.Join(r.dir, sources[i].FileName()))
		}
	}
	for _, res := range results {
		if !res.Succeeded() {
			return res.Result
		}
	}
	return result.OK
}

func (p *Pipeline) zipStage(ctx context.Context, r *run, files []string, zipPath, password string) result.Result {
	// a stray empty file must not pass for an archive
	if err := os.Remove(zipPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result.Failf(result.KindIO, "Could not clear archive destination: %v", err)
	}

	progress := r.progress(StageArchive)
	r.log.Debug("creating archive", zap.Int("files", len(files)))
	state := PollForZip(func() *ProgressMonitor {
		return p.cfg.Archiver.Zip(ctx, files, zipPath, password)
	}, p.cfg.PollInterval, func(f float64) { progress(f, "Creating archive...") })

	return zipResult(state, result.KindIO, "Could not create archive")
}

func (p *Pipeline) verifyStage(r *run, zipPath string) result.Result {
	r.progress(StageVerify)(0, "Verifying archive")
	if !VerifyZip(zipPath) {
		return result.Fail(result.KindIntegrity, "Internal error: created archive is corrupt")
	}
	r.progress(StageVerify)(1, "Verifying archive")
	return result.OK
}

func (p *Pipeline) copyOutStage(ctx context.Context, r *run, zipPath string, out io.Writer) result.Result {
	in, err := os.Open(zipPath)
	if err != nil {
		return result.Failf(result.KindIO, "Could not open archive: %v", err)
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return result.Failf(result.KindIO, "Could not open archive: %v", err)
	}

	progress := r.progress(StageCopy)
	_, err = CopyStream(ctx, in, out, st.Size(), func(f float64) { progress(f, "Moving zip") })
	return copyResult(ctx, err, "Could not write archive")
}

// Import copies in to a temporary file, checks that it is a zip archive,
// extracts it with password and imports every sink's file using strategy.
// Temporary files are removed on every exit path.
func (p *Pipeline) Import(ctx context.Context, in io.Reader, password string, sinks []Sink, strategy MergeStrategy, onProgress func(Progress)) result.DataResult[[]Report] {
	if password == "" {
		return result.FailData[[]Report](result.Fail(result.KindBadInput, "Archive password must not be empty"))
	}

	r, err := p.newRun("import", onProgress)
	if err != nil {
		return result.FailData[[]Report](result.FromError(result.KindIO, err))
	}
	defer r.cleanup()

	started := time.Now()
	r.log.Info("starting import", zap.Int("collections", len(sinks)), zap.Stringer("strategy", strategy))

	zipPath := filepath.Join(r.dir, "import.zip")
	extractDir := filepath.Join(r.dir, "extracted")

	res := p.copyInStage(ctx, r, in, zipPath).
		Pipe(func() result.Result { return p.checkZipStage(zipPath) }).
		Pipe(func() result.Result { return p.unzipStage(ctx, r, zipPath, extractDir, password) })

	out := result.PipeData(result.DataResult[struct{}]{Result: res}, func(struct{}) result.DataResult[[]Report] {
		return p.importSinks(ctx, r, sinks, extractDir, strategy)
	})

	r.finish(out.Result, started)
	return out
}

func (p *Pipeline) copyInStage(ctx context.Context, r *run, in io.Reader, zipPath string) result.Result {
	f, err := os.OpenFile(zipPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return result.Failf(result.KindIO, "Could not create temporary archive: %v", err)
	}
	defer f.Close()

	progress := r.progress(StageCopy)
	total := int64(-1)
	if s, ok := in.(interface{ Stat() (os.FileInfo, error) }); ok {
		if st, err := s.Stat(); err == nil {
			total = st.Size()
		}
	}
	_, err = CopyStream(ctx, in, f, total, func(fr float64) { progress(fr, "Copying archive") })
	if res := copyResult(ctx, err, "Could not read archive"); !res.Succeeded() {
		return res
	}
	if err := f.Close(); err != nil {
		return result.Failf(result.KindIO, "Could not read archive: %v", err)
	}
	return result.OK
}

func (p *Pipeline) checkZipStage(zipPath string) result.Result {
	return result.FromBool(VerifyZip(zipPath), result.KindBadInput, "object is not a valid zip archive")
}

func (p *Pipeline) unzipStage(ctx context.Context, r *run, zipPath, extractDir, password string) result.Result {
	progress := r.progress(StageExtract)
	state := PollForZip(func() *ProgressMonitor {
		return p.cfg.Archiver.Unzip(ctx, zipPath, extractDir, password)
	}, p.cfg.PollInterval, func(f float64) { progress(f, "Extracting archive...") })

	// zip reports a wrong password and a damaged entry the same way
	return zipResult(state, result.KindIntegrity, "Could not extract archive")
}

func (p *Pipeline) importSinks(ctx context.Context, r *run, sinks []Sink, dir string, strategy MergeStrategy) result.DataResult[[]Report] {
	results := make([]result.DataResult[Report], len(sinks))
	g, gctx := errgroup.WithContext(ctx)

	done := make([]chan struct{}, len(sinks))
	index := make(map[string]int, len(sinks))
	for i, s := range sinks {
		done[i] = make(chan struct{})
		if _, ok := index[s.FileName()]; !ok {
			index[s.FileName()] = i
		}
	}

	for i, s := range sinks {
		g.Go(func() error {
			defer close(done[i])
			if d, ok := s.(interface{ dependsOn() string }); ok {
				// earlier sinks only, so waits cannot form a cycle
				if j, ok := index[d.dependsOn()]; ok && j < i {
					ready := false
					select {
					case <-done[j]:
						ready = results[j].Succeeded()
					case <-gctx.Done():
					}
					if !ready {
						results[i] = result.FailData[Report](result.Fail(result.KindCancelled, "operation was cancelled"))
						return results[i].Err()
					}
				}
			}
			r.log.Debug("import job started", zap.String("file", s.FileName()))
			results[i] = s.Import(gctx, filepath.Join(dir, s.FileName()), p.cfg.BatchSize, strategy, r.progress(s.FileName()))
			r.log.Debug("import job joined", zap.String("file", s.FileName()), zap.Stringer("status", results[i].Status))
			return results[i].Err()
		})
	}
	g.Wait()

	reports := make([]Report, 0, len(sinks))
	for _, res := range results {
		if !res.Succeeded() && (res.Kind != result.KindCancelled || ctx.Err() != nil) {
			return result.FailData[[]Report](res.Result)
		}
	}
	for _, res := range results {
		if !res.Succeeded() {
			return result.FailData[[]Report](res.Result)
		}
		reports = append(reports, res.Data)
	}
	return result.With(reports)
}

func zipResult(state ZippingState, kind result.Kind, message string) result.Result {
	switch state.State {
	case FinishSuccess:
		return result.OK
	case FinishCancelled:
		return result.Fail(result.KindCancelled, "operation was cancelled")
	default:
		return result.Failf(kind, "%s: %s", message, state.Error)
	}
}

func copyResult(ctx context.Context, err error, message string) result.Result {
	switch {
	case err == nil:
		return result.OK
	case ctx.Err() != nil:
		return result.Fail(result.KindCancelled, "operation was cancelled")
	default:
		return result.Failf(result.KindIO, "%s: %v", message, err)
	}
}

func checkFileNames(sources []Source) error {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		name := s.FileName()
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("invalid collection file name %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate collection file name %q", name)
		}
		seen[name] = true
	}
	return nil
}
