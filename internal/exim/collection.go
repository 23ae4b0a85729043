package exim

import (
	"context"
	"errors"
	"io/fs"

	"github.com/illarion/companion/internal/result"
)

// ProgressFunc receives a fraction in [0, 1] and an optional description
// of the current step. It may be called from several goroutines.
type ProgressFunc func(fraction float64, detail string)

// Source is one record collection to export into its own file
type Source interface {
	FileName() string
	// Export writes the collection to path. It reports false when there
	// was nothing to write, in which case no file is created.
	Export(ctx context.Context, path string, onProgress ProgressFunc) result.DataResult[bool]
}

// Sink is one record collection to import from its own file
type Sink interface {
	FileName() string
	// Import reads path into the store. A missing file is an empty collection.
	Import(ctx context.Context, path string, batchSize int, strategy MergeStrategy, onProgress ProgressFunc) result.DataResult[Report]
}

type source[T Exportable] struct {
	fileName string
	label    string
	load     func(ctx context.Context) ([]T, error)
}

// NewSource exports the records returned by load. label names the
// collection in progress descriptions.
func NewSource[T Exportable](fileName, label string, load func(ctx context.Context) ([]T, error)) Source {
	return &source[T]{fileName: fileName, label: label, load: load}
}

func (s *source[T]) FileName() string { return s.fileName }

func (s *source[T]) Export(ctx context.Context, path string, onProgress ProgressFunc) result.DataResult[bool] {
	items, err := s.load(ctx)
	if err != nil {
		return result.FailData[bool](result.Fail(result.KindIO, "Could not load "+s.label+": "+err.Error()))
	}
	if len(items) == 0 {
		onProgress(1, "No "+s.label+" to export")
		return result.With(false)
	}

	err = WriteColumnar(ctx, path, items, func(done, total int, item T) {
		onProgress(float64(done)/float64(total), describe(item, "Processing "+s.label))
	})
	if err != nil {
		if ctx.Err() != nil {
			return result.FailData[bool](result.Fail(result.KindCancelled, "operation was cancelled"))
		}
		return result.FailData[bool](result.Fail(result.KindIO, "Could not export "+s.label+": "+err.Error()))
	}
	return result.With(true)
}

type sink[T Record[T]] struct {
	fileName string
	label    string
	store    Store[T]
	after    string
	prepare  func(T) T
	stored   func(imported, stored T)
}

// SinkOption configures a sink created by NewSink
type SinkOption[T Record[T]] func(*sink[T])

// After makes the sink wait until the sink for fileName has finished.
// Only sinks listed earlier in the same import can be waited for.
func After[T Record[T]](fileName string) SinkOption[T] {
	return func(s *sink[T]) { s.after = fileName }
}

// Prepare rewrites each imported record before it is stored
func Prepare[T Record[T]](f func(T) T) SinkOption[T] {
	return func(s *sink[T]) { s.prepare = f }
}

// OnStored is called with each imported record and the record the store
// holds under its name afterwards, whether it was added, overridden or
// skipped.
func OnStored[T Record[T]](f func(imported, stored T)) SinkOption[T] {
	return func(s *sink[T]) { s.stored = f }
}

// NewSink imports records into store
func NewSink[T Record[T]](fileName, label string, store Store[T], opts ...SinkOption[T]) Sink {
	s := &sink[T]{fileName: fileName, label: label, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sink[T]) FileName() string { return s.fileName }

func (s *sink[T]) dependsOn() string { return s.after }

func (s *sink[T]) Import(ctx context.Context, path string, batchSize int, strategy MergeStrategy, onProgress ProgressFunc) result.DataResult[Report] {
	report := Report{Collection: s.label}

	if strategy == DeleteAllBefore {
		if err := s.store.DeleteAll(); err != nil {
			return result.FailData[Report](result.Fail(result.KindIO, "Could not clear "+s.label+": "+err.Error()))
		}
	}

	err := ReadColumnar(ctx, path, batchSize, func(batch []T, read, total int64) error {
		if err := s.storeBatch(batch, strategy, &report); err != nil {
			return err
		}
		detail := "Processing " + s.label
		if len(batch) > 0 {
			detail = describe(batch[len(batch)-1], detail)
		}
		onProgress(float64(read)/float64(total), detail)
		return nil
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		onProgress(1, "No "+s.label+" to import")
		return result.With(report)
	case err != nil && ctx.Err() != nil:
		return result.FailData[Report](result.Fail(result.KindCancelled, "operation was cancelled"))
	case err != nil:
		return result.FailData[Report](result.Fail(result.KindIO, "Could not import "+s.label+": "+err.Error()))
	}
	if report.Added+report.Overridden+report.Skipped == 0 {
		onProgress(1, "")
	}
	return result.With(report)
}

func describe(item any, fallback string) string {
	if d, ok := item.(Describer); ok {
		return d.Describe()
	}
	return fallback
}
