package exim

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

// row is a minimal record with one column of each kind the models use
type row struct {
	ID    int64
	Name  string
	Age   int32
	Admin bool
	Blob  []byte
	Score float64
}

func (r row) Fields() []FieldInfo {
	return []FieldInfo{
		{Name: "id", Value: r.ID},
		{Name: "name", Value: r.Name},
		{Name: "age", Value: r.Age},
		{Name: "admin", Value: r.Admin},
		{Name: "blob", Value: r.Blob},
		{Name: "score", Value: r.Score},
	}
}

func (row) FromValues(values []any) (row, error) {
	var r row
	err := Scan(values, &r.ID, &r.Name, &r.Age, &r.Admin, &r.Blob, &r.Score)
	return r, err
}

func (r row) RecordName() string { return r.Name }

func (r row) Describe() string { return "row " + r.Name }

func sampleRows(n int) []row {
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{
			ID:    int64(i + 1),
			Name:  fmt.Sprintf("row-%03d", i),
			Age:   int32(20 + i),
			Admin: i%2 == 0,
			Score: float64(i) / 2,
		}
		if i%3 == 0 {
			rows[i].Blob = []byte{0x00, 0xFF, byte(i)}
		}
	}
	return rows
}

// memStore keeps records in insertion order
type memStore struct {
	mu    sync.Mutex
	items []row
	err   error
}

func (m *memStore) GetAll() ([]row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]row(nil), m.items...), m.err
}

func (m *memStore) GetByName(name string) (row, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Name == name {
			return r, true, nil
		}
	}
	return row{}, false, m.err
}

func (m *memStore) Add(item row) (row, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return item, false, m.err
	}
	for _, r := range m.items {
		if r.Name == item.Name {
			return item, false, nil
		}
	}
	m.items = append(m.items, item)
	return item, true, nil
}

func (m *memStore) Upsert(item row) (row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.items {
		if r.Name == item.Name {
			m.items[i] = item
			return item, nil
		}
	}
	m.items = append(m.items, item)
	return item, nil
}

func (m *memStore) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return m.err
}

// progressLog records progress updates per stage
type progressLog struct {
	mu      sync.Mutex
	updates map[string][]float64
}

func newProgressLog() *progressLog {
	return &progressLog{updates: make(map[string][]float64)}
}

func (p *progressLog) record(pr Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates[pr.Stage] = append(p.updates[pr.Stage], pr.Fraction)
}

func (p *progressLog) get(stage string) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.updates[stage]...)
}

// failingArchiver fails every job
type failingArchiver struct {
	calls int
}

func (f *failingArchiver) Zip(_ context.Context, _ []string, destination, _ string) *ProgressMonitor {
	f.calls++
	m := NewProgressMonitor()
	// leave a partial file behind to prove cleanup removes it
	os.WriteFile(destination, []byte("partial"), 0600)
	m.Finish(fmt.Errorf("disk full"))
	return m
}

func (f *failingArchiver) Unzip(context.Context, string, string, string) *ProgressMonitor {
	f.calls++
	m := NewProgressMonitor()
	m.Finish(fmt.Errorf("checksum mismatch"))
	return m
}

// countingWriter counts writes
type countingWriter struct {
	writes int
	n      int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	w.n += len(p)
	return len(p), nil
}

func testPipeline(t *testing.T, archiver Archiver) (*Pipeline, string) {
	t.Helper()
	tmp := t.TempDir()
	return New(Config{
		TempDir:      tmp,
		PollInterval: 5 * time.Millisecond,
		BatchSize:    2,
		Archiver:     archiver,
	}), tmp
}
