package exim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how often archive progress is sampled
const DefaultPollInterval = 100 * time.Millisecond

// FinishState is the terminal state of an archive job
type FinishState int

const (
	FinishSuccess FinishState = iota
	FinishError
	FinishCancelled
)

func (s FinishState) String() string {
	switch s {
	case FinishSuccess:
		return "success"
	case FinishError:
		return "error"
	case FinishCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ZippingState is the outcome of an archive job
type ZippingState struct {
	State FinishState
	Error string
}

// ProgressMonitor tracks an archive job running in the background.
// Workers report through SetTotal, Add and Finish; observers poll it.
type ProgressMonitor struct {
	total atomic.Int64
	done  atomic.Int64

	once  sync.Once
	ch    chan struct{}
	state ZippingState
}

// NewProgressMonitor creates a monitor for a job that has not finished
func NewProgressMonitor() *ProgressMonitor {
	return &ProgressMonitor{ch: make(chan struct{})}
}

// SetTotal sets the amount of work, in bytes
func (m *ProgressMonitor) SetTotal(n int64) {
	m.total.Store(n)
}

// Add records completed work
func (m *ProgressMonitor) Add(n int64) {
	m.done.Add(n)
}

// Fraction returns completed / total work, 0 while the total is unknown
func (m *ProgressMonitor) Fraction() float64 {
	total := m.total.Load()
	if total <= 0 {
		return 0
	}
	f := float64(m.done.Load()) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// Finish ends the job. A context error means cancelled, any other error
// means failed. Only the first call counts.
func (m *ProgressMonitor) Finish(err error) {
	m.once.Do(func() {
		switch {
		case err == nil:
			m.state = ZippingState{State: FinishSuccess}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			m.state = ZippingState{State: FinishCancelled, Error: "operation was cancelled"}
		default:
			m.state = ZippingState{State: FinishError, Error: err.Error()}
		}
		close(m.ch)
	})
}

// Done is closed once the job has finished
func (m *ProgressMonitor) Done() <-chan struct{} {
	return m.ch
}

// State returns the terminal state. It is only meaningful after Done.
func (m *ProgressMonitor) State() ZippingState {
	<-m.ch
	return m.state
}

// PollForZip starts a job and samples its progress every interval until it
// finishes. Jobs honor their own context, so polling always waits for the
// terminal state; callers can rely on the job having stopped touching files.
func PollForZip(start func() *ProgressMonitor, interval time.Duration, onProgress func(float64)) ZippingState {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	m := start()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.Done():
			state := m.State()
			if state.State == FinishSuccess {
				onProgress(1)
			}
			return state
		case <-ticker.C:
			onProgress(m.Fraction())
		}
	}
}
