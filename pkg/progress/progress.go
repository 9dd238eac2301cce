// Package progress reports the advance of long pipeline stages and carries
// the cooperative cancel flag.
//
// Workers call Update at coarse intervals; once the run is canceled every
// Update returns false and the stage stops at its next check. Callers
// discard whatever a canceled stage left behind.
package progress

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/chazu/lamina/pkg/logging"
)

// ErrCanceled is returned by stages that stopped because Update reported
// cancellation.
var ErrCanceled = errors.New("progress: canceled")

// Progress receives stage progress. Restart and Update return false when
// the run has been canceled.
type Progress interface {
	Restart(label string, max float64) bool
	Update(step float64) bool
	Stop(label string)
}

// Steps returns the update interval for a loop of n iterations, so that a
// stage reports about a hundred times.
func Steps(n int) int {
	if s := n / 100; s > 1 {
		return s
	}
	return 1
}

// Nop never reports and is never canceled.
type Nop struct{}

func (Nop) Restart(string, float64) bool { return true }
func (Nop) Update(float64) bool          { return true }
func (Nop) Stop(string)                  {}

// Tracker is a Progress that can be canceled from another goroutine.
type Tracker struct {
	// OnUpdate, when set, is called with every accepted update. It runs
	// with the tracker's lock held and must not call back into it.
	OnUpdate func(label string, step, max float64)

	mu       sync.Mutex
	label    string
	max      float64
	step     float64
	canceled atomic.Bool
}

var _ Progress = (*Tracker)(nil)

// NewTracker returns a tracker that reports to fn (which may be nil).
func NewTracker(fn func(label string, step, max float64)) *Tracker {
	return &Tracker{OnUpdate: fn}
}

// Cancel flags the run as canceled.
func (t *Tracker) Cancel() { t.canceled.Store(true) }

// Canceled reports whether Cancel has been called.
func (t *Tracker) Canceled() bool { return t.canceled.Load() }

func (t *Tracker) Restart(label string, max float64) bool {
	if t.canceled.Load() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.label, t.max, t.step = label, max, 0
	t.notify()
	return true
}

func (t *Tracker) Update(step float64) bool {
	if t.canceled.Load() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if step > t.step {
		t.step = step
	}
	t.notify()
	return true
}

func (t *Tracker) Stop(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.label, t.step = label, t.max
	t.notify()
}

// State returns the current label, step and maximum.
func (t *Tracker) State() (label string, step, max float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label, t.step, t.max
}

func (t *Tracker) notify() {
	if t.OnUpdate != nil {
		t.OnUpdate(t.label, t.step, t.max)
	}
}

// LogProgress reports every tenth of a stage to the package logger.
type LogProgress struct {
	Tracker
	lastTenth int
}

// NewLogProgress returns a cancelable Progress that logs at info level.
func NewLogProgress() *LogProgress {
	p := &LogProgress{}
	p.OnUpdate = p.log
	return p
}

func (p *LogProgress) log(label string, step, max float64) {
	if max <= 0 {
		return
	}
	tenth := int(10 * step / max)
	if step == 0 {
		p.lastTenth = 0
		logging.Logger().Info("stage started", "stage", label)
		return
	}
	if tenth > p.lastTenth {
		p.lastTenth = tenth
		logging.Logger().Debug("stage progress", "stage", label, "percent", tenth*10)
	}
}
