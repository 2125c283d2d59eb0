// Package progress turns the tagging service's per-file progress ticks
// into the stable phase + percentage state the upload screen consumes.
package progress

import (
	"sync"
	"time"
)

// Phase is the coarse stage of a batch upload.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUploading  Phase = "uploading"
	PhaseProcessing Phase = "processing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Tick is one server-reported progress update.
type Tick struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// Snapshot is the externally visible aggregator state. Percentage is the
// raw processed/total value and drives every completion decision;
// DisplayPercentage is the eased value meant only for rendering.
type Snapshot struct {
	Phase             Phase   `json:"phase"`
	Total             int     `json:"total"`
	Processed         int     `json:"processed"`
	Remaining         int     `json:"remaining"`
	Percentage        float64 `json:"percentage"`
	DisplayPercentage float64 `json:"display_percentage"`
	Error             string  `json:"error,omitempty"`
}

const (
	animationInterval = 50 * time.Millisecond
	easeFactor        = 0.18
	snapThreshold     = 0.5
)

// Aggregator folds ticks into a phase state machine and runs a small
// animation loop that eases the displayed percentage toward the raw one so
// rapid ticks don't cause visual jumps. Phase is purely a function of the
// latest tick: processed > 0 means processing, and the phase never reverts
// to uploading afterwards.
type Aggregator struct {
	mu        sync.Mutex
	phase     Phase
	total     int
	processed int
	display   float64
	err       error
	listeners []func(Snapshot)
	stopped   bool

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewAggregator() *Aggregator {
	a := &Aggregator{
		phase:    PhaseIdle,
		stopChan: make(chan struct{}),
	}
	a.wg.Add(1)
	go a.animate()
	return a
}

// Start marks the upload request as issued: total is known, nothing has
// been processed yet.
func (a *Aggregator) Start(total int) {
	a.mu.Lock()
	if a.phase == PhaseIdle {
		a.phase = PhaseUploading
		a.total = total
		a.processed = 0
	}
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)
}

// Apply folds one server-reported tick into the state machine. Ticks after
// a terminal phase are ignored.
func (a *Aggregator) Apply(t Tick) {
	a.mu.Lock()
	if a.phase.Terminal() {
		a.mu.Unlock()
		return
	}
	if t.Total > 0 {
		a.total = t.Total
	}
	if t.Processed > a.processed {
		a.processed = t.Processed
	}
	if a.processed > a.total {
		a.processed = a.total
	}

	switch {
	case a.total > 0 && a.processed >= a.total:
		a.phase = PhaseDone
	case a.processed > 0:
		a.phase = PhaseProcessing
	default:
		// a zero-processed tick never demotes an already-processing upload
		if a.phase != PhaseProcessing {
			a.phase = PhaseUploading
		}
	}
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)
}

// Fail enters the terminal failed phase, keeping the first error.
func (a *Aggregator) Fail(err error) {
	a.mu.Lock()
	if a.phase.Terminal() {
		a.mu.Unlock()
		return
	}
	a.phase = PhaseFailed
	a.err = err
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.notify(snap)
}

// Err returns the failure recorded by Fail, if any.
func (a *Aggregator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:             a.phase,
		Total:             a.total,
		Processed:         a.processed,
		Remaining:         a.total - a.processed,
		Percentage:        rawPercentage(a.processed, a.total),
		DisplayPercentage: a.display,
	}
	if snap.Remaining < 0 {
		snap.Remaining = 0
	}
	if a.err != nil {
		snap.Error = a.err.Error()
	}
	return snap
}

// Subscribe registers a listener invoked on every state change and on every
// animation step that moves the displayed percentage. Listeners must not
// call back into the aggregator. No listener fires after Stop returns.
func (a *Aggregator) Subscribe(fn func(Snapshot)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// notify runs the listeners under the lock: a Stop that has taken the lock
// excludes every later callback, and a callback in flight delays Stop.
func (a *Aggregator) notify(snap Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	for _, fn := range a.listeners {
		fn(snap)
	}
}

// Stop tears the aggregator down and releases the animation timer. After
// Stop returns no listener callback will fire again, even if Start, Apply
// or Fail are still called on the torn-down aggregator.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		a.mu.Unlock()
		close(a.stopChan)
	})
	a.wg.Wait()
}

func (a *Aggregator) animate() {
	defer a.wg.Done()
	ticker := time.NewTicker(animationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.mu.Lock()
			raw := rawPercentage(a.processed, a.total)
			next := easeToward(a.display, raw)
			moved := next != a.display
			a.display = next
			snap := a.snapshotLocked()
			a.mu.Unlock()
			if moved {
				a.notify(snap)
			}
		case <-a.stopChan:
			return
		}
	}
}

func rawPercentage(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(processed) / float64(total) * 100
}

// easeToward moves the displayed value a fraction of the remaining distance
// toward the raw target, snapping once it gets close. The displayed value
// only ever chases the raw one; it is never used for decisions.
func easeToward(display, raw float64) float64 {
	diff := raw - display
	if diff < 0 {
		// raw can only move forward; a smaller raw means a fresh aggregator
		return raw
	}
	if diff <= snapThreshold {
		return raw
	}
	return display + diff*easeFactor
}
