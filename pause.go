package imagesweep

import "sync/atomic"

// PauseController is the in-process Session: a pause flag toggled from
// outside (signal handler, UI) plus completion counters.
type PauseController struct {
	paused    atomic.Bool
	succeeded atomic.Int64
	failed    atomic.Int64
}

// Pause makes downloads wait before their next attempt.
func (p *PauseController) Pause() { p.paused.Store(true) }

// Resume releases waiting downloads.
func (p *PauseController) Resume() { p.paused.Store(false) }

// Toggle flips the pause state and returns the new one.
func (p *PauseController) Toggle() bool {
	for {
		old := p.paused.Load()
		if p.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// ShouldPause implements Session.
func (p *PauseController) ShouldPause() bool { return p.paused.Load() }

// Progress implements Session by counting completed URLs.
func (p *PauseController) Progress(_ string, ok bool) {
	if ok {
		p.succeeded.Add(1)
	} else {
		p.failed.Add(1)
	}
}

// Done returns the succeeded and failed URL counts seen so far.
func (p *PauseController) Done() (succeeded, failed int64) {
	return p.succeeded.Load(), p.failed.Load()
}
