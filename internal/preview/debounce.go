package preview

import (
	"sync"
	"time"
)

// debouncer coalesces a burst of triggers into a single firing once the
// burst has been quiet for the configured delay. Each Trigger restarts the
// countdown, so a steady stream of events fires nothing until it pauses.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fire  func()
}

func newDebouncer(delay time.Duration, fire func()) *debouncer {
	return &debouncer{delay: delay, fire: fire}
}

// Trigger restarts the quiet-period countdown.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Stop cancels any pending firing.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
