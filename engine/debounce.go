package engine

import "time"

// debouncer collects triggers and releases one pass when the window
// expires or the buffer fills. The first trigger of a burst names the pass.
type debouncer struct {
	window    time.Duration
	maxBuffer int

	first   Trigger
	count   int
	timer   *time.Timer
	timerCh <-chan time.Time
}

func newDebouncer(cfg DebounceConfig) *debouncer {
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = 1000
	}
	return &debouncer{window: cfg.Window, maxBuffer: cfg.MaxBuffer}
}

// add records a trigger. It returns true when the pass must run now:
// either no window is configured or the buffer is full.
func (d *debouncer) add(t Trigger) bool {
	if d.count == 0 {
		d.first = t
	}
	d.count++

	if d.window <= 0 || d.count >= d.maxBuffer {
		return true
	}

	// (Re)start the window timer.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.window)
	d.timerCh = d.timer.C
	return false
}

// timerC returns the channel that fires when the window expires. It is
// nil while nothing is pending, which blocks forever in a select.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// take returns the pending trigger and resets the buffer.
func (d *debouncer) take() (Trigger, bool) {
	if d.count == 0 {
		return "", false
	}
	t := d.first
	d.reset()
	return t, true
}

func (d *debouncer) reset() {
	d.count = 0
	d.first = ""
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
}
