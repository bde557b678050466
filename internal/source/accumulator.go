package source

import "sync"

// Accumulator is the named, explicitly owned shared state behind
// StatePollution scenarios. Probes mutate it; the harness may Reset or
// inspect it between repetitions. Nothing else touches it.
//
// Thread-safety: read-modify-write via Update is atomic. Exclusive
// serializes whole sections against each other.
type Accumulator struct {
	name    string
	initial int64

	section sync.Mutex

	mu     sync.Mutex
	value  int64
	writes int64
}

// NewAccumulator creates an accumulator holding initial.
func NewAccumulator(name string, initial int64) *Accumulator {
	return &Accumulator{name: name, initial: initial, value: initial}
}

// Name returns the accumulator's name.
func (a *Accumulator) Name() string {
	return a.name
}

// Initial returns the value Reset restores.
func (a *Accumulator) Initial() int64 {
	return a.initial
}

// Load returns the current value.
func (a *Accumulator) Load() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Writes returns how many updates changed the value since creation or the
// last Reset.
func (a *Accumulator) Writes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}

// Reset restores the initial value.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = a.initial
	a.writes = 0
}

// Update atomically applies fn to the current value and returns the value
// observed before the update.
func (a *Accumulator) Update(fn func(current int64) int64) (before int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	before = a.value
	next := fn(before)
	if next != before {
		a.writes++
	}
	a.value = next
	return before
}

// Exclusive runs fn while no other Exclusive section on a is running.
// The harness wraps a reset and the following sample in one section so a
// peer's residue cannot land between them. Plain Update calls are not
// blocked.
func (a *Accumulator) Exclusive(fn func()) {
	a.section.Lock()
	defer a.section.Unlock()
	fn()
}
