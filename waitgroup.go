package rpools

import "sync"

const negativeCounter = "rpools: negative WaitGroup counter"

// WaitGroup is a reusable countdown barrier: producers Add before handing
// off work, consumers Done on completion, and Wait blocks until the counter
// reaches zero. Unlike sync.WaitGroup it may be constructed with an initial
// count, and it is explicitly safe to drive the counter back up and reuse
// the group after a Wait returns.
//
// The zero value is a valid WaitGroup with a zero counter.
// All methods are safe for concurrent use.
type WaitGroup struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// NewWaitGroup creates a WaitGroup with the given initial count.
// A negative initial count panics.
func NewWaitGroup(initial int) *WaitGroup {
	if initial < 0 {
		panic(negativeCounter)
	}
	return &WaitGroup{count: initial}
}

// Add adds delta, which may be negative, to the counter. Add must happen
// before the Wait it is meant to gate, never concurrently with it.
// Driving the counter below zero panics.
func (w *WaitGroup) Add(delta int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count += delta
	if w.count < 0 {
		panic(negativeCounter)
	}
	if w.count == 0 && w.cond != nil {
		w.cond.Broadcast()
	}
}

// Done decrements the counter by one. Decrementing past zero panics.
func (w *WaitGroup) Done() {
	w.Add(-1)
}

// Wait blocks the caller until the counter reaches zero. If the counter is
// already zero it returns immediately. Every concurrent waiter is released
// once zero is reached.
func (w *WaitGroup) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.count > 0 {
		if w.cond == nil {
			w.cond = sync.NewCond(&w.mu)
		}
		w.cond.Wait()
	}
}

// Guard holds one unit of a WaitGroup's counter. Release returns the unit;
// extra Release calls are no-ops, so a Guard can be released both on the
// normal path and from a defer without double counting.
type Guard struct {
	wg   *WaitGroup
	once sync.Once
}

// Hold increments the counter and returns a Guard owning that unit.
func (w *WaitGroup) Hold() *Guard {
	w.Add(1)
	return &Guard{wg: w}
}

// Release decrements the counter exactly once per Guard.
func (g *Guard) Release() {
	g.once.Do(g.wg.Done)
}
