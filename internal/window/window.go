// Package window implements the fixed-capacity rolling price buffer feeding the trend statistics.
package window

// Window keeps the most recent prices in arrival order, evicting the oldest
// entry once capacity is reached. It is owned by a single goroutine; the
// scheduler mutates it only between fetch and decide.
type Window struct {
	cap int
	buf []float64
}

// New builds an empty window with the given fixed capacity.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = 30
	}
	return &Window{cap: capacity, buf: make([]float64, 0, capacity)}
}

// Push appends a price, evicting the oldest entry when at capacity.
func (w *Window) Push(price float64) {
	if len(w.buf) == w.cap {
		copy(w.buf, w.buf[1:])
		w.buf = w.buf[:w.cap-1]
	}
	w.buf = append(w.buf, price)
}

// Full reports whether the window holds exactly its capacity of prices.
// Statistics are undefined until this returns true.
func (w *Window) Full() bool { return len(w.buf) == w.cap }

// Len returns the current number of buffered prices.
func (w *Window) Len() int { return len(w.buf) }

// Cap returns the fixed capacity set at construction.
func (w *Window) Cap() int { return w.cap }

// Snapshot returns a copy of the buffered prices, oldest to newest.
func (w *Window) Snapshot() []float64 {
	out := make([]float64, len(w.buf))
	copy(out, w.buf)
	return out
}

// Last returns the most recently pushed price, or 0 when empty.
func (w *Window) Last() float64 {
	if len(w.buf) == 0 {
		return 0
	}
	return w.buf[len(w.buf)-1]
}
