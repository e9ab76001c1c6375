package dsp

// Remover subtracts the running mean of the last N raw samples,
// suppressing baseline drift. The buffer is a fixed-capacity ring with
// an incrementally maintained sum, so Process is O(1) and allocation
// free after construction.
type Remover struct {
	buf  []float64
	idx  int
	fill int
	sum  float64
}

// NewRemover creates a DC remover with a window of n ticks.
// A window of 20 ticks at 100 Hz spans 200 ms.
func NewRemover(n int) *Remover {
	if n <= 0 {
		n = 1
	}
	return &Remover{buf: make([]float64, n)}
}

// Process pushes raw into the ring (evicting the oldest sample once the
// window is full) and returns raw minus the mean of the current
// contents. Before the window fills, the mean covers only the samples
// seen so far, so early output carries no bias from an empty buffer.
func (r *Remover) Process(raw float64) float64 {
	if r.fill < len(r.buf) {
		r.fill++
	} else {
		r.sum -= r.buf[r.idx]
	}
	r.buf[r.idx] = raw
	r.sum += raw
	r.idx = (r.idx + 1) % len(r.buf)

	return raw - r.sum/float64(r.fill)
}

// Mean returns the current window mean, or 0 before any sample arrived.
func (r *Remover) Mean() float64 {
	if r.fill == 0 {
		return 0
	}
	return r.sum / float64(r.fill)
}

// Window returns the configured window length in ticks.
func (r *Remover) Window() int {
	return len(r.buf)
}

// Reset discards the buffered samples.
func (r *Remover) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.idx = 0
	r.fill = 0
	r.sum = 0
}
