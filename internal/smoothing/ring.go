package smoothing

// Ring is a fixed-capacity circular buffer of float64 readings that keeps a
// running sum, so the mean is O(1). It starts zero-filled: until capacity
// readings have been pushed, the empty slots pull the mean toward zero.
type Ring struct {
	data []float64
	pos  int
	sum  float64
	n    int
}

// NewRing creates a zero-filled Ring. Capacities below 1 are raised to 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Push evicts the oldest reading, stores v and advances the cursor.
func (r *Ring) Push(v float64) {
	r.sum -= r.data[r.pos]
	r.sum += v
	r.data[r.pos] = v
	r.pos = (r.pos + 1) % len(r.data)
	if r.n < len(r.data) {
		r.n++
	}
}

// Sum is the running total of every slot.
func (r *Ring) Sum() float64 { return r.sum }

// Mean divides the running sum by the full capacity, zero slots included.
func (r *Ring) Mean() float64 { return r.sum / float64(len(r.data)) }

func (r *Ring) Cap() int { return len(r.data) }

// Len returns how many slots hold a pushed reading.
func (r *Ring) Len() int { return r.n }

// Slice returns the buffer contents oldest first, zero slots included.
func (r *Ring) Slice() []float64 {
	out := make([]float64, 0, len(r.data))
	out = append(out, r.data[r.pos:]...)
	return append(out, r.data[:r.pos]...)
}

// Reset zero-fills the ring and rewinds the cursor.
func (r *Ring) Reset() {
	for i := range r.data {
		r.data[i] = 0
	}
	r.pos, r.sum, r.n = 0, 0, 0
}
