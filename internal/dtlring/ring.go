package dtlring

import (
	"sync"
)

// Ring is a fixed-size collection of recent items.
type Ring[T any] struct {
	mtx sync.Mutex
	buf []T // fully allocated at construction
	cur int // index for next write, walk backwards to read
	len int // count of actual values
}

// NewRing returns an empty ring of items, pre-allocated with the given
// capacity.
func NewRing[T any](cap int) *Ring[T] {
	return &Ring[T]{
		buf: make([]T, cap),
	}
}

// Add the value to the ring. If the ring was full and an item was
// overwritten by this add, return that item and true, otherwise return a
// zero value item and false.
func (r *Ring[T]) Add(val T) (dropped T, ok bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	// Safety first.
	if cap(r.buf) <= 0 {
		var zero T
		return zero, false
	}

	// Capture any overwritten value so it can be returned.
	if r.len >= len(r.buf) {
		dropped, ok = r.buf[r.cur], true
	}

	// Write the value at the write cursor.
	r.buf[r.cur] = val

	// Update the ring size.
	if r.len < len(r.buf) {
		r.len += 1
	}

	// Advance the write cursor.
	r.cur += 1
	if r.cur >= len(r.buf) {
		r.cur -= len(r.buf)
	}

	return dropped, ok
}

// Walk calls the given function for each value in the ring, newest to
// oldest, stopping at the first error.
func (r *Ring[T]) Walk(fn func(T) error) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for i := 0; i < r.len; i++ {
		// Reads go backwards from one before the write cursor.
		cur := r.cur - 1 - i

		// Wrap around when necessary.
		if cur < 0 {
			cur += len(r.buf)
		}

		if err := fn(r.buf[cur]); err != nil {
			return err
		}
	}

	return nil
}

// Stats returns the newest and oldest values in the ring, and the total
// value count.
func (r *Ring[T]) Stats() (newest, oldest T, count int) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	// The cursor math assumes a non-empty ring.
	if r.len == 0 {
		var zero T
		return zero, zero, 0
	}

	// The read head is the value just before the write cursor.
	headidx := r.cur - 1
	if headidx < 0 {
		headidx += len(r.buf)
	}

	// The read tail is len-1 values back from the read head.
	tailidx := headidx - (r.len - 1)
	if tailidx < 0 {
		tailidx += len(r.buf)
	}

	return r.buf[headidx], r.buf[tailidx], r.len
}

// Resize changes the capacity of the ring to the given value. If the new
// capacity is smaller than the existing capacity, resize drops the oldest
// items as necessary, and returns those dropped items.
func (r *Ring[T]) Resize(cap int) (dropped []T) {
	// Safety first.
	if cap <= 0 {
		return
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	// Calculate how many values to fill from the old buffer to the new one.
	fill := r.len
	if fill > cap {
		fill = cap
	}

	// Calculate the read cursor for the old buffer.
	rdcur := r.cur - 1
	if rdcur < 0 {
		rdcur += len(r.buf)
	}

	// Construct the new buffer with the given capacity. As fill is
	// guaranteed to be less than or equal to cap, the write cursor is simply
	// fill, and values are copied by walking both cursors backwards.
	buf := make([]T, cap)
	wrcur := fill - 1

	// Copy recent values from the old buffer to the new buffer.
	for wrcur >= 0 {
		buf[wrcur] = r.buf[rdcur]

		rdcur = rdcur - 1
		if rdcur < 0 {
			rdcur += len(r.buf)
		}

		wrcur = wrcur - 1 // no need to do the wraparound math
	}

	// If we resized smaller, capture the values from the old buffer which
	// are dropped.
	for i := cap; i < r.len; i++ {
		dropped = append(dropped, r.buf[rdcur])

		rdcur = rdcur - 1
		if rdcur < 0 {
			rdcur += len(r.buf)
		}
	}

	// Calculate the next write cursor for the new buffer. If we resized
	// smaller, then fill will equal cap, and we need to wrap around.
	cur := fill
	if cur >= cap {
		cur -= cap
	}

	r.buf = buf
	r.cur = cur
	r.len = fill

	return dropped
}

//
//
//

// Rings is a collection of rings, keyed by name, all sharing a capacity.
type Rings[T any] struct {
	mtx sync.Mutex
	cap int
	set map[string]*Ring[T]
}

// NewRings returns an empty collection of rings, each of which will be
// pre-allocated with the given capacity.
func NewRings[T any](cap int) *Rings[T] {
	return &Rings[T]{
		cap: cap,
		set: map[string]*Ring[T]{},
	}
}

// GetOrCreate returns the ring with the given name, creating it if needed.
func (rs *Rings[T]) GetOrCreate(name string) *Ring[T] {
	rs.mtx.Lock()
	defer rs.mtx.Unlock()

	r, ok := rs.set[name]
	if !ok {
		r = NewRing[T](rs.cap)
		rs.set[name] = r
	}

	return r
}

// GetAll returns a snapshot of all rings, keyed by name.
func (rs *Rings[T]) GetAll() map[string]*Ring[T] {
	rs.mtx.Lock()
	defer rs.mtx.Unlock()

	all := make(map[string]*Ring[T], len(rs.set))
	for name, r := range rs.set {
		all[name] = r
	}

	return all
}

// Resize changes the capacity of every ring, current and future, returning
// any items dropped from current rings by the resize.
func (rs *Rings[T]) Resize(cap int) (dropped []T) {
	if cap <= 0 {
		return nil
	}

	rs.mtx.Lock()
	defer rs.mtx.Unlock()

	rs.cap = cap
	for _, r := range rs.set {
		dropped = append(dropped, r.Resize(cap)...)
	}

	return dropped
}
