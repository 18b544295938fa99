package cache

// InPort is a depth-1, ready/valid input queue (spec.md §5): "bounded
// queues of depth 1 on each port." Push succeeds only while the slot is
// empty; Pop drains it.
type InPort[T any] struct {
	has bool
	val T
}

// Ready reports whether the port can currently accept a new value.
func (p *InPort[T]) Ready() bool { return !p.has }

// Push enqueues val, returning false if the slot was already occupied.
func (p *InPort[T]) Push(val T) bool {
	if p.has {
		return false
	}
	p.val = val
	p.has = true
	return true
}

// Peek returns the queued value without draining it.
func (p *InPort[T]) Peek() (T, bool) {
	return p.val, p.has
}

// Pop drains and returns the queued value.
func (p *InPort[T]) Pop() (T, bool) {
	v, ok := p.val, p.has
	var zero T
	p.val = zero
	p.has = false
	return v, ok
}

// OutPort is a depth-1, ready/valid output queue. The external consumer
// calls Ready/Pop; the cache calls Push each tick it has something to
// emit.
type OutPort[T any] struct {
	has bool
	val T
}

// Ready reports whether the port can currently accept a new value (i.e.
// the previous tick's output, if any, has been drained).
func (p *OutPort[T]) Ready() bool { return !p.has }

// Push enqueues val, returning false if the slot was already occupied
// (backpressure: the cache must not drop data, per spec.md §4.7).
func (p *OutPort[T]) Push(val T) bool {
	if p.has {
		return false
	}
	p.val = val
	p.has = true
	return true
}

// Pop drains and returns the queued value, for the external consumer.
func (p *OutPort[T]) Pop() (T, bool) {
	v, ok := p.val, p.has
	var zero T
	p.val = zero
	p.has = false
	return v, ok
}
