package render

// transitionQueue holds mode entries between the control loop and the
// renderer. When full, the oldest entry is overwritten and counted as
// dropped. Not safe for concurrent use; Driver holds its mutex around it.
type transitionQueue struct {
	items   []Transition
	tail    int // oldest entry
	size    int
	dropped int // overwritten since the last drain
}

func newTransitionQueue(capacity int) *transitionQueue {
	return &transitionQueue{items: make([]Transition, capacity)}
}

func (q *transitionQueue) push(t Transition) {
	n := len(q.items)
	if q.size < n {
		q.items[(q.tail+q.size)%n] = t
		q.size++
		return
	}
	q.items[q.tail] = t
	q.tail = (q.tail + 1) % n
	q.dropped++
}

// drain empties the queue, returning its entries oldest first and how many
// were lost to overflow since the previous drain.
func (q *transitionQueue) drain() ([]Transition, int) {
	dropped := q.dropped
	q.dropped = 0
	if q.size == 0 {
		return nil, dropped
	}

	out := make([]Transition, 0, q.size)
	for i := 0; i < q.size; i++ {
		out = append(out, q.items[(q.tail+i)%len(q.items)])
	}
	q.tail, q.size = 0, 0
	return out, dropped
}

func (q *transitionQueue) len() int {
	return q.size
}
