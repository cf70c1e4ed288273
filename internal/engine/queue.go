package engine

// groupQueue is a FIFO worklist of group ids.
//
// Flood fills over the group graph use it instead of recursion so that
// adversarially deep reference chains cannot exhaust the stack.
type groupQueue struct {
	items []uint32
	head  int
}

// newGroupQueue creates an empty queue.
func newGroupQueue() *groupQueue {
	return &groupQueue{items: make([]uint32, 0, 64)}
}

// Enqueue adds a group to the back of the queue.
func (q *groupQueue) Enqueue(gid uint32) {
	q.items = append(q.items, gid)
}

// TryDequeue removes and returns the front group.
// Returns (0, false) if the queue is empty.
func (q *groupQueue) TryDequeue() (uint32, bool) {
	if q.head == len(q.items) {
		return 0, false
	}
	gid := q.items[q.head]
	q.head++

	// Reset when drained so the backing array is reused.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return gid, true
}

// Len returns the number of queued groups.
func (q *groupQueue) Len() int {
	return len(q.items) - q.head
}
