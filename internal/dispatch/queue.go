package dispatch

import "sync"

// compactThreshold is the number of consumed slots at the front of the
// pending slice that triggers reclaiming them.
const compactThreshold = 64

// pendingQueue is the FIFO shared by submitters and workers. Idle workers
// block on the condition variable rather than polling.
type pendingQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*WorkItem
	head   int
	closed bool
}

func newPendingQueue() *pendingQueue {
	q := new(pendingQueue)
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends item and wakes one waiting worker.
func (q *pendingQueue) push(item *WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrStopped
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// pop blocks until it can claim the head item, or the queue is closed.
// Exactly one caller receives each item.
func (q *pendingQueue) pop() (*WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	item := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

// close rejects further pushes and releases every blocked pop. Items still
// queued are never claimed.
func (q *pendingQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// doneList collects completed items until the next drain.
type doneList struct {
	mu    sync.Mutex
	items []*WorkItem
}

func (d *doneList) append(item *WorkItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, item)
}

// takeAll returns every item completed so far and empties the list.
func (d *doneList) takeAll() []*WorkItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := d.items
	d.items = nil
	return batch
}

func (d *doneList) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
