// =============================
// File: internal/mevlog/queue.go
// =============================
package mevlog

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push once the consumer has terminated.
var ErrClosed = errors.New("mevlog: queue closed")

// queue is an unbounded multi-producer single-consumer FIFO. Push
// never blocks on the consumer: producers only take the mutex for an
// append. This is deliberate — the senders sit on the transaction hot
// path and must not wait on log I/O. The flip side is that memory
// grows without limit if the consumer stalls; queue depth is exported
// as a gauge so a stall is at least visible.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []any
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues an item without waiting for the consumer.
func (q *queue) Push(item any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// Pop blocks until an item is available or the queue is closed and
// drained. The second return is false only in the latter case.
func (q *queue) Pop() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Close rejects further pushes; items already enqueued remain poppable.
func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of queued items.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
