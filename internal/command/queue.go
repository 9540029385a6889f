package command

import "sync"

// Sink accepts commands without blocking.
type Sink interface {
	Send(Command)
}

// Queue is an unbounded multi-producer single-consumer FIFO. Producers never
// block; the UI loop drains it with TryNext.
type Queue struct {
	mu     sync.Mutex
	items  []Command
	closed bool
	sent   uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{items: make([]Command, 0, 16)}
}

// Send appends c. Commands sent after Close are discarded.
func (q *Queue) Send(c Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, c)
	q.sent++
}

// TryNext pops the oldest command if one is queued.
func (q *Queue) TryNext() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Command{}, false
	}
	c := q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = q.items[:0:0]
	}
	return c, true
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Sent returns how many commands were accepted.
func (q *Queue) Sent() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sent
}

// Close stops accepting commands and drops anything still queued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}
