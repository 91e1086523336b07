package bot

import "sync"

// queueSize bounds each user's pending messages; a full queue blocks the
// polling loop, applying backpressure instead of dropping or reordering.
const queueSize = 16

// dispatcher serializes work per user id in strict FIFO order. Each user
// gets one worker goroutine draining a buffered channel, so tasks enqueued
// by the polling loop run in arrival order, while different users' queues
// drain independently and never block each other. A plain per-user mutex is
// not enough here: mutexes allow barging, so two goroutines spawned for the
// same user could acquire it out of spawn order.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64]chan func()
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[int64]chan func())}
}

// enqueue appends fn to the user's queue, starting the user's worker on
// first use. Calls from a single goroutine are processed in call order.
func (d *dispatcher) enqueue(userID int64, fn func()) {
	d.mu.Lock()
	q, ok := d.queues[userID]
	if !ok {
		q = make(chan func(), queueSize)
		d.queues[userID] = q
		go func() {
			for task := range q {
				task()
			}
		}()
	}
	d.mu.Unlock()

	q <- fn
}
