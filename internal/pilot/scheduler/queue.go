package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autopeer-io/dronecontrol/internal/pilot/command"
	"github.com/autopeer-io/dronecontrol/internal/pkg/metrics"
	"github.com/autopeer-io/dronecontrol/pkg/log"
)

// Item is a queued command.
type Item struct {
	ID       uuid.UUID
	Command  command.Command
	Enqueued time.Time
}

// Name returns the command name.
func (i Item) Name() string {
	return i.Command.Name()
}

// Queue is the FIFO shared by all producers and the single scheduler loop.
// It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []Item
	ready chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Enqueue appends cmd. With interrupt, everything still pending is discarded
// first, in the same step. A nil cmd is a no-op, but interrupt still clears.
// The returned id is uuid.Nil when nothing was queued.
func (q *Queue) Enqueue(cmd command.Command, interrupt bool) uuid.UUID {
	q.mu.Lock()
	if interrupt {
		q.clearLocked()
	}
	if cmd == nil {
		q.mu.Unlock()
		return uuid.Nil
	}

	item := Item{ID: uuid.New(), Command: cmd, Enqueued: time.Now()}
	q.items = append(q.items, item)
	metrics.QueueDepth.Set(float64(len(q.items)))
	q.mu.Unlock()

	log.Info("Queue action", "command", cmd.Name(), "id", item.ID, "interrupt", interrupt)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return item.ID
}

// Clear discards every pending command and returns how many were dropped.
// The command currently executing is not affected.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clearLocked()
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]
	metrics.QueueDepth.Set(float64(len(q.items)))
	return item, true
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the pending commands in execution order.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

// Ready is signalled after an enqueue. It may fire spuriously.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) clearLocked() int {
	n := len(q.items)
	if n == 0 {
		return 0
	}
	q.items = nil
	metrics.QueueDepth.Set(0)
	metrics.CommandsDiscarded.Add(float64(n))
	log.Warn("Queue cleared", "discarded", n)
	return n
}
