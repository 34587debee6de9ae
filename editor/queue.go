package editor

import "errors"

// ErrQueueFull is returned when a mutation cannot be queued without
// blocking.
var ErrQueueFull = errors.New("mutation queue full")

// Mutation is a queued change to the scene.
type Mutation struct {
	Command Command
	// Record puts the command on the undo stack once it is applied.
	Record bool
}

// Queue buffers mutations requested from input handlers, file drops and
// watcher goroutines until the frame loop applies them between frames.
// Push is safe from any goroutine; Drain belongs to the frame goroutine.
type Queue struct {
	ch chan Mutation
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Mutation, size)}
}

// Push queues an undoable command.
func (q *Queue) Push(cmd Command) error {
	return q.push(Mutation{Command: cmd, Record: true})
}

// PushTransient queues a command that is applied but not recorded.
func (q *Queue) PushTransient(cmd Command) error {
	return q.push(Mutation{Command: cmd})
}

func (q *Queue) push(m Mutation) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of pending mutations.
func (q *Queue) Len() int { return len(q.ch) }

// Drain hands every pending mutation to fn in FIFO order. Mutations queued
// by fn itself wait for the next drain.
func (q *Queue) Drain(fn func(Mutation)) int {
	n := len(q.ch)
	for i := 0; i < n; i++ {
		fn(<-q.ch)
	}
	return n
}
