// ABOUTME: Unbounded ordered message queue for single-consumer workers
// ABOUTME: Sends never wait on a slow receiver and are swallowed after Close
// Package mailbox provides the inbound queue used by every worker goroutine.
//
// A Mailbox behaves like a channel without a capacity limit. Messages are
// delivered in send order, a send only takes a short lock, and sends after
// Close report false instead of panicking.
package mailbox

import "sync"

// Mailbox is an unbounded FIFO with a single receive channel.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool

	wake      chan struct{}
	out       chan T
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a mailbox and starts its pump.
func New[T any]() *Mailbox[T] {
	m := newMailbox[T]()
	go m.pump()
	return m
}

func newMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
		done: make(chan struct{}),
	}
}

// Send enqueues v. Returns false if the mailbox has been closed. It only
// holds a short lock and never waits for the pump goroutine.
func (m *Mailbox[T]) Send(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// Receive returns the channel messages are delivered on. It is closed once
// the mailbox is closed.
func (m *Mailbox[T]) Receive() <-chan T {
	return m.out
}

// Close stops the mailbox. Queued messages not yet received are dropped.
func (m *Mailbox[T]) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.queue = nil
		m.mu.Unlock()
		close(m.done)
	})
}

// Done is closed when the mailbox is closed.
func (m *Mailbox[T]) Done() <-chan struct{} {
	return m.done
}

// pump moves queued messages to the receive channel in batches. The queue
// and the batch swap backing arrays so steady traffic does not allocate.
func (m *Mailbox[T]) pump() {
	defer close(m.out)

	var batch []T
	for {
		select {
		case <-m.wake:
		case <-m.done:
			return
		}

		m.mu.Lock()
		batch, m.queue = m.queue, batch[:0]
		m.mu.Unlock()

		for i, v := range batch {
			select {
			case m.out <- v:
				var zero T
				batch[i] = zero
			case <-m.done:
				return
			}
		}
	}
}
