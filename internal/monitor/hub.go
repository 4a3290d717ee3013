// ABOUTME: Snapshot hub merging scheduler and mixer state
// ABOUTME: Fans the latest frame out to every subscriber without blocking producers
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/audioscape/audioscape/pkg/output"
	"github.com/audioscape/audioscape/pkg/soundscape"
)

// Frame is one merged monitoring update
type Frame struct {
	Sequence uint64              `json:"seq"`
	Time     time.Time           `json:"time"`
	Snapshot soundscape.Snapshot `json:"snapshot"`
	Levels   output.Levels       `json:"levels"`
}

// Hub merges snapshots and levels and keeps the latest frame
type Hub struct {
	mu          sync.RWMutex
	latest      Frame
	subscribers map[chan Frame]struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Frame]struct{}),
		done:        make(chan struct{}),
	}
}

// Run merges the two feeds until ctx is cancelled or both feeds close.
// Either feed may be nil.
func (h *Hub) Run(ctx context.Context, snapshots <-chan soundscape.Snapshot, levels <-chan output.Levels) {
	defer h.Close()

	for snapshots != nil || levels != nil {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			h.PublishSnapshot(snap)
		case lv, ok := <-levels:
			if !ok {
				levels = nil
				continue
			}
			h.PublishLevels(lv)
		}
	}
}

// PublishSnapshot replaces the scheduler half of the frame
func (h *Hub) PublishSnapshot(snap soundscape.Snapshot) {
	h.update(func(f *Frame) { f.Snapshot = snap })
}

// PublishLevels replaces the mixer half of the frame
func (h *Hub) PublishLevels(levels output.Levels) {
	h.update(func(f *Frame) { f.Levels = levels })
}

func (h *Hub) update(fn func(*Frame)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return
	default:
	}

	fn(&h.latest)
	h.latest.Sequence++
	h.latest.Time = time.Now()

	for ch := range h.subscribers {
		offer(ch, h.latest)
	}
}

// offer delivers f, replacing a frame the subscriber has not read yet
func offer(ch chan Frame, f Frame) {
	select {
	case ch <- f:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- f:
	default:
	}
}

// Latest returns the most recent frame
func (h *Hub) Latest() Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe returns a channel that always holds the newest unread frame
// and a function that cancels the subscription. The channel is closed when
// the subscription is cancelled or the hub closes.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 1)

	h.mu.Lock()
	select {
	case <-h.done:
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	default:
	}
	h.subscribers[ch] = struct{}{}
	if h.latest.Sequence > 0 {
		ch <- h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Done is closed once the hub has shut down
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Close ends every subscription
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		close(h.done)
		for ch := range h.subscribers {
			delete(h.subscribers, ch)
			close(ch)
		}
	})
}
