// ABOUTME: Sample buffers exchanged between the pipeline worker and consumers
// ABOUTME: Buffers return their storage to the worker when released
package stream

import (
	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/mailbox"
)

// Range is the half-open range of raw file sample indices covered by a buffer.
// Start is the file position of the first sample; End is Start plus the number
// of samples, so it can run past the end of a looping file.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of samples in the range
func (r Range) Len() int64 { return r.End - r.Start }

// prepared is a filled buffer waiting in a sound's FIFO
type prepared struct {
	samples  []float32
	rng      Range
	terminal bool
}

// fifo is a fixed-capacity queue of prepared buffers
type fifo struct {
	items [NumBuffers]prepared
	head  int
	n     int
}

func (q *fifo) len() int { return q.n }

func (q *fifo) push(p prepared) {
	if q.n == NumBuffers {
		panic("stream: prepared buffer FIFO overflow")
	}
	q.items[(q.head+q.n)%NumBuffers] = p
	q.n++
}

func (q *fifo) pop() (prepared, bool) {
	if q.n == 0 {
		return prepared{}, false
	}
	p := q.items[q.head]
	q.items[q.head] = prepared{}
	q.head = (q.head + 1) % NumBuffers
	q.n--
	return p, true
}

// Buffer is one filled buffer handed to a consumer. Exactly one Buffer refers
// to a given storage at a time; Release gives the storage back to the worker.
type Buffer struct {
	samples []float32
	id      audio.SoundID
	rng     Range
	inbox   *mailbox.Mailbox[message]
}

// Samples returns the buffer's interleaved samples. They must not be used after Release.
func (b *Buffer) Samples() []float32 { return b.samples }

// ID returns the sound the buffer belongs to
func (b *Buffer) ID() audio.SoundID { return b.id }

// Range returns the file samples covered by the buffer
func (b *Buffer) Range() Range { return b.rng }

// Release returns the storage to the pipeline worker for refilling. Calling it
// more than once is a no-op. Returns after the worker has exited are dropped.
func (b *Buffer) Release() {
	if b.samples == nil || b.inbox == nil {
		return
	}
	samples := b.samples
	b.samples = nil
	b.inbox.Send(processedMsg{id: b.id, samples: samples})
}
