// ABOUTME: Consumer-side sample cursor over a streaming sound
// ABOUTME: Pulls buffers without blocking and recycles them as they drain
package stream

import (
	"github.com/audioscape/audioscape/pkg/audio"
)

// Stream reads the samples of one streaming sound. It is meant to be owned by
// a single consumer goroutine (typically the audio render thread) and never
// blocks.
type Stream struct {
	pipeline *Pipeline
	id       audio.SoundID
	buffers  <-chan Buffer

	buffer Buffer
	held   bool
	index  int
	// consumed is the file position reached by the last released buffer
	consumed int64
	received bool
	done     bool
	closed   bool

	format     audio.Format
	lenSamples int64
	looped     bool
}

// ID returns the sound this stream belongs to
func (s *Stream) ID() audio.SoundID { return s.id }

// Format returns the file's format
func (s *Stream) Format() audio.Format { return s.format }

// SampleRate returns the file's sample rate
func (s *Stream) SampleRate() int { return s.format.SampleRate }

// Channels returns the number of interleaved channels
func (s *Stream) Channels() int { return s.format.Channels }

// Looped reports whether the stream repeats forever
func (s *Stream) Looped() bool { return s.looped }

// NextSample returns the next sample. It returns false when no buffer is ready
// yet (an underrun) or when the stream has ended; Done tells the two apart.
func (s *Stream) NextSample() (float32, bool) {
	for {
		if s.held {
			samples := s.buffer.Samples()
			if s.index < len(samples) {
				v := samples[s.index]
				s.index++
				return v, true
			}
			s.release()
		}
		if !s.receive() {
			return 0, false
		}
	}
}

// Done reports whether the stream has ended: the worker closed the channel
// and every buffer has been consumed.
func (s *Stream) Done() bool {
	return s.done && !s.held
}

// RemainingFrames returns the number of frames left to play. The second
// result is false for looped streams, which never end.
func (s *Stream) RemainingFrames() (int64, bool) {
	if s.looped {
		return 0, false
	}
	channels := int64(s.format.Channels)
	if !s.held {
		s.receive()
	}

	var position int64
	switch {
	case s.held:
		position = s.buffer.Range().Start + int64(s.index)
	case s.done:
		return 0, true
	case s.received:
		position = s.consumed
	default:
		return s.lenSamples / channels, true
	}

	remaining := s.lenSamples - position
	if remaining < 0 {
		remaining = 0
	}
	return remaining / channels, true
}

// Close stops the sound on the pipeline and returns every buffer the stream
// still holds or has queued. Safe to call more than once.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.pipeline != nil {
		s.pipeline.Stop(s.id)
	}
	if s.held {
		s.release()
	}
	for {
		select {
		case b, ok := <-s.buffers:
			if !ok {
				s.done = true
				return
			}
			b.Release()
		default:
			return
		}
	}
}

func (s *Stream) receive() bool {
	if s.done || s.closed {
		return false
	}
	select {
	case b, ok := <-s.buffers:
		if !ok {
			s.done = true
			return false
		}
		s.buffer = b
		s.held = true
		s.received = true
		s.index = 0
		return true
	default:
		return false
	}
}

func (s *Stream) release() {
	s.consumed = s.buffer.Range().End
	s.buffer.Release()
	s.buffer = Buffer{}
	s.held = false
	s.index = 0
}
