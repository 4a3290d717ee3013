// ABOUTME: Linear resampler over a pull-based sample source
// ABOUTME: Never blocks; an underrun in the source is an underrun in the output
package resample

// endTolerance absorbs rounding in the accumulated position when deciding
// whether an output frame lands exactly on the last input frame
const endTolerance = 1e-6

// Source yields interleaved samples without blocking
type Source interface {
	NextSample() (float32, bool)
	Channels() int
	Done() bool
	Close()
}

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	src      Source
	channels int
	ratio    float64

	// position is the fractional offset of the next output frame between prev and next
	position float64
	prev     []float32
	next     []float32
	loaded   int

	// pending collects a partially read input frame across underruns
	pending  []float32
	pendingN int

	frame    []float32
	out      int
	ended    bool
	finished bool
}

// New creates a resampler reading src at inputRate and producing outputRate
func New(src Source, inputRate, outputRate int) *Resampler {
	channels := src.Channels()
	return &Resampler{
		src:      src,
		channels: channels,
		ratio:    float64(inputRate) / float64(outputRate),
		prev:     make([]float32, channels),
		next:     make([]float32, channels),
		pending:  make([]float32, channels),
		frame:    make([]float32, channels),
	}
}

// Channels returns the channel count of the source
func (r *Resampler) Channels() int { return r.channels }

// Done reports whether the source ended and every interpolated frame was produced
func (r *Resampler) Done() bool { return r.ended && r.out == 0 }

// Close closes the source
func (r *Resampler) Close() { r.src.Close() }

// NextSample returns the next interleaved output sample
func (r *Resampler) NextSample() (float32, bool) {
	if r.out == 0 {
		if !r.advance() {
			return 0, false
		}
		frac := float32(r.position)
		for ch := range r.frame {
			r.frame[ch] = r.prev[ch] + (r.next[ch]-r.prev[ch])*frac
		}
	}

	v := r.frame[r.out]
	r.out++
	if r.out == r.channels {
		r.out = 0
		r.position += r.ratio
	}
	return v, true
}

// advance loads input frames until prev and next bracket position. Once the
// source ends, the last input frame is produced if an output frame lands on it.
func (r *Resampler) advance() bool {
	if r.finished {
		return false
	}
	for r.loaded < 2 || r.position >= 1 {
		if !r.pull() {
			if r.ended && (r.loaded == 1 || r.loaded == 2 && r.position-1 < endTolerance) {
				copy(r.prev, r.next)
				r.position = 0
				r.finished = true
				return true
			}
			return false
		}
		if r.loaded == 2 {
			r.position--
		} else {
			r.loaded++
		}
	}
	return true
}

// pull reads one whole input frame into next, shifting next into prev
func (r *Resampler) pull() bool {
	if r.ended {
		return false
	}
	for r.pendingN < r.channels {
		v, ok := r.src.NextSample()
		if !ok {
			if r.src.Done() {
				r.ended = true
			}
			return false
		}
		r.pending[r.pendingN] = v
		r.pendingN++
	}
	r.pendingN = 0
	r.prev, r.next, r.pending = r.next, r.pending, r.prev
	return true
}
