// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames via mewkiz/flac into interleaved float32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACReader reads samples from a FLAC file
type FLACReader struct {
	src     io.ReadSeeker
	stream  *flac.Stream
	format  audio.Format
	frames  int64
	pos     int64
	scale   float32
	block   []float32
	pending []float32
	skip    int
}

// NewFLAC creates a reader for the FLAC stream in rs
func NewFLAC(rs io.ReadSeeker) (*FLACReader, error) {
	stream, err := flac.NewSeek(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	bitDepth := int(info.BitsPerSample)

	return &FLACReader{
		src:    rs,
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   bitDepth,
			Encoding:   audio.EncodingInt32,
		},
		frames: int64(info.NSamples),
		scale:  float32(int64(1) << (bitDepth - 1)),
	}, nil
}

func (r *FLACReader) Format() audio.Format { return r.format }
func (r *FLACReader) Frames() int64        { return r.frames }
func (r *FLACReader) Position() int64      { return r.pos }
func (r *FLACReader) Close() error         { return closeIfCloser(r.src) }

// SeekFrame moves to the given frame. mewkiz/flac seeks to the start of the block
// containing the frame; the remainder of that block is skipped on the next read.
func (r *FLACReader) SeekFrame(frame int64) error {
	if frame < 0 || frame > r.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, r.frames)
	}
	r.pending = nil
	r.skip = 0
	if frame == r.frames {
		r.pos = frame * int64(r.format.Channels)
		r.skip = -1
		return nil
	}

	actual, err := r.stream.Seek(uint64(frame))
	if err != nil {
		return fmt.Errorf("failed to seek FLAC: %w", err)
	}
	r.skip = int(uint64(frame)-actual) * r.format.Channels
	r.pos = frame * int64(r.format.Channels)
	return nil
}

func (r *FLACReader) Read(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if len(r.pending) == 0 {
			if r.skip < 0 {
				break
			}
			if err := r.parseNext(); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				r.pos += int64(n)
				return n, fmt.Errorf("flac decode error: %w", err)
			}
			continue
		}
		m := copy(dst[n:], r.pending)
		r.pending = r.pending[m:]
		n += m
	}
	r.pos += int64(n)

	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// parseNext decodes the next FLAC block into pending, honouring skip.
func (r *FLACReader) parseNext() error {
	frame, err := r.stream.ParseNext()
	if err != nil {
		return err
	}

	channels := r.format.Channels
	blockSize := int(frame.BlockSize)
	if cap(r.block) < blockSize*channels {
		r.block = make([]float32, blockSize*channels)
	}
	r.block = r.block[:blockSize*channels]
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			r.block[i*channels+ch] = float32(frame.Subframes[ch].Samples[i]) / r.scale
		}
	}
	r.pending = r.block

	if r.skip > 0 {
		s := r.skip
		if s > len(r.pending) {
			s = len(r.pending)
		}
		r.pending = r.pending[s:]
		r.skip -= s
	}
	return nil
}
