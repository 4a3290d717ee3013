// ABOUTME: Ogg Vorbis file reader
// ABOUTME: Wraps jfreymuth/oggvorbis with frame-accurate seeking
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// VorbisReader reads samples from an Ogg Vorbis file
type VorbisReader struct {
	src    io.ReadSeeker
	dec    *oggvorbis.Reader
	format audio.Format
	frames int64
	pos    int64
}

// NewVorbis creates a reader for the Ogg Vorbis stream in rs
func NewVorbis(rs io.ReadSeeker) (*VorbisReader, error) {
	dec, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}

	frames := dec.Length()
	if frames <= 0 {
		return nil, fmt.Errorf("Ogg Vorbis stream length unknown")
	}

	return &VorbisReader{
		src: rs,
		dec: dec,
		format: audio.Format{
			Codec:      "vorbis",
			SampleRate: dec.SampleRate(),
			Channels:   dec.Channels(),
			BitDepth:   32,
			Encoding:   audio.EncodingFloat32,
		},
		frames: frames,
	}, nil
}

func (r *VorbisReader) Format() audio.Format { return r.format }
func (r *VorbisReader) Frames() int64        { return r.frames }
func (r *VorbisReader) Position() int64      { return r.pos }
func (r *VorbisReader) Close() error         { return closeIfCloser(r.src) }

// SeekFrame moves to the given frame
func (r *VorbisReader) SeekFrame(frame int64) error {
	if frame < 0 || frame > r.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, r.frames)
	}
	if err := r.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("failed to seek Ogg Vorbis: %w", err)
	}
	r.pos = frame * int64(r.format.Channels)
	return nil
}

// Read fills dst; its length should be a multiple of the channel count.
func (r *VorbisReader) Read(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		m, err := r.dec.Read(dst[n:])
		n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.pos += int64(n)
			return n, fmt.Errorf("vorbis decode error: %w", err)
		}
		if m == 0 {
			break
		}
	}
	r.pos += int64(n)

	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}
