// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 to 16-bit stereo via go-mp3 and converts to float32
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	mp3Channels   = 2
	mp3FrameBytes = 4
)

// MP3Reader reads samples from an MP3 file
type MP3Reader struct {
	src     io.ReadSeeker
	decoder *mp3.Decoder
	format  audio.Format
	frames  int64
	pos     int64
	buf     []byte
}

// NewMP3 creates a reader for the MP3 stream in rs
func NewMP3(rs io.ReadSeeker) (*MP3Reader, error) {
	decoder, err := mp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	length := decoder.Length()
	if length <= 0 {
		return nil, fmt.Errorf("MP3 stream length unknown")
	}

	return &MP3Reader{
		src:     rs,
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   mp3Channels,
			BitDepth:   16,
			Encoding:   audio.EncodingInt16,
		},
		frames: length / mp3FrameBytes,
	}, nil
}

func (r *MP3Reader) Format() audio.Format { return r.format }
func (r *MP3Reader) Frames() int64        { return r.frames }
func (r *MP3Reader) Position() int64      { return r.pos }
func (r *MP3Reader) Close() error         { return closeIfCloser(r.src) }

// SeekFrame moves to the given frame
func (r *MP3Reader) SeekFrame(frame int64) error {
	if frame < 0 || frame > r.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, r.frames)
	}
	if _, err := r.decoder.Seek(frame*mp3FrameBytes, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek MP3: %w", err)
	}
	r.pos = frame * mp3Channels
	return nil
}

func (r *MP3Reader) Read(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(r.buf) < need {
		r.buf = make([]byte, need)
	}
	buf := r.buf[:need]

	// go-mp3 may return short reads mid-stream
	read, err := io.ReadFull(r.decoder, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	n := read / 2
	for i := 0; i < n; i++ {
		dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	r.pos += int64(n)

	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}
