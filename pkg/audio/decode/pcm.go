// ABOUTME: Raw PCM sample reader
// ABOUTME: Decodes 8/16/24/32-bit integer and 32-bit float PCM of either byte order to float32
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/audioscape/audioscape/pkg/audio"
)

// PCMReader reads interleaved PCM stored contiguously in a file.
type PCMReader struct {
	rs        io.ReadSeeker
	format    audio.Format
	dataStart int64
	frames    int64
	pos       int64
	unsigned8 bool
	order     binary.ByteOrder
	warned    bool
	scratch   []byte
}

func newPCMReader(rs io.ReadSeeker, format audio.Format, dataStart, dataBytes int64, unsigned8 bool) (*PCMReader, error) {
	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
	}
	r := &PCMReader{
		rs:        rs,
		format:    format,
		dataStart: dataStart,
		unsigned8: unsigned8,
		order:     binary.LittleEndian,
	}
	r.frames = dataBytes / int64(r.blockAlign())
	return r, nil
}

func (r *PCMReader) bytesPerSample() int {
	return (r.format.BitDepth + 7) / 8
}

func (r *PCMReader) blockAlign() int {
	return r.bytesPerSample() * r.format.Channels
}

func (r *PCMReader) Format() audio.Format { return r.format }
func (r *PCMReader) Frames() int64        { return r.frames }
func (r *PCMReader) Position() int64      { return r.pos }
func (r *PCMReader) Close() error         { return closeIfCloser(r.rs) }

// SeekFrame moves to the given frame
func (r *PCMReader) SeekFrame(frame int64) error {
	if frame < 0 || frame > r.frames {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, r.frames)
	}
	offset := r.dataStart + frame*int64(r.blockAlign())
	if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to frame %d: %w", frame, err)
	}
	r.pos = frame * int64(r.format.Channels)
	return nil
}

// Read decodes up to len(dst) samples. Samples in an unsupported encoding are
// consumed from the file and replaced with silence.
func (r *PCMReader) Read(dst []float32) (int, error) {
	total := r.frames * int64(r.format.Channels)
	want := int64(len(dst))
	if remaining := total - r.pos; remaining < want {
		want = remaining
	}
	if want <= 0 {
		return 0, io.EOF
	}

	bps := r.bytesPerSample()
	need := int(want) * bps
	if cap(r.scratch) < need {
		r.scratch = make([]byte, need)
	}
	buf := r.scratch[:need]

	read, err := io.ReadFull(r.rs, buf)
	n := read / bps
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read PCM data: %w", err)
	}

	r.convert(dst[:n], buf[:n*bps])
	r.pos += int64(n)

	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

func (r *PCMReader) convert(dst []float32, src []byte) {
	switch r.format.Encoding {
	case audio.EncodingInt8:
		for i := range dst {
			if r.unsigned8 {
				dst[i] = audio.SampleFromUint8(src[i])
			} else {
				dst[i] = audio.SampleFromInt8(int8(src[i]))
			}
		}
	case audio.EncodingInt16:
		for i := range dst {
			dst[i] = audio.SampleFromInt16(int16(r.order.Uint16(src[i*2:])))
		}
	case audio.EncodingInt24:
		bigEndian := r.order == binary.BigEndian
		for i := range dst {
			b := src[i*3 : i*3+3]
			packed := [3]byte{b[0], b[1], b[2]}
			if bigEndian {
				packed = [3]byte{b[2], b[1], b[0]}
			}
			dst[i] = audio.SampleFromInt24(audio.SampleFrom24Bit(packed))
		}
	case audio.EncodingInt32:
		for i := range dst {
			dst[i] = audio.SampleFromInt32(int32(r.order.Uint32(src[i*4:])))
		}
	case audio.EncodingFloat32:
		for i := range dst {
			dst[i] = audio.SampleFromFloat32Bits(r.order.Uint32(src[i*4:]))
		}
	default:
		if !r.warned {
			log.Printf("Unsupported sample encoding %s (%d-bit) - substituting silence", r.format.Encoding, r.format.BitDepth)
			r.warned = true
		}
		for i := range dst {
			dst[i] = 0
		}
	}
}
