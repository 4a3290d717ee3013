// ABOUTME: AIFF file reader
// ABOUTME: Validates headers with go-audio/aiff and streams the big-endian sound data chunk
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/go-audio/aiff"
)

// ErrNotAIFF is returned when the file has no valid FORM/AIFF header.
var ErrNotAIFF = errors.New("not an AIFF file")

// NewAIFF creates a reader for the AIFF data in rs. Compressed AIFF-C is not
// supported. The reader takes ownership of rs and closes it on Close if it is
// an io.Closer.
func NewAIFF(rs io.ReadSeeker) (*PCMReader, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFF
	}
	dec.ReadInfo()
	header := dec.Format()
	if header == nil {
		return nil, fmt.Errorf("%w: missing common chunk", ErrNotAIFF)
	}

	dataStart, dataBytes, err := findSoundData(rs)
	if err != nil {
		return nil, err
	}
	fileEnd, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to locate end of AIFF file: %w", err)
	}
	if avail := fileEnd - dataStart; dataBytes <= 0 || dataBytes > avail {
		dataBytes = avail
	}

	bitDepth := int(dec.BitDepth)
	format := audio.Format{
		Codec:      "aiff",
		SampleRate: header.SampleRate,
		Channels:   header.NumChannels,
		BitDepth:   bitDepth,
		Encoding:   aiffEncoding(bitDepth),
	}

	r, err := newPCMReader(rs, format, dataStart, dataBytes, false)
	if err != nil {
		return nil, err
	}
	r.order = binary.BigEndian
	if err := r.SeekFrame(0); err != nil {
		return nil, err
	}
	return r, nil
}

// findSoundData walks the FORM chunks and returns the offset and length of
// the samples inside the SSND chunk.
func findSoundData(rs io.ReadSeeker) (int64, int64, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("failed to rewind AIFF: %w", err)
	}

	var form [12]byte
	if _, err := io.ReadFull(rs, form[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNotAIFF, err)
	}
	if string(form[:4]) != "FORM" {
		return 0, 0, ErrNotAIFF
	}
	if kind := string(form[8:12]); kind != "AIFF" {
		return 0, 0, fmt.Errorf("%w: %s container", ErrUnsupportedFormat, kind)
	}

	pos := int64(len(form))
	for {
		var header [8]byte
		if _, err := io.ReadFull(rs, header[:]); err != nil {
			return 0, 0, fmt.Errorf("failed to find AIFF sound data: %w", err)
		}
		pos += int64(len(header))
		size := int64(binary.BigEndian.Uint32(header[4:]))

		if string(header[:4]) == "SSND" {
			var ssnd [8]byte
			if _, err := io.ReadFull(rs, ssnd[:]); err != nil {
				return 0, 0, fmt.Errorf("failed to read AIFF sound data header: %w", err)
			}
			offset := int64(binary.BigEndian.Uint32(ssnd[:4]))
			return pos + int64(len(ssnd)) + offset, size - int64(len(ssnd)) - offset, nil
		}

		// Chunks are padded to an even length
		pos += size + size&1
		if _, err := rs.Seek(pos, io.SeekStart); err != nil {
			return 0, 0, fmt.Errorf("failed to skip AIFF chunk: %w", err)
		}
	}
}

func aiffEncoding(bitDepth int) audio.Encoding {
	switch bitDepth {
	case 8:
		return audio.EncodingInt8
	case 16:
		return audio.EncodingInt16
	case 24:
		return audio.EncodingInt24
	case 32:
		return audio.EncodingInt32
	}
	return audio.EncodingUnknown
}
