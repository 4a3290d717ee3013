// ABOUTME: WAV file reader
// ABOUTME: Parses RIFF headers with go-audio/wav and streams the PCM data chunk
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// ErrNotWAV is returned when the file has no valid RIFF/WAVE header.
var ErrNotWAV = errors.New("not a WAV file")

// NewWAV creates a reader for the WAV data in rs. The reader takes ownership
// of rs and closes it on Close if it is an io.Closer.
func NewWAV(rs io.ReadSeeker) (*PCMReader, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find WAV data chunk: %w", err)
	}

	// The decoder leaves rs positioned at the first byte of PCM data.
	dataStart, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to locate WAV data: %w", err)
	}
	fileEnd, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to locate end of WAV file: %w", err)
	}
	dataBytes := int64(dec.PCMSize)
	if avail := fileEnd - dataStart; dataBytes <= 0 || dataBytes > avail {
		dataBytes = avail
	}

	format := audio.Format{
		Codec:      "wav",
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Encoding:   wavEncoding(int(dec.WavAudioFormat), int(dec.BitDepth)),
	}

	r, err := newPCMReader(rs, format, dataStart, dataBytes, true)
	if err != nil {
		return nil, err
	}
	if err := r.SeekFrame(0); err != nil {
		return nil, err
	}
	return r, nil
}

func wavEncoding(audioFormat, bitDepth int) audio.Encoding {
	switch audioFormat {
	case wavFormatFloat:
		if bitDepth == 32 {
			return audio.EncodingFloat32
		}
	case wavFormatPCM, wavFormatExtensible:
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
	}
	return audio.EncodingUnknown
}
