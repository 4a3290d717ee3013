// ABOUTME: Test helpers shared by decoder, pipeline and mixer tests
// ABOUTME: Writes WAV fixtures with go-audio and provides a scriptable in-memory reader
package audiotest

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/audioscape/audioscape/pkg/audio"
)

// WAV audio format codes
const (
	FormatPCM   = 1
	FormatFloat = 3
)

// WriteWAV writes an interleaved integer WAV fixture into t.TempDir() and
// returns its path. Values are stored exactly as given (8-bit WAV is unsigned).
func WriteWAV(t testing.TB, sampleRate, channels, bitDepth, format int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("fixture-%dch-%dbit.wav", channels, bitDepth))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, format)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close fixture encoder: %v", err)
	}
	return path
}

// RampWAV16 writes a 16-bit WAV whose raw sample i holds the value i, which
// makes every sample's file position recoverable from its value.
func RampWAV16(t testing.TB, channels, frames int) string {
	t.Helper()
	data := make([]int, channels*frames)
	for i := range data {
		data[i] = i
	}
	return WriteWAV(t, 44100, channels, 16, FormatPCM, data)
}

// RampIndex recovers the raw sample index from a sample read from a RampWAV16 file.
func RampIndex(sample float32) int {
	return int(math.Round(float64(sample) * 32768.0))
}

// FloatWAV writes a 32-bit float WAV.
func FloatWAV(t testing.TB, channels int, samples []float32) string {
	t.Helper()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(int32(math.Float32bits(s)))
	}
	return WriteWAV(t, 48000, channels, 32, FormatFloat, data)
}

// Reader is an in-memory sample reader with optional failure injection.
// It satisfies decode.Reader without importing it.
type Reader struct {
	format  audio.Format
	samples []float32
	pos     int64

	// FailAfter makes Read return ReadErr once this many samples have been read (0 = never)
	FailAfter int64
	ReadErr   error
	Closed    bool
}

// NewReader creates a reader over interleaved samples.
func NewReader(channels int, samples []float32) *Reader {
	return &Reader{
		format: audio.Format{
			Codec:      "memory",
			SampleRate: 48000,
			Channels:   channels,
			BitDepth:   32,
			Encoding:   audio.EncodingFloat32,
		},
		samples: samples,
	}
}

// NewRamp creates a reader whose sample i equals float32(i).
func NewRamp(channels, frames int) *Reader {
	samples := make([]float32, channels*frames)
	for i := range samples {
		samples[i] = float32(i)
	}
	return NewReader(channels, samples)
}

func (r *Reader) Format() audio.Format { return r.format }
func (r *Reader) Frames() int64        { return int64(len(r.samples) / r.format.Channels) }
func (r *Reader) Position() int64      { return r.pos }

func (r *Reader) Close() error {
	r.Closed = true
	return nil
}

func (r *Reader) SeekFrame(frame int64) error {
	if frame < 0 || frame > r.Frames() {
		return fmt.Errorf("seek out of range: %d", frame)
	}
	r.pos = frame * int64(r.format.Channels)
	return nil
}

func (r *Reader) Read(dst []float32) (int, error) {
	if r.FailAfter > 0 && r.pos >= r.FailAfter {
		return 0, r.ReadErr
	}
	n := copy(dst, r.samples[r.pos:])
	r.pos += int64(n)
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}
