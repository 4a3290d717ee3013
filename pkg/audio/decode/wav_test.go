// ABOUTME: Tests for the WAV reader
// ABOUTME: Tests header parsing, encodings, seeking and end-of-file behaviour
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/audioscape/audioscape/internal/audiotest"
	"github.com/audioscape/audioscape/pkg/audio"
)

func TestOpenWAV16(t *testing.T) {
	path := audiotest.RampWAV16(t, 2, 44)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()

	format := r.Format()
	if format.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", format.Channels)
	}
	if format.Encoding != audio.EncodingInt16 {
		t.Errorf("expected int16 encoding, got %s", format.Encoding)
	}
	if format.SampleRate != 44100 {
		t.Errorf("expected 44100Hz, got %d", format.SampleRate)
	}
	if r.Frames() != 44 {
		t.Errorf("expected 44 frames, got %d", r.Frames())
	}
	if Len(r) != 88 {
		t.Errorf("expected 88 samples, got %d", Len(r))
	}
}

func TestWAVReadToEOF(t *testing.T) {
	path := audiotest.RampWAV16(t, 2, 10)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()

	buf := make([]float32, 16)
	n, err := r.Read(buf)
	if err != nil || n != 16 {
		t.Fatalf("expected full read, got n=%d err=%v", n, err)
	}
	for i := 0; i < n; i++ {
		if got := audiotest.RampIndex(buf[i]); got != i {
			t.Fatalf("sample %d: expected ramp value %d, got %d", i, i, got)
		}
	}

	n, err = r.Read(buf)
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF on short read, got %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 remaining samples, got %d", n)
	}
	if r.Position() != 20 {
		t.Errorf("expected position 20, got %d", r.Position())
	}

	n, err = r.Read(buf)
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("expected (0, EOF) at end, got (%d, %v)", n, err)
	}
}

func TestWAVSeek(t *testing.T) {
	path := audiotest.RampWAV16(t, 2, 44)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()

	if err := r.SeekFrame(6); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if r.Position() != 12 {
		t.Errorf("expected position 12 after seeking to frame 6, got %d", r.Position())
	}

	buf := make([]float32, 2)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got := audiotest.RampIndex(buf[0]); got != 12 {
		t.Errorf("expected sample 12 after seek, got %d", got)
	}

	if err := r.SeekFrame(45); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("expected ErrSeekOutOfRange, got %v", err)
	}
}

func TestWAVEncodings(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		format   int
		data     []int
		encoding audio.Encoding
		expected []float32
	}{
		{
			name:     "8-bit unsigned",
			bitDepth: 8,
			format:   audiotest.FormatPCM,
			data:     []int{128, 0, 192, 64},
			encoding: audio.EncodingInt8,
			expected: []float32{0, -1, 0.5, -0.5},
		},
		{
			name:     "32-bit int",
			bitDepth: 32,
			format:   audiotest.FormatPCM,
			data:     []int{0, math.MinInt32, 1 << 30, -(1 << 30)},
			encoding: audio.EncodingInt32,
			expected: []float32{0, -1, 0.5, -0.5},
		},
		{
			name:     "32-bit float",
			bitDepth: 32,
			format:   audiotest.FormatFloat,
			data: []int{
				int(int32(math.Float32bits(0.25))),
				int(int32(math.Float32bits(-0.75))),
				0,
				int(int32(math.Float32bits(1))),
			},
			encoding: audio.EncodingFloat32,
			expected: []float32{0.25, -0.75, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := audiotest.WriteWAV(t, 8000, 1, tt.bitDepth, tt.format, tt.data)
			r, err := Open(path)
			if err != nil {
				t.Fatalf("failed to open: %v", err)
			}
			defer r.Close()

			if r.Format().Encoding != tt.encoding {
				t.Fatalf("expected encoding %s, got %s", tt.encoding, r.Format().Encoding)
			}

			buf := make([]float32, len(tt.expected))
			n, err := r.Read(buf)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if n != len(tt.expected) {
				t.Fatalf("expected %d samples, got %d", len(tt.expected), n)
			}
			for i, want := range tt.expected {
				if buf[i] != want {
					t.Errorf("sample %d: expected %v, got %v", i, want, buf[i])
				}
			}
		})
	}
}

func TestWAV24Bit(t *testing.T) {
	data := []int{1000, -1000, 8388607, -8388608}
	path := audiotest.WriteWAV(t, 8000, 1, 24, audiotest.FormatPCM, data)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()

	if r.Format().Encoding != audio.EncodingInt24 {
		t.Fatalf("expected 24-bit encoding, got %s", r.Format().Encoding)
	}

	buf := make([]float32, 8)
	n, err := r.Read(buf)
	if n != len(data) || !errors.Is(err, io.EOF) {
		t.Fatalf("expected (%d, EOF), got (%d, %v)", len(data), n, err)
	}
	for i, v := range data {
		if want := audio.SampleFromInt24(int32(v)); buf[i] != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, buf[i])
		}
	}
}

func TestPCM24BitBigEndian(t *testing.T) {
	raw := []byte{0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x03, 0xE8}
	format := audio.Format{Codec: "aiff", SampleRate: 44100, Channels: 1, BitDepth: 24, Encoding: audio.EncodingInt24}
	r, err := newPCMReader(bytes.NewReader(raw), format, 0, int64(len(raw)), false)
	if err != nil {
		t.Fatalf("failed to create reader: %v", err)
	}
	r.order = binary.BigEndian

	buf := make([]float32, 3)
	if n, _ := r.Read(buf); n != 3 {
		t.Fatalf("expected 3 samples, got %d", n)
	}
	for i, v := range []int32{8388607, -1, 1000} {
		if want := audio.SampleFromInt24(v); buf[i] != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, buf[i])
		}
	}
}

func TestUnsupportedEncodingIsSilent(t *testing.T) {
	raw := make([]byte, 3*8)
	for i := range raw {
		raw[i] = 0x55
	}
	format := audio.Format{Codec: "wav", SampleRate: 8000, Channels: 1, BitDepth: 64, Encoding: audio.EncodingUnknown}
	r, err := newPCMReader(bytes.NewReader(raw), format, 0, int64(len(raw)), false)
	if err != nil {
		t.Fatalf("failed to create reader: %v", err)
	}

	buf := []float32{9, 9, 9, 9}
	n, err := r.Read(buf)
	if n != 3 || !errors.Is(err, io.EOF) {
		t.Fatalf("expected (3, EOF), got (%d, %v)", n, err)
	}
	for i := 0; i < n; i++ {
		if buf[i] != 0 {
			t.Errorf("sample %d: expected silence, got %v", i, buf[i])
		}
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open("missing.xyz"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	if _, err := Open(t.TempDir() + "/missing.wav"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.wav":  true,
		"B.WAV":  true,
		"c.mp3":  true,
		"d.ogg":  true,
		"e.flac": true,
		"f.txt":  false,
		"noext":  false,
	}
	for path, want := range tests {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
