// ABOUTME: Tests for the AIFF reader
// ABOUTME: Builds big-endian fixtures and checks parsing, chunk walking and seeking
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/audioscape/audioscape/pkg/audio"
)

// rate44100 is 44100 as an 80-bit IEEE 754 extended float
var rate44100 = []byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}

// aiffFixture builds a 16-bit AIFF file. An odd-sized annotation chunk sits
// between the common and sound chunks to exercise padding.
func aiffFixture(kind string, channels int, samples []int16) []byte {
	var comm bytes.Buffer
	binary.Write(&comm, binary.BigEndian, uint16(channels))
	binary.Write(&comm, binary.BigEndian, uint32(len(samples)/channels))
	binary.Write(&comm, binary.BigEndian, uint16(16))
	comm.Write(rate44100)

	var ssnd bytes.Buffer
	binary.Write(&ssnd, binary.BigEndian, uint32(0))
	binary.Write(&ssnd, binary.BigEndian, uint32(0))
	binary.Write(&ssnd, binary.BigEndian, samples)

	var body bytes.Buffer
	body.WriteString(kind)
	for _, chunk := range []struct {
		id   string
		data []byte
	}{
		{"COMM", comm.Bytes()},
		{"ANNO", []byte("odd")},
		{"SSND", ssnd.Bytes()},
	} {
		body.WriteString(chunk.id)
		binary.Write(&body, binary.BigEndian, uint32(len(chunk.data)))
		body.Write(chunk.data)
		if len(chunk.data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var file bytes.Buffer
	file.WriteString("FORM")
	binary.Write(&file, binary.BigEndian, uint32(body.Len()))
	file.Write(body.Bytes())
	return file.Bytes()
}

func TestAIFF16(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, 100, -100}
	r, err := NewAIFF(bytes.NewReader(aiffFixture("AIFF", 2, samples)))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()

	format := r.Format()
	if format.Channels != 2 || format.SampleRate != 44100 || format.Encoding != audio.EncodingInt16 {
		t.Errorf("unexpected format %+v", format)
	}
	if r.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", r.Frames())
	}

	dst := make([]float32, 8)
	n, err := r.Read(dst)
	if n != 6 || !errors.Is(err, io.EOF) {
		t.Fatalf("expected 6 samples and EOF, got %d, %v", n, err)
	}
	for i, s := range samples {
		if want := audio.SampleFromInt16(s); dst[i] != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, dst[i])
		}
	}
}

func TestAIFFSeek(t *testing.T) {
	samples := []int16{10, 20, 30, 40}
	r, err := NewAIFF(bytes.NewReader(aiffFixture("AIFF", 1, samples)))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	if err := r.SeekFrame(2); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if r.Position() != 2 {
		t.Errorf("expected position 2, got %d", r.Position())
	}
	dst := make([]float32, 1)
	if _, err := r.Read(dst); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if dst[0] != audio.SampleFromInt16(30) {
		t.Errorf("expected third sample, got %v", dst[0])
	}

	if err := r.SeekFrame(5); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("expected out of range, got %v", err)
	}
}

func TestAIFFRejects(t *testing.T) {
	if _, err := NewAIFF(bytes.NewReader(bytes.Repeat([]byte("nope"), 32))); err == nil {
		t.Error("expected garbage to be rejected")
	}
	if _, err := NewAIFF(bytes.NewReader(aiffFixture("AIFC", 1, []int16{1, 2}))); err == nil {
		t.Error("expected AIFF-C to be rejected")
	}
}

func TestOpenAIFFByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drone.aiff")
	if err := os.WriteFile(path, aiffFixture("AIFF", 1, []int16{1, 2, 3}), 0644); err != nil {
		t.Fatal(err)
	}
	if !Supported(path) {
		t.Fatal("expected .aiff to be supported")
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()
	if r.Frames() != 3 {
		t.Errorf("expected 3 frames, got %d", r.Frames())
	}
}
