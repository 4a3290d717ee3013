// ABOUTME: Reader interface definition and format registry
// ABOUTME: Opens audio files by extension into seekable sample readers
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/audioscape/audioscape/pkg/audio"
)

var (
	// ErrUnsupportedFormat is returned for files whose container is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrSeekOutOfRange is returned when seeking past the last frame.
	ErrSeekOutOfRange = errors.New("seek position out of range")
)

// Reader reads interleaved float32 samples from a seekable audio file.
type Reader interface {
	// Format returns the stream format taken from the file header
	Format() audio.Format

	// Frames returns the total number of frames in the file
	Frames() int64

	// Position returns the raw sample index of the next sample to be read
	Position() int64

	// SeekFrame moves the cursor to the given frame (0 <= frame <= Frames())
	SeekFrame(frame int64) error

	// Read fills dst with samples. It returns fewer than len(dst) samples
	// together with io.EOF once the end of the file is reached.
	Read(dst []float32) (int, error)

	// Close releases the underlying file
	Close() error
}

// Len returns the total number of samples (frames × channels) in r.
func Len(r Reader) int64 {
	return r.Frames() * int64(r.Format().Channels)
}

type opener func(f *os.File) (Reader, error)

var openers = map[string]opener{
	".wav":  func(f *os.File) (Reader, error) { return NewWAV(f) },
	".wave": func(f *os.File) (Reader, error) { return NewWAV(f) },
	".mp3":  func(f *os.File) (Reader, error) { return NewMP3(f) },
	".ogg":  func(f *os.File) (Reader, error) { return NewVorbis(f) },
	".oga":  func(f *os.File) (Reader, error) { return NewVorbis(f) },
	".flac": func(f *os.File) (Reader, error) { return NewFLAC(f) },
	".aif":  func(f *os.File) (Reader, error) { return NewAIFF(f) },
	".aiff": func(f *os.File) (Reader, error) { return NewAIFF(f) },
}

// Supported reports whether Open recognises the file's extension.
func Supported(path string) bool {
	_, ok := openers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open opens the file at path and returns a reader for its format.
// The returned reader owns the file and closes it on Close.
func Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := openers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	r, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// closeIfCloser closes rs when it is also an io.Closer.
func closeIfCloser(rs io.Reader) error {
	if c, ok := rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
