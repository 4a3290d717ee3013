// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, sound identities and sample conversions
package audio

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Encoding describes how a single sample is stored in a file.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingInt8
	EncodingInt16
	EncodingInt24
	EncodingInt32
	EncodingFloat32
)

func (e Encoding) String() string {
	switch e {
	case EncodingInt8:
		return "int8"
	case EncodingInt16:
		return "int16"
	case EncodingInt24:
		return "int24"
	case EncodingInt32:
		return "int32"
	case EncodingFloat32:
		return "float32"
	}
	return "unknown"
}

// Supported reports whether samples in this encoding can be decoded.
func (e Encoding) Supported() bool {
	switch e {
	case EncodingInt8, EncodingInt16, EncodingInt24, EncodingInt32, EncodingFloat32:
		return true
	}
	return false
}

// Format describes a decoded audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	Encoding   Encoding
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-bit (%s)", f.Codec, f.SampleRate, f.Channels, f.BitDepth, f.Encoding)
}

// FrameDuration returns the playback duration of the given number of frames.
func (f Format) FrameDuration(frames int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// SoundID identifies one concurrently playing sound instance.
type SoundID uint64

// IDGenerator hands out strictly increasing sound IDs. Safe for concurrent use.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator creates a generator whose first ID is 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns a fresh ID.
func (g *IDGenerator) Next() SoundID {
	return SoundID(g.next.Add(1))
}

// SampleFromInt8 converts a signed 8-bit sample to float32
func SampleFromInt8(sample int8) float32 {
	return float32(sample) / 128.0
}

// SampleFromUint8 converts an unsigned 8-bit WAV sample (offset 128) to float32
func SampleFromUint8(sample uint8) float32 {
	return SampleFromInt8(int8(int(sample) - 128))
}

// SampleFromInt16 converts int16 sample to float32
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// SampleFromInt24 converts a sign-extended 24-bit sample to float32
func SampleFromInt24(sample int32) float32 {
	return float32(sample) / 8388608.0
}

// SampleFromInt32 converts int32 sample to float32
func SampleFromInt32(sample int32) float32 {
	return float32(float64(sample) / 2147483648.0)
}

// SampleFromFloat32Bits converts IEEE-754 bits to a float32 sample
func SampleFromFloat32Bits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

// SampleToInt16 converts a float32 sample to int16 with clipping
func SampleToInt16(sample float32) int16 {
	if sample >= 1 {
		return math.MaxInt16
	}
	if sample <= -1 {
		return math.MinInt16
	}
	return int16(sample * 32767.0)
}
