// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Encoding, sound identities and sample conversion functions
// Package audio provides fundamental audio types shared by the streaming pipeline,
// the soundscape scheduler and the mixer.
//
// This package defines:
//   - Format: describes a decoded stream (sample rate, channels, bit depth, encoding)
//   - SoundID / IDGenerator: identities for concurrently playing sounds
//
// It also provides conversions from the raw PCM encodings found in audio files to
// float32 samples normalised to [-1, 1):
//
//	v := audio.SampleFromInt16(-16384) // -0.5
//
// and back to 16-bit for devices that only take 16-bit PCM:
//
//	s := audio.SampleToInt16(0.5) // 16383
package audio
