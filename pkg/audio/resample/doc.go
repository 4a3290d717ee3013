// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts pull-based sample sources between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation between neighbouring frames, which handles both
// upsampling and downsampling. A Resampler wraps a pull source and is itself
// a pull source, so it can sit between a stream and the mixer:
//
//	r := resample.New(stream, 44100, 48000)
//	v, ok := r.NextSample()
package resample
