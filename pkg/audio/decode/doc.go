// ABOUTME: Seekable audio file readers for multiple container formats
// ABOUTME: Provides the Reader interface and implementations for WAV, AIFF, MP3, Ogg Vorbis, FLAC
// Package decode opens encoded audio files as seekable sample readers.
//
// Supports: WAV (8/16/32-bit integer PCM and 32-bit float), AIFF (8/16/32-bit), MP3,
// Ogg Vorbis, FLAC
//
// Every reader exposes its total length, channel count and encoding, can seek to
// any frame and reads interleaved float32 samples normalised to [-1, 1).
//
// Example:
//
//	r, err := decode.Open("rain.wav")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	err = r.SeekFrame(r.Frames() / 2)
//	n, err := r.Read(buf)
package decode
