// ABOUTME: Realtime output package
// ABOUTME: Mixes active sounds into one channel per speaker using DBAP
// Package output renders the soundscape.
//
// The Mixer implements soundscape.Output. Control requests (spawn, update,
// stop, play, pause) are queued by the scheduler and picked up by Render at
// the start of each period, so the render goroutine never waits on another
// goroutine. For every sound channel Render computes DBAP gains once per
// period and mixes the channel's samples into one output channel per speaker.
//
//	mixer := output.NewMixer(output.Config{SampleRate: 48000}, output.NewOpener(pipeline, 48000))
//	mixer.SetSpeakers(speakers)
//	buf = mixer.Render(buf, frames)
//
// Device plays the mixer through the system's default stereo output.
package output
