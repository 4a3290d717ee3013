// ABOUTME: Soundscape scheduler package
// ABOUTME: Decides when and where sounds play and how they move and fade
// Package soundscape runs the scheduler that composes a generative soundscape.
//
// A Soundscape owns a model of the room (speakers, sources and groups) and a
// set of active sounds. It is an actor: every change arrives as a message on
// one queue and the model is only touched by the worker goroutine. A ticker
// goroutine feeds it a tick every 16 ms while playing; each tick
//
//  1. spawns sounds whose source (and group) is due,
//  2. moves every active sound,
//  3. shapes its volume with an attack/release envelope,
//  4. retires sounds whose duration has elapsed.
//
// Sounds are realised by an Output, typically the realtime mixer:
//
//	s := soundscape.Spawn(soundscape.Config{Seed: 1}, mixer)
//	defer s.Exit()
//
//	s.InsertSpeaker(soundscape.NewSpeakerID(), soundscape.Speaker{Point: dbap.Point{X: 2}})
//	s.InsertSource(soundscape.NewSourceID(), soundscape.Source{
//	    Name:       "rain",
//	    Kind:       soundscape.Kind{Path: "rain.wav", Looped: true},
//	    Occurrence: soundscape.Interval{Min: 5 * time.Second, Max: 20 * time.Second},
//	    Duration:   soundscape.Interval{Min: time.Minute, Max: 2 * time.Minute},
//	    Volume:     1,
//	})
package soundscape
