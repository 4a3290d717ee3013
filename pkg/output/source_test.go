// ABOUTME: Tests for synthesised tones and the sound opener
// ABOUTME: Verifies tone shape and that files are streamed through the pipeline
package output

import (
	"math"
	"testing"

	"github.com/audioscape/audioscape/internal/audiotest"
	"github.com/audioscape/audioscape/pkg/soundscape"
	"github.com/audioscape/audioscape/pkg/stream"
)

func TestSynthDuplicatesChannels(t *testing.T) {
	s := NewSynth(1000, 2, 8000)
	for i := 0; i < 16; i++ {
		l, _ := s.NextSample()
		r, _ := s.NextSample()
		if l != r {
			t.Fatalf("frame %d: channels differ (%v vs %v)", i, l, r)
		}
		want := synthAmplitude * math.Sin(2*math.Pi*1000*float64(i)/8000)
		if math.Abs(float64(l)-want) > 1e-5 {
			t.Errorf("frame %d: expected %v, got %v", i, want, l)
		}
	}
	if s.Done() {
		t.Error("expected synth never to finish")
	}
}

func TestSynthDefaults(t *testing.T) {
	s := NewSynth(0, 0, 48000)
	if s.Channels() != 1 {
		t.Errorf("expected mono, got %d", s.Channels())
	}
	if s.frequency != DefaultFrequency {
		t.Errorf("expected %v Hz, got %v", DefaultFrequency, s.frequency)
	}
}

func TestOpenerStreamsFiles(t *testing.T) {
	p := stream.Spawn(stream.Config{})
	defer p.Exit()
	open := NewOpener(p, 48000)

	path := audiotest.RampWAV16(t, 2, 100)
	src, err := open(soundscape.Spec{ID: 1, Kind: soundscape.Kind{Path: path}})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer src.Close()
	if _, ok := src.(*stream.Stream); !ok {
		t.Errorf("expected a stream, got %T", src)
	}
	if src.Channels() != 2 {
		t.Errorf("expected 2 channels, got %d", src.Channels())
	}

	if _, err := open(soundscape.Spec{ID: 2, Kind: soundscape.Kind{Path: "/missing.wav"}}); err == nil {
		t.Error("expected error for a missing file")
	}

	tone, err := open(soundscape.Spec{ID: 3, Kind: soundscape.Kind{Frequency: 220, Channels: 2}})
	if err != nil {
		t.Fatalf("open tone failed: %v", err)
	}
	if _, ok := tone.(*Synth); !ok {
		t.Errorf("expected a synth, got %T", tone)
	}
}
