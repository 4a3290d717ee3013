// ABOUTME: Sample sources the mixer pulls from
// ABOUTME: File streams, synthesised tones and the opener that picks between them
package output

import (
	"fmt"
	"math"

	"github.com/audioscape/audioscape/pkg/soundscape"
	"github.com/audioscape/audioscape/pkg/stream"
)

// SampleSource yields interleaved samples without blocking. NextSample
// returns false on an underrun or at the end; Done tells them apart.
type SampleSource interface {
	NextSample() (float32, bool)
	Channels() int
	Done() bool
	Close()
}

// rated is implemented by sources that know their sample rate
type rated interface {
	SampleRate() int
}

// Opener creates the sample source for a new sound
type Opener func(spec soundscape.Spec) (SampleSource, error)

// NewOpener streams files through the pipeline and synthesises tones for
// sources without a file.
func NewOpener(p *stream.Pipeline, sampleRate int) Opener {
	return func(spec soundscape.Spec) (SampleSource, error) {
		if spec.Kind.Path == "" {
			return NewSynth(spec.Kind.Frequency, spec.Kind.Channels, sampleRate), nil
		}
		s, err := p.Start(spec.ID, spec.Kind.Path, spec.StartFrame, spec.Kind.Looped)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", spec.Kind.Path, err)
		}
		return s, nil
	}
}

const (
	// DefaultFrequency is the tone used when a synth has none configured
	DefaultFrequency = 440.0

	synthAmplitude = 0.5
)

// Synth generates a sine tone, duplicated across its channels
type Synth struct {
	frequency  float64
	sampleRate int
	channels   int
	phase      float64
	step       float64
	value      float32
	ch         int
}

// NewSynth creates a sine generator
func NewSynth(frequency float64, channels, sampleRate int) *Synth {
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	if channels <= 0 {
		channels = 1
	}
	return &Synth{
		frequency:  frequency,
		sampleRate: sampleRate,
		channels:   channels,
		step:       2 * math.Pi * frequency / float64(sampleRate),
	}
}

func (s *Synth) NextSample() (float32, bool) {
	if s.ch == 0 {
		s.value = float32(math.Sin(s.phase) * synthAmplitude)
		s.phase = math.Mod(s.phase+s.step, 2*math.Pi)
	}
	s.ch = (s.ch + 1) % s.channels
	return s.value, true
}

func (s *Synth) Channels() int   { return s.channels }
func (s *Synth) SampleRate() int { return s.sampleRate }
func (s *Synth) Done() bool      { return false }
func (s *Synth) Close()          {}
