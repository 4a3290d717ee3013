// ABOUTME: Realtime DBAP mixer implementing the soundscape output
// ABOUTME: Control requests are queued and applied by the render goroutine
package output

import (
	"errors"
	"log"
	"math"
	"sync"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/audio/resample"
	"github.com/audioscape/audioscape/pkg/dbap"
	"github.com/audioscape/audioscape/pkg/mailbox"
	"github.com/audioscape/audioscape/pkg/soundscape"
)

const (
	DefaultSampleRate = 48000

	// levelsPerSecond is how often speaker levels are published
	levelsPerSecond = 20
)

// ErrClosed is returned when spawning on a closed mixer
var ErrClosed = errors.New("mixer closed")

// Config holds mixer configuration
type Config struct {
	SampleRate int
	RolloffDB  float64
	Debug      bool
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.RolloffDB <= 0 {
		c.RolloffDB = dbap.DefaultRolloffDB
	}
	return c
}

// Levels reports recent RMS levels
type Levels struct {
	Speakers []float64                 `json:"speakers"`
	Sounds   map[audio.SoundID]float64 `json:"sounds"`
}

// control is a request applied on the render goroutine
type control interface {
	apply(m *Mixer)
}

type addSound struct{ s *sound }

type updateSound struct {
	id       audio.SoundID
	position dbap.Position
	volume   float64
}

type stopSound struct{ id audio.SoundID }

type setPaused struct {
	id     audio.SoundID
	paused bool
}

type setSpeakers struct{ speakers []dbap.Speaker }

type setRolloff struct{ db float64 }

// sound is the render-side state of one playing sound
type sound struct {
	id       audio.SoundID
	src      SampleSource
	channels int
	zones    dbap.Zones
	spread   float64
	radians  float64
	position dbap.Position
	volume   float64
	// prevVolume is where the volume ramp of the next period starts
	prevVolume float64
	paused     bool
	// ch is the channel of the next sample, kept across periods
	ch    int
	gains [][]float64
	power float64
}

// Mixer mixes active sounds into one output channel per speaker
type Mixer struct {
	config Config
	open   Opener

	mu      sync.Mutex
	pending []control
	closed  bool

	finished *mailbox.Mailbox[audio.SoundID]
	levels   chan Levels

	// Render goroutine state
	applying     []control
	speakers     []dbap.Speaker
	rolloff      float64
	sounds       map[audio.SoundID]*sound
	speakerPower []float64
	soundPower   map[audio.SoundID]float64
	levelFrames  int
}

// NewMixer creates a mixer that opens sounds with open
func NewMixer(config Config, open Opener) *Mixer {
	config = config.withDefaults()
	return &Mixer{
		config:     config,
		open:       open,
		finished:   mailbox.New[audio.SoundID](),
		levels:     make(chan Levels, 1),
		rolloff:    config.RolloffDB,
		sounds:     make(map[audio.SoundID]*sound),
		soundPower: make(map[audio.SoundID]float64),
	}
}

// SampleRate returns the rate Render produces
func (m *Mixer) SampleRate() int { return m.config.SampleRate }

// Finished delivers the id of every sound that ran out of samples
func (m *Mixer) Finished() <-chan audio.SoundID { return m.finished.Receive() }

// Levels delivers speaker and sound levels a few times per second. Levels
// are dropped when the reader falls behind.
func (m *Mixer) Levels() <-chan Levels { return m.levels }

// Spawn opens the sound's source and queues it for the render goroutine
func (m *Mixer) Spawn(spec soundscape.Spec) error {
	src, err := m.open(spec)
	if err != nil {
		return err
	}
	if r, ok := src.(rated); ok && r.SampleRate() > 0 && r.SampleRate() != m.config.SampleRate {
		src = resample.New(src, r.SampleRate(), m.config.SampleRate)
	}

	channels := src.Channels()
	if channels <= 0 {
		src.Close()
		return errors.New("sound has no channels")
	}
	s := &sound{
		id:         spec.ID,
		src:        src,
		channels:   channels,
		zones:      spec.Zones,
		spread:     spec.Spread,
		radians:    spec.Radians,
		position:   spec.Position,
		volume:     spec.Volume,
		prevVolume: spec.Volume,
		gains:      make([][]float64, channels),
	}
	if !m.enqueue(addSound{s: s}) {
		src.Close()
		return ErrClosed
	}
	return nil
}

// Update moves a sound and sets its volume
func (m *Mixer) Update(id audio.SoundID, position dbap.Position, volume float64) {
	m.enqueue(updateSound{id: id, position: position, volume: volume})
}

// Stop removes a sound and closes its source
func (m *Mixer) Stop(id audio.SoundID) {
	m.enqueue(stopSound{id: id})
}

// Play resumes a paused sound
func (m *Mixer) Play(id audio.SoundID) {
	m.enqueue(setPaused{id: id, paused: false})
}

// Pause silences a sound without dropping it
func (m *Mixer) Pause(id audio.SoundID) {
	m.enqueue(setPaused{id: id, paused: true})
}

// SetSpeakers replaces the speaker layout. Output channel i is speakers[i].
func (m *Mixer) SetSpeakers(speakers []dbap.Speaker) {
	m.enqueue(setSpeakers{speakers: append([]dbap.Speaker(nil), speakers...)})
}

// SetRolloff changes the DBAP rolloff in dB
func (m *Mixer) SetRolloff(db float64) {
	m.enqueue(setRolloff{db: db})
}

func (m *Mixer) enqueue(c control) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.pending = append(m.pending, c)
	return true
}

// Channels returns the number of output channels of the last period. Only
// valid on the render goroutine.
func (m *Mixer) Channels() int { return len(m.speakers) }

// Speakers returns the layout used for the last period. Only valid on the
// render goroutine.
func (m *Mixer) Speakers() []dbap.Speaker { return m.speakers }

// Render mixes frames frames into out, interleaved with one channel per
// speaker, and returns the rendered slice. out is grown when the speaker
// layout needs more room. Pending control requests are applied first unless
// another goroutine is queueing at that moment, in which case they wait a
// period.
func (m *Mixer) Render(out []float32, frames int) []float32 {
	m.drain()

	n := len(m.speakers)
	if cap(out) < frames*n {
		out = make([]float32, frames*n)
	}
	out = out[:frames*n]
	clear(out)

	for id, s := range m.sounds {
		if s.paused {
			continue
		}
		m.updateGains(s)
		if done := m.mix(s, out, frames, n); done {
			delete(m.sounds, id)
			s.src.Close()
			m.finished.Send(id)
			if m.config.Debug {
				log.Printf("[DEBUG] Sound %d finished", id)
			}
		}
	}

	m.meter(out, frames, n)
	return out
}

func (m *Mixer) drain() {
	if !m.mu.TryLock() {
		return
	}
	m.applying, m.pending = m.pending, m.applying[:0]
	m.mu.Unlock()

	for i, c := range m.applying {
		c.apply(m)
		m.applying[i] = nil
	}
}

// updateGains computes the DBAP gain of every speaker for each channel,
// zeroing speakers out of proximity.
func (m *Mixer) updateGains(s *sound) {
	for ch := range s.gains {
		point := dbap.ChannelPoint(s.position.Point, ch, s.channels, s.spread, s.position.Radians+s.radians)
		g := dbap.Gains(s.gains[ch], point, m.speakers, s.zones, m.rolloff)
		for i := range g {
			if g[i] != 0 && !dbap.InProximity(point, m.speakers[i].Point) {
				g[i] = 0
			}
		}
		s.gains[ch] = g
	}
}

// mix adds one period of s into out. Returns true once the source has ended.
func (m *Mixer) mix(s *sound, out []float32, frames, n int) bool {
	step := (s.volume - s.prevVolume) / float64(frames)
	f := 0
	for f < frames {
		v, ok := s.src.NextSample()
		if !ok {
			s.prevVolume = s.volume
			return s.src.Done()
		}
		s.power += float64(v) * float64(v)

		amp := v * float32(s.prevVolume+step*float64(f))
		if n > 0 {
			frame := out[f*n : f*n+n]
			for i, g := range s.gains[s.ch] {
				if g != 0 {
					frame[i] += amp * float32(g)
				}
			}
		}

		s.ch++
		if s.ch == s.channels {
			s.ch = 0
			f++
		}
	}
	s.prevVolume = s.volume
	return false
}

// meter accumulates power and publishes levels every few periods
func (m *Mixer) meter(out []float32, frames, n int) {
	if len(m.speakerPower) != n {
		m.speakerPower = make([]float64, n)
	}
	for f := 0; f < frames; f++ {
		for i := 0; i < n; i++ {
			v := float64(out[f*n+i])
			m.speakerPower[i] += v * v
		}
	}
	m.levelFrames += frames
	if m.levelFrames < m.config.SampleRate/levelsPerSecond {
		return
	}

	levels := Levels{
		Speakers: make([]float64, n),
		Sounds:   make(map[audio.SoundID]float64, len(m.sounds)),
	}
	for i, p := range m.speakerPower {
		levels.Speakers[i] = math.Sqrt(p / float64(m.levelFrames))
		m.speakerPower[i] = 0
	}
	for id, s := range m.sounds {
		levels.Sounds[id] = math.Sqrt(s.power / float64(m.levelFrames*s.channels))
		s.power = 0
	}
	m.levelFrames = 0

	select {
	case m.levels <- levels:
	default:
	}
}

// Close releases every sound. Call it once rendering has stopped.
func (m *Mixer) Close() {
	m.mu.Lock()
	m.closed = true
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, c := range pending {
		if a, ok := c.(addSound); ok {
			a.s.src.Close()
		}
	}
	for id, s := range m.sounds {
		s.src.Close()
		delete(m.sounds, id)
	}
	m.finished.Close()
}

func (c addSound) apply(m *Mixer) {
	if old, ok := m.sounds[c.s.id]; ok {
		old.src.Close()
	}
	m.sounds[c.s.id] = c.s
}

func (c updateSound) apply(m *Mixer) {
	if s, ok := m.sounds[c.id]; ok {
		s.position = c.position
		s.volume = c.volume
	}
}

func (c stopSound) apply(m *Mixer) {
	if s, ok := m.sounds[c.id]; ok {
		s.src.Close()
		delete(m.sounds, c.id)
	}
}

func (c setPaused) apply(m *Mixer) {
	if s, ok := m.sounds[c.id]; ok {
		s.paused = c.paused
	}
}

func (c setSpeakers) apply(m *Mixer) {
	m.speakers = c.speakers
}

func (c setRolloff) apply(m *Mixer) {
	m.rolloff = c.db
}
