// ABOUTME: Soundscape model types and the output contract
// ABOUTME: Speakers, sources, groups, sound specs and snapshots
package soundscape

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/dbap"
)

// SpeakerID identifies a speaker
type SpeakerID uuid.UUID

// SourceID identifies a source
type SourceID uuid.UUID

// GroupID identifies a group of sources
type GroupID uuid.UUID

// NewSpeakerID returns a random speaker id
func NewSpeakerID() SpeakerID { return SpeakerID(uuid.New()) }

// NewSourceID returns a random source id
func NewSourceID() SourceID { return SourceID(uuid.New()) }

// NewGroupID returns a random group id
func NewGroupID() GroupID { return GroupID(uuid.New()) }

func (id SpeakerID) String() string { return uuid.UUID(id).String() }
func (id SourceID) String() string  { return uuid.UUID(id).String() }
func (id GroupID) String() string   { return uuid.UUID(id).String() }

// Speaker is a physical speaker in the room
type Speaker struct {
	Point dbap.Point
	Zones dbap.Zones
}

// Interval is a closed range of durations
type Interval struct {
	Min time.Duration
	Max time.Duration
}

// draw returns a duration uniformly distributed in the interval
func (i Interval) draw(rng *rand.Rand) time.Duration {
	if i.Max <= i.Min {
		return i.Min
	}
	return i.Min + time.Duration(rng.Int64N(int64(i.Max-i.Min)+1))
}

// Kind describes what a source plays
type Kind struct {
	// Path of an audio file streamed from disk
	Path   string
	Looped bool
	// Frequency of a sine tone synthesised when Path is empty
	Frequency float64
	// Channels of the synthesised tone
	Channels int
}

// Source is a reusable sound definition
type Source struct {
	Name string
	Kind Kind
	// Zones the source plays in; empty means every zone
	Zones dbap.Zones
	// Spread is the radius in metres over which channels fan out
	Spread float64
	// Radians rotates the channel fan-out
	Radians float64
	Volume  float64

	// Occurrence bounds the time between two spawns
	Occurrence Interval
	// MaxSimultaneous caps live sounds of this source (0 = unlimited)
	MaxSimultaneous int
	// Duration bounds how long each sound plays. Zero plays until the
	// output reports the sound finished.
	Duration Interval
	Attack   time.Duration
	Release  time.Duration
	Movement Movement
}

// Group applies a shared spawn policy across its member sources
type Group struct {
	Name            string
	Members         []SourceID
	Occurrence      Interval
	MaxSimultaneous int
}

// Spec is a request for the output to start a new sound
type Spec struct {
	ID         audio.SoundID
	Source     SourceID
	Kind       Kind
	StartFrame int64
	Position   dbap.Position
	Volume     float64
	Zones      dbap.Zones
	Spread     float64
	Radians    float64
}

// Output realises sounds. Calls are made from the scheduler goroutine and
// must not block.
type Output interface {
	Spawn(spec Spec) error
	Update(id audio.SoundID, position dbap.Position, volume float64)
	Stop(id audio.SoundID)
	Play(id audio.SoundID)
	Pause(id audio.SoundID)
}

// Tick is one scheduling step
type Tick struct {
	Instant   time.Time
	SinceLast time.Duration
	// Playback is the total time the soundscape has played, excluding pauses
	Playback time.Duration
}

// SoundState is the monitored state of one active sound
type SoundState struct {
	ID       audio.SoundID `json:"id"`
	Source   SourceID      `json:"-"`
	Name     string        `json:"source"`
	Position dbap.Position `json:"position"`
	Volume   float64       `json:"volume"`
	Age      time.Duration `json:"age"`
}

// Snapshot is a view of the scheduler published after each tick
type Snapshot struct {
	Playing  bool          `json:"playing"`
	Playback time.Duration `json:"playback"`
	Speakers int           `json:"speakers"`
	Sources  int           `json:"sources"`
	Groups   int           `json:"groups"`
	Sounds   []SoundState  `json:"sounds"`
}
