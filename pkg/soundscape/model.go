// ABOUTME: Scheduler model owned by the soundscape goroutine
// ABOUTME: Spawn policy, movement, envelopes and retirement run once per tick
package soundscape

import (
	"bytes"
	"log"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/dbap"
)

// loopedStartRange bounds the random start frame of looped file sounds. The
// streaming pipeline wraps it modulo the file length.
const loopedStartRange = 1 << 32

type sourceState struct {
	Source
	nextSpawn time.Duration
}

type groupState struct {
	Group
	nextSpawn time.Duration
}

// activeSound is a sound the scheduler has spawned and not yet retired
type activeSound struct {
	id       audio.SoundID
	source   SourceID
	name     string
	spawned  time.Duration
	duration time.Duration
	attack   time.Duration
	release  time.Duration
	volume   float64
	mover    Mover
	position dbap.Position
	amp      float64
}

type model struct {
	config   Config
	output   Output
	rng      *rand.Rand
	ids      *audio.IDGenerator
	speakers map[SpeakerID]Speaker
	sources  map[SourceID]*sourceState
	groups   map[GroupID]*groupState
	active   map[audio.SoundID]*activeSound
	playback time.Duration
	playing  bool
}

func newModel(config Config, output Output) *model {
	return &model{
		config:   config,
		output:   output,
		rng:      rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		ids:      config.IDs,
		speakers: make(map[SpeakerID]Speaker),
		sources:  make(map[SourceID]*sourceState),
		groups:   make(map[GroupID]*groupState),
		active:   make(map[audio.SoundID]*activeSound),
		playing:  !config.StartPaused,
	}
}

// tick advances the soundscape by one step
func (m *model) tick(t Tick) {
	m.playback = t.Playback
	m.spawnDue()
	m.move(t.SinceLast)
	m.shape()
	m.retireElapsed()
}

// spawnDue spawns at most one sound per due source
func (m *model) spawnDue() {
	for _, id := range m.sourceIDs() {
		st := m.sources[id]
		if m.playback < st.nextSpawn {
			continue
		}
		if st.MaxSimultaneous > 0 && m.countActive(id) >= st.MaxSimultaneous {
			continue
		}
		groups := m.groupsOf(id)
		if !m.groupsAllow(groups) {
			continue
		}

		m.spawn(id, st)

		st.nextSpawn = m.playback + st.Occurrence.draw(m.rng)
		for _, g := range groups {
			g.nextSpawn = m.playback + g.Occurrence.draw(m.rng)
		}
	}
}

func (m *model) groupsAllow(groups []*groupState) bool {
	for _, g := range groups {
		if m.playback < g.nextSpawn {
			return false
		}
		if g.MaxSimultaneous > 0 && m.countGroupActive(g) >= g.MaxSimultaneous {
			return false
		}
	}
	return true
}

func (m *model) spawn(id SourceID, st *sourceState) {
	bounds := m.zoneBounds(st.Zones)
	start := randomPoint(bounds, m.rng)
	mover := newMover(st.Movement, start, bounds, m.rng)
	position := dbap.Position{Point: start}

	var startFrame int64
	if st.Kind.Path != "" && st.Kind.Looped {
		startFrame = m.rng.Int64N(loopedStartRange)
	}

	sound := &activeSound{
		id:       m.ids.Next(),
		source:   id,
		name:     st.Name,
		spawned:  m.playback,
		duration: st.Duration.draw(m.rng),
		attack:   st.Attack,
		release:  st.Release,
		volume:   st.Volume,
		mover:    mover,
		position: position,
	}
	sound.amp = envelope(0, sound.duration, sound.attack, sound.release)

	spec := Spec{
		ID:         sound.id,
		Source:     id,
		Kind:       st.Kind,
		StartFrame: startFrame,
		Position:   position,
		Volume:     sound.volume * sound.amp,
		Zones:      st.Zones.Clone(),
		Spread:     st.Spread,
		Radians:    st.Radians,
	}
	if err := m.output.Spawn(spec); err != nil {
		log.Printf("Failed to spawn sound from source %q: %v", st.Name, err)
		return
	}
	if !m.playing {
		m.output.Pause(sound.id)
	}
	m.active[sound.id] = sound

	if m.config.Debug {
		log.Printf("[DEBUG] Spawned sound %d from %q at (%.2f, %.2f) for %v",
			sound.id, st.Name, start.X, start.Y, sound.duration)
	}
}

func (m *model) move(dt time.Duration) {
	for _, s := range m.active {
		s.position = s.mover.Step(dt)
	}
}

// shape applies envelopes and pushes the new state to the output
func (m *model) shape() {
	for _, s := range m.active {
		s.amp = envelope(m.playback-s.spawned, s.duration, s.attack, s.release)
		m.output.Update(s.id, s.position, s.volume*s.amp)
	}
}

func (m *model) retireElapsed() {
	for id, s := range m.active {
		if s.duration > 0 && m.playback-s.spawned >= s.duration {
			m.retire(id, true)
		}
	}
}

// retire removes an active sound, telling the output to stop it when it
// has not already finished on its own.
func (m *model) retire(id audio.SoundID, stop bool) {
	if stop {
		m.output.Stop(id)
	}
	delete(m.active, id)
	if m.config.Debug {
		log.Printf("[DEBUG] Retired sound %d", id)
	}
}

// finished handles an output report that a sound ran out of samples
func (m *model) finished(id audio.SoundID) {
	if _, ok := m.active[id]; ok {
		m.retire(id, false)
	}
}

func (m *model) setPlaying(playing bool) {
	m.playing = playing
	for id := range m.active {
		if playing {
			m.output.Play(id)
		} else {
			m.output.Pause(id)
		}
	}
}

// zoneBounds returns the area covered by the speakers serving zones, or the
// origin when none do.
func (m *model) zoneBounds(zones dbap.Zones) dbap.Bounds {
	points := make([]dbap.Point, 0, len(m.speakers))
	for _, sp := range m.speakers {
		if dbap.Weight(zones, sp.Zones) > 0 {
			points = append(points, sp.Point)
		}
	}
	b, ok := dbap.BoundsOf(points)
	if !ok {
		return dbap.Bounds{}
	}
	return b
}

func (m *model) countActive(id SourceID) int {
	n := 0
	for _, s := range m.active {
		if s.source == id {
			n++
		}
	}
	return n
}

func (m *model) countGroupActive(g *groupState) int {
	n := 0
	for _, s := range m.active {
		if slices.Contains(g.Members, s.source) {
			n++
		}
	}
	return n
}

// groupsOf returns the groups containing id, ordered by group id
func (m *model) groupsOf(id SourceID) []*groupState {
	gids := make([]GroupID, 0, len(m.groups))
	for gid, g := range m.groups {
		if slices.Contains(g.Members, id) {
			gids = append(gids, gid)
		}
	}
	slices.SortFunc(gids, func(a, b GroupID) int {
		return bytes.Compare(a[:], b[:])
	})

	groups := make([]*groupState, 0, len(gids))
	for _, gid := range gids {
		groups = append(groups, m.groups[gid])
	}
	return groups
}

// sourceIDs returns source ids in a stable order so seeded runs repeat
func (m *model) sourceIDs() []SourceID {
	ids := make([]SourceID, 0, len(m.sources))
	for id := range m.sources {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b SourceID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

func (m *model) snapshot() Snapshot {
	sounds := make([]SoundState, 0, len(m.active))
	for _, s := range m.active {
		sounds = append(sounds, SoundState{
			ID:       s.id,
			Source:   s.source,
			Name:     s.name,
			Position: s.position,
			Volume:   s.volume * s.amp,
			Age:      m.playback - s.spawned,
		})
	}
	slices.SortFunc(sounds, func(a, b SoundState) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return Snapshot{
		Playing:  m.playing,
		Playback: m.playback,
		Speakers: len(m.speakers),
		Sources:  len(m.sources),
		Groups:   len(m.groups),
		Sounds:   sounds,
	}
}
