// ABOUTME: Closed set of model mutations accepted by the scheduler
// ABOUTME: Each update reports whether its target existed
package soundscape

import "github.com/audioscape/audioscape/pkg/audio"

// Update is a mutation of the scheduler's model. The set is closed: only
// the types in this file implement it.
type Update interface {
	// apply runs on the scheduler goroutine. The result is "found" for
	// updates and removals and "replaced" for inserts.
	apply(m *model) bool
}

// InsertSpeaker adds or replaces a speaker
type InsertSpeaker struct {
	ID      SpeakerID
	Speaker Speaker
}

// UpdateSpeaker replaces an existing speaker. Unlike InsertSpeaker it never
// adds one.
type UpdateSpeaker struct {
	ID      SpeakerID
	Speaker Speaker
}

// RemoveSpeaker removes a speaker
type RemoveSpeaker struct {
	ID SpeakerID
}

// InsertSource adds or replaces a source. A new source is due on the next tick.
type InsertSource struct {
	ID     SourceID
	Source Source
}

// UpdateSource replaces the settings of an existing source. Its spawn
// schedule is kept and active sounds keep the settings they were spawned
// with.
type UpdateSource struct {
	ID     SourceID
	Source Source
}

// RemoveSource removes a source and retires all of its active sounds
type RemoveSource struct {
	ID SourceID
}

// InsertGroup adds or replaces a group
type InsertGroup struct {
	ID    GroupID
	Group Group
}

// RemoveGroup removes a group. Its member sources are kept.
type RemoveGroup struct {
	ID GroupID
}

// StopSound retires one active sound
type StopSound struct {
	ID audio.SoundID
}

// Query sends a snapshot of the model on Reply. Reply needs room for one
// snapshot; the scheduler drops it otherwise.
type Query struct {
	Reply chan<- Snapshot
}

func (u InsertSpeaker) apply(m *model) bool {
	_, replaced := m.speakers[u.ID]
	sp := u.Speaker
	sp.Zones = sp.Zones.Clone()
	m.speakers[u.ID] = sp
	return replaced
}

func (u UpdateSpeaker) apply(m *model) bool {
	if _, ok := m.speakers[u.ID]; !ok {
		return false
	}
	sp := u.Speaker
	sp.Zones = sp.Zones.Clone()
	m.speakers[u.ID] = sp
	return true
}

func (u RemoveSpeaker) apply(m *model) bool {
	_, ok := m.speakers[u.ID]
	delete(m.speakers, u.ID)
	return ok
}

func (u InsertSource) apply(m *model) bool {
	src := u.Source
	src.Zones = src.Zones.Clone()
	if st, ok := m.sources[u.ID]; ok {
		st.Source = src
		return true
	}
	m.sources[u.ID] = &sourceState{Source: src, nextSpawn: m.playback}
	return false
}

func (u UpdateSource) apply(m *model) bool {
	st, ok := m.sources[u.ID]
	if !ok {
		return false
	}
	src := u.Source
	src.Zones = src.Zones.Clone()
	st.Source = src
	return true
}

func (u RemoveSource) apply(m *model) bool {
	_, ok := m.sources[u.ID]
	if !ok {
		return false
	}
	for id, s := range m.active {
		if s.source == u.ID {
			m.retire(id, true)
		}
	}
	delete(m.sources, u.ID)
	return true
}

func (u InsertGroup) apply(m *model) bool {
	g := u.Group
	g.Members = append([]SourceID(nil), g.Members...)
	if st, ok := m.groups[u.ID]; ok {
		st.Group = g
		return true
	}
	m.groups[u.ID] = &groupState{Group: g, nextSpawn: m.playback}
	return false
}

func (u RemoveGroup) apply(m *model) bool {
	_, ok := m.groups[u.ID]
	delete(m.groups, u.ID)
	return ok
}

func (u StopSound) apply(m *model) bool {
	if _, ok := m.active[u.ID]; !ok {
		return false
	}
	m.retire(u.ID, true)
	return true
}

func (u Query) apply(m *model) bool {
	select {
	case u.Reply <- m.snapshot():
	default:
	}
	return true
}
