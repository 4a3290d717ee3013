// ABOUTME: Soundscape actor and its ticker
// ABOUTME: Serialises updates, ticks and play state through one mailbox
package soundscape

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/mailbox"
)

const (
	// DefaultTickInterval is the scheduling period
	DefaultTickInterval = 16 * time.Millisecond

	snapshotBuffer = 8
)

// ErrClosed is returned when the scheduler has exited
var ErrClosed = errors.New("soundscape closed")

// Config holds scheduler configuration
type Config struct {
	// Seed makes spawn decisions reproducible
	Seed         uint64
	TickInterval time.Duration
	// DisableTicker leaves ticking to the caller (tests)
	DisableTicker bool
	StartPaused   bool
	// IDs allocates sound ids; a private generator is used when nil
	IDs   *audio.IDGenerator
	Debug bool
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.IDs == nil {
		c.IDs = audio.NewIDGenerator()
	}
	return c
}

// Soundscape is a handle to the scheduler. Safe for concurrent use.
type Soundscape struct {
	config    Config
	inbox     *mailbox.Mailbox[message]
	playing   atomic.Bool
	snapshots chan Snapshot
	done      chan struct{}
	exitOnce  sync.Once
}

type message interface {
	soundscapeMessage()
}

type updateMsg struct {
	update Update
	reply  chan bool
}

type tickMsg struct {
	tick Tick
}

type playMsg struct{}

type pauseMsg struct{}

type finishedMsg struct {
	id audio.SoundID
}

type exitMsg struct{}

func (updateMsg) soundscapeMessage()   {}
func (tickMsg) soundscapeMessage()     {}
func (playMsg) soundscapeMessage()     {}
func (pauseMsg) soundscapeMessage()    {}
func (finishedMsg) soundscapeMessage() {}
func (exitMsg) soundscapeMessage()     {}

// Spawn starts the scheduler and, unless disabled, its ticker
func Spawn(config Config, output Output) *Soundscape {
	config = config.withDefaults()
	s := &Soundscape{
		config:    config,
		inbox:     mailbox.New[message](),
		snapshots: make(chan Snapshot, snapshotBuffer),
		done:      make(chan struct{}),
	}
	s.playing.Store(!config.StartPaused)

	go s.run(newModel(config, output))
	if !config.DisableTicker {
		go s.tick()
	}
	return s
}

// Send queues an update without waiting for it
func (s *Soundscape) Send(u Update) error {
	if !s.inbox.Send(updateMsg{update: u}) {
		return ErrClosed
	}
	return nil
}

// Apply queues an update and waits for its result
func (s *Soundscape) Apply(u Update) (bool, error) {
	reply := make(chan bool, 1)
	if !s.inbox.Send(updateMsg{update: u, reply: reply}) {
		return false, ErrClosed
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-s.done:
		select {
		case ok := <-reply:
			return ok, nil
		default:
			return false, ErrClosed
		}
	}
}

// InsertSpeaker adds a speaker. Returns true if it replaced one.
func (s *Soundscape) InsertSpeaker(id SpeakerID, sp Speaker) (bool, error) {
	return s.Apply(InsertSpeaker{ID: id, Speaker: sp})
}

// UpdateSpeaker replaces a speaker. Returns false if it does not exist.
func (s *Soundscape) UpdateSpeaker(id SpeakerID, sp Speaker) (bool, error) {
	return s.Apply(UpdateSpeaker{ID: id, Speaker: sp})
}

// RemoveSpeaker removes a speaker. Returns false if it does not exist.
func (s *Soundscape) RemoveSpeaker(id SpeakerID) (bool, error) {
	return s.Apply(RemoveSpeaker{ID: id})
}

// InsertSource adds a source. Returns true if it replaced one.
func (s *Soundscape) InsertSource(id SourceID, src Source) (bool, error) {
	return s.Apply(InsertSource{ID: id, Source: src})
}

// UpdateSource replaces a source's settings. Returns false if it does not
// exist.
func (s *Soundscape) UpdateSource(id SourceID, src Source) (bool, error) {
	return s.Apply(UpdateSource{ID: id, Source: src})
}

// RemoveSource removes a source and retires its sounds. Returns false if it
// does not exist.
func (s *Soundscape) RemoveSource(id SourceID) (bool, error) {
	return s.Apply(RemoveSource{ID: id})
}

// InsertGroup adds a group. Returns true if it replaced one.
func (s *Soundscape) InsertGroup(id GroupID, g Group) (bool, error) {
	return s.Apply(InsertGroup{ID: id, Group: g})
}

// RemoveGroup removes a group. Returns false if it does not exist.
func (s *Soundscape) RemoveGroup(id GroupID) (bool, error) {
	return s.Apply(RemoveGroup{ID: id})
}

// StopSound retires an active sound. Returns false if it is not active.
func (s *Soundscape) StopSound(id audio.SoundID) (bool, error) {
	return s.Apply(StopSound{ID: id})
}

// Query returns a snapshot of the current model
func (s *Soundscape) Query() (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if _, err := s.Apply(Query{Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	return <-reply, nil
}

// Finished tells the scheduler the output ran out of samples for a sound
func (s *Soundscape) Finished(id audio.SoundID) {
	s.inbox.Send(finishedMsg{id: id})
}

// IsPlaying reports the play state without a round trip to the worker
func (s *Soundscape) IsPlaying() bool {
	return s.playing.Load()
}

// Play resumes the soundscape. Returns false if it was already playing.
func (s *Soundscape) Play() (bool, error) {
	changed := !s.playing.Swap(true)
	if !s.inbox.Send(playMsg{}) {
		return changed, ErrClosed
	}
	return changed, nil
}

// Pause suspends the soundscape without dropping active sounds. Returns
// false if it was already paused.
func (s *Soundscape) Pause() (bool, error) {
	changed := s.playing.Swap(false)
	if !s.inbox.Send(pauseMsg{}) {
		return changed, ErrClosed
	}
	return changed, nil
}

// Snapshots delivers a snapshot after every tick. Snapshots are dropped
// when the reader falls behind.
func (s *Soundscape) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Done is closed once the worker has exited
func (s *Soundscape) Done() <-chan struct{} {
	return s.done
}

// Exit stops the worker after the messages already queued and waits for it.
// The ticker stops on its next period.
func (s *Soundscape) Exit() {
	s.exitOnce.Do(func() {
		s.inbox.Send(exitMsg{})
	})
	<-s.done
}

func (s *Soundscape) run(m *model) {
	defer close(s.done)
	defer s.inbox.Close()

	for msg := range s.inbox.Receive() {
		switch msg := msg.(type) {
		case updateMsg:
			ok := msg.update.apply(m)
			if msg.reply != nil {
				msg.reply <- ok
			}
		case tickMsg:
			m.tick(msg.tick)
			s.publish(m.snapshot())
		case playMsg:
			m.setPlaying(true)
			s.publish(m.snapshot())
		case pauseMsg:
			m.setPlaying(false)
			s.publish(m.snapshot())
		case finishedMsg:
			m.finished(msg.id)
		case exitMsg:
			if s.config.Debug {
				log.Printf("[DEBUG] Soundscape exiting with %d active sounds", len(m.active))
			}
			return
		}
	}
}

func (s *Soundscape) publish(snap Snapshot) {
	select {
	case s.snapshots <- snap:
	default:
	}
}

// tick measures time continuously but only advances playback, and only
// sends ticks, while playing.
func (s *Soundscape) tick() {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	var playback time.Duration
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			since := now.Sub(last)
			last = now
			if !s.playing.Load() {
				continue
			}
			playback += since
			if !s.inbox.Send(tickMsg{tick: Tick{Instant: now, SinceLast: since, Playback: playback}}) {
				return
			}
		}
	}
}
