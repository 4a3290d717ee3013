// ABOUTME: File streaming pipeline worker
// ABOUTME: Single goroutine that owns all readers and refills recycled buffers
package stream

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/audio/decode"
	"github.com/audioscape/audioscape/pkg/mailbox"
)

const (
	// NumBuffers is the look-ahead window: the number of prepared buffers kept
	// queued on the worker for every streaming sound.
	NumBuffers = 16

	// DefaultFramesPerBuffer is the number of frames decoded per fill
	DefaultFramesPerBuffer = 64
)

var (
	// ErrClosed is returned when the pipeline worker has exited
	ErrClosed = errors.New("stream pipeline closed")
	// ErrEmptyFile is returned when starting a file with no frames
	ErrEmptyFile = errors.New("audio file has no frames")
)

// Config holds pipeline configuration
type Config struct {
	FramesPerBuffer int
	Debug           bool
}

func (c Config) withDefaults() Config {
	if c.FramesPerBuffer <= 0 {
		c.FramesPerBuffer = DefaultFramesPerBuffer
	}
	return c
}

// Stats describes the worker's state
type Stats struct {
	// Sounds is the number of sounds currently streaming
	Sounds int
	// Allocations counts every sample storage the worker has allocated
	Allocations int
	// Depths maps each streaming sound to its prepared FIFO depth
	Depths map[audio.SoundID]int
}

// Pipeline is a handle to the streaming worker. Safe for concurrent use.
type Pipeline struct {
	config   Config
	inbox    *mailbox.Mailbox[message]
	done     chan struct{}
	exitOnce sync.Once
}

// message is any request handled by the worker
type message interface {
	pipelineMessage()
}

type startMsg struct {
	id         audio.SoundID
	reader     decode.Reader
	buffers    chan Buffer
	startFrame int64
	looped     bool
	reply      chan error
}

type stopMsg struct {
	id audio.SoundID
}

type processedMsg struct {
	id      audio.SoundID
	samples []float32
}

type statsMsg struct {
	reply chan Stats
}

type exitMsg struct{}

func (startMsg) pipelineMessage()     {}
func (stopMsg) pipelineMessage()      {}
func (processedMsg) pipelineMessage() {}
func (statsMsg) pipelineMessage()     {}
func (exitMsg) pipelineMessage()      {}

// Spawn starts the streaming worker
func Spawn(config Config) *Pipeline {
	config = config.withDefaults()
	p := &Pipeline{
		config: config,
		inbox:  mailbox.New[message](),
		done:   make(chan struct{}),
	}

	m := &model{
		config: config,
		sounds: make(map[audio.SoundID]*sound),
		inbox:  p.inbox,
	}
	go p.run(m)
	return p
}

// Start opens the file at path and starts streaming it as sound id. The worker
// seeks to startFrame (wrapped modulo the file length) and forwards the first
// NumBuffers buffers before Start returns.
func (p *Pipeline) Start(id audio.SoundID, path string, startFrame int64, looped bool) (*Stream, error) {
	r, err := decode.Open(path)
	if err != nil {
		return nil, err
	}
	return p.StartReader(id, r, startFrame, looped)
}

// StartReader is like Start for an already opened reader. The pipeline takes
// ownership of r and closes it when the sound ends.
func (p *Pipeline) StartReader(id audio.SoundID, r decode.Reader, startFrame int64, looped bool) (*Stream, error) {
	format := r.Format()
	lenSamples := decode.Len(r)

	buffers := make(chan Buffer, 2*NumBuffers)
	reply := make(chan error, 1)
	msg := startMsg{
		id:         id,
		reader:     r,
		buffers:    buffers,
		startFrame: startFrame,
		looped:     looped,
		reply:      reply,
	}
	if !p.inbox.Send(msg) {
		r.Close()
		return nil, ErrClosed
	}

	select {
	case err := <-reply:
		if err != nil {
			return nil, err
		}
	case <-p.done:
		return nil, ErrClosed
	}

	return &Stream{
		pipeline:   p,
		id:         id,
		buffers:    buffers,
		format:     format,
		lenSamples: lenSamples,
		looped:     looped,
	}, nil
}

// Stop removes all state for the sound. Buffers already handed out stay valid;
// their later returns are discarded.
func (p *Pipeline) Stop(id audio.SoundID) {
	p.inbox.Send(stopMsg{id: id})
}

// Stats queries the worker
func (p *Pipeline) Stats() (Stats, error) {
	reply := make(chan Stats, 1)
	if !p.inbox.Send(statsMsg{reply: reply}) {
		return Stats{}, ErrClosed
	}
	select {
	case s := <-reply:
		return s, nil
	case <-p.done:
		return Stats{}, ErrClosed
	}
}

// Exit stops the worker once previously queued messages are handled and
// waits for it to terminate.
func (p *Pipeline) Exit() {
	p.exitOnce.Do(func() {
		p.inbox.Send(exitMsg{})
	})
	<-p.done
}

func (p *Pipeline) run(m *model) {
	defer close(p.done)
	defer p.inbox.Close()

	for msg := range p.inbox.Receive() {
		switch msg := msg.(type) {
		case startMsg:
			msg.reply <- m.start(msg)
		case stopMsg:
			if s, ok := m.sounds[msg.id]; ok {
				m.drop(msg.id, s)
			}
		case processedMsg:
			m.processed(msg.id, msg.samples)
		case statsMsg:
			msg.reply <- m.stats()
		case exitMsg:
			m.closeAll()
			return
		}
	}
}

// model is the state owned by the worker goroutine
type model struct {
	config      Config
	sounds      map[audio.SoundID]*sound
	inbox       *mailbox.Mailbox[message]
	allocations int
}

// sound is the streaming state of one playing file
type sound struct {
	reader   decode.Reader
	buffers  chan Buffer
	prepared fifo
	looped   bool
	// exhausted is set once the terminal (short) buffer has been prepared
	exhausted bool
}

func (m *model) start(msg startMsg) error {
	r := msg.reader
	frames := r.Frames()
	if frames <= 0 {
		r.Close()
		return ErrEmptyFile
	}

	frame := msg.startFrame % frames
	if frame < 0 {
		frame += frames
	}
	if err := r.SeekFrame(frame); err != nil {
		r.Close()
		return fmt.Errorf("failed to seek to start frame %d: %w", frame, err)
	}

	s := &sound{
		reader:  r,
		buffers: msg.buffers,
		looped:  msg.looped,
	}
	for i := 0; i < NumBuffers && !s.exhausted; i++ {
		p, err := m.fill(s, nil)
		if err != nil {
			r.Close()
			return fmt.Errorf("failed to fill initial buffers: %w", err)
		}
		s.prepared.push(p)
	}
	m.sounds[msg.id] = s

	if m.config.Debug {
		log.Printf("[DEBUG] Streaming sound %d from frame %d/%d (looped=%v, %s)",
			msg.id, frame, frames, msg.looped, r.Format())
	}

	for i := 0; i < NumBuffers; i++ {
		if _, ok := m.sounds[msg.id]; !ok {
			break
		}
		m.forward(msg.id, s, nil)
	}
	return nil
}

func (m *model) processed(id audio.SoundID, samples []float32) {
	s, ok := m.sounds[id]
	if !ok {
		// Sound stopped or finished; let the storage go.
		return
	}
	m.forward(id, s, samples)
}

// forward sends the FIFO front to the consumer, then refills storage and
// queues it at the back.
func (m *model) forward(id audio.SoundID, s *sound, storage []float32) {
	front, ok := s.prepared.pop()
	if !ok {
		return
	}

	// The channel holds at most 2*NumBuffers buffers, so this never blocks.
	s.buffers <- Buffer{
		samples: front.samples,
		id:      id,
		rng:     front.rng,
		inbox:   m.inbox,
	}

	if front.terminal {
		close(s.buffers)
		delete(m.sounds, id)
		s.reader.Close()
		return
	}
	if s.exhausted {
		return
	}

	next, err := m.fill(s, storage)
	if err != nil {
		log.Printf("Dropping sound %d: %v", id, err)
		m.drop(id, s)
		return
	}
	s.prepared.push(next)
}

// fill reads FramesPerBuffer frames into storage, allocating only when the
// storage is too small. Looping sounds wrap to frame 0 within the same fill.
func (m *model) fill(s *sound, storage []float32) (prepared, error) {
	want := m.config.FramesPerBuffer * s.reader.Format().Channels
	if cap(storage) < want {
		storage = make([]float32, want)
		m.allocations++
	}
	storage = storage[:want]

	start := s.reader.Position()
	n := 0
	// wrapped is set after seeking to frame 0 and cleared by any progress, so
	// a file that yields nothing after a wrap cannot spin forever.
	wrapped := false
	for n < want {
		k, err := s.reader.Read(storage[n:])
		n += k
		if k > 0 {
			wrapped = false
		}
		if err == nil {
			if k == 0 {
				break
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			return prepared{}, err
		}
		if !s.looped || wrapped {
			break
		}
		if err := s.reader.SeekFrame(0); err != nil {
			return prepared{}, err
		}
		wrapped = true
	}

	terminal := n < want
	if terminal {
		s.exhausted = true
	}
	return prepared{
		samples:  storage[:n],
		rng:      Range{Start: start, End: start + int64(n)},
		terminal: terminal,
	}, nil
}

// drop forgets a sound and signals its consumer by closing the channel
func (m *model) drop(id audio.SoundID, s *sound) {
	close(s.buffers)
	delete(m.sounds, id)
	s.reader.Close()
}

func (m *model) closeAll() {
	for id, s := range m.sounds {
		m.drop(id, s)
	}
}

func (m *model) stats() Stats {
	depths := make(map[audio.SoundID]int, len(m.sounds))
	for id, s := range m.sounds {
		depths[id] = s.prepared.len()
	}
	return Stats{
		Sounds:      len(m.sounds),
		Allocations: m.allocations,
		Depths:      depths,
	}
}
