// ABOUTME: Main application orchestration
// ABOUTME: Wires the streaming pipeline, mixer, scheduler, monitor and UI
package app

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/audioscape/audioscape/internal/discovery"
	"github.com/audioscape/audioscape/internal/monitor"
	"github.com/audioscape/audioscape/internal/ui"
	"github.com/audioscape/audioscape/internal/version"
	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/dbap"
	"github.com/audioscape/audioscape/pkg/output"
	"github.com/audioscape/audioscape/pkg/soundscape"
	"github.com/audioscape/audioscape/pkg/stream"
)

// Config holds application configuration
type Config struct {
	Name            string
	AudioDir        string
	Speakers        int
	Radius          float64
	Zone            string
	RolloffDB       float64
	FramesPerBuffer int
	SampleRate      int
	DeviceFrames    int
	Port            int
	Seed            uint64
	EnableMDNS      bool
	UseTUI          bool
	EnableAudio     bool
	StartPaused     bool
	Debug           bool
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = version.Product
	}
	if c.Speakers <= 0 {
		c.Speakers = 4
	}
	if c.Radius <= 0 {
		c.Radius = 3
	}
	if c.SampleRate <= 0 {
		c.SampleRate = output.DefaultSampleRate
	}
	if c.DeviceFrames <= 0 {
		c.DeviceFrames = 512
	}
	return c
}

// App is a running installation
type App struct {
	config Config

	ids       *audio.IDGenerator
	pipeline  *stream.Pipeline
	mixer     *output.Mixer
	scape     *soundscape.Soundscape
	hub       *monitor.Hub
	monitor   *monitor.Server
	discovery *discovery.Manager
	device    *output.Device
	tui       *ui.TUI

	// layoutMu keeps the scheduler's speakers and the mixer's channels in
	// step. Output channel i is speakerIDs[i].
	layoutMu   sync.Mutex
	speakerIDs []soundscape.SpeakerID
	layout     map[soundscape.SpeakerID]soundscape.Speaker

	ctx       context.Context
	cancel    context.CancelFunc
	rendering sync.WaitGroup
	wg        sync.WaitGroup
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// New creates an application
func New(config Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:   config.withDefaults(),
		ids:      audio.NewIDGenerator(),
		layout:   make(map[soundscape.SpeakerID]soundscape.Speaker),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Start builds the installation and runs until Stop or a TUI quit
func (a *App) Start() error {
	sources, err := a.sources()
	if err != nil {
		return err
	}

	if err := a.startEngine(); err != nil {
		return err
	}

	if err := a.populate(sources); err != nil {
		a.shutdown()
		return err
	}

	a.startMonitor()

	var tuiQuit <-chan struct{}
	tuiErr := make(chan error, 1)
	if a.config.UseTUI {
		a.tui = ui.New(a.config.Name, a.scape)
		tuiQuit = a.tui.QuitChan()
		frames, cancel := a.hub.Subscribe()
		go func() {
			defer cancel()
			tuiErr <- a.tui.Run(frames)
		}()
	}

	select {
	case <-a.stopChan:
		log.Printf("Shutting down...")
	case <-tuiQuit:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-tuiErr:
		if err != nil {
			log.Printf("TUI error: %v", err)
		}
	}

	a.shutdown()
	log.Printf("Stopped cleanly")
	return nil
}

// Stop requests shutdown
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
	})
}

func (a *App) sources() ([]soundscape.Source, error) {
	zones := dbap.NewZones(a.config.Zone)
	if a.config.AudioDir == "" {
		log.Printf("No audio directory given, using %d synthesised tones", len(toneFrequencies))
		return ToneSources(zones), nil
	}
	sources, err := LoadSources(a.config.AudioDir, zones)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d sources from %s", len(sources), a.config.AudioDir)
	return sources, nil
}

// startEngine spawns the workers and starts rendering
func (a *App) startEngine() error {
	a.pipeline = stream.Spawn(stream.Config{
		FramesPerBuffer: a.config.FramesPerBuffer,
		Debug:           a.config.Debug,
	})

	a.mixer = output.NewMixer(output.Config{
		SampleRate: a.config.SampleRate,
		RolloffDB:  a.config.RolloffDB,
		Debug:      a.config.Debug,
	}, output.NewOpener(a.pipeline, a.config.SampleRate))

	a.scape = soundscape.Spawn(soundscape.Config{
		Seed:        a.config.Seed,
		StartPaused: a.config.StartPaused,
		IDs:         a.ids,
		Debug:       a.config.Debug,
	}, a.mixer)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for id := range a.mixer.Finished() {
			a.scape.Finished(id)
		}
	}()

	if a.config.EnableAudio {
		device, err := output.OpenDevice(a.mixer, a.config.DeviceFrames)
		if err != nil {
			log.Printf("Audio device unavailable, rendering headless: %v", err)
		} else {
			a.device = device
		}
	}
	if a.device == nil {
		a.rendering.Add(1)
		go func() {
			defer a.rendering.Done()
			renderHeadless(a.ctx, a.mixer, a.config.DeviceFrames)
		}()
	}
	return nil
}

// populate inserts the speaker layout and the sources
func (a *App) populate(sources []soundscape.Source) error {
	zones := dbap.NewZones(a.config.Zone)
	speakers := SpeakerRing(a.config.Speakers, a.config.Radius, zones)

	for _, sp := range speakers {
		if err := a.SetSpeaker(soundscape.NewSpeakerID(), sp); err != nil {
			return err
		}
	}

	members := make([]soundscape.SourceID, 0, len(sources))
	for _, src := range sources {
		id := soundscape.NewSourceID()
		if _, err := a.scape.InsertSource(id, src); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.Name, err)
		}
		members = append(members, id)
	}

	group := soundscape.Group{
		Name:            "all",
		Members:         members,
		MaxSimultaneous: max(2, (len(members)+1)/2),
	}
	if _, err := a.scape.InsertGroup(soundscape.NewGroupID(), group); err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	log.Printf("Installation ready: %d speakers (radius %.1fm, zones %s), %d sources",
		len(speakers), a.config.Radius, zones, len(sources))
	return nil
}

// SetSpeaker inserts or replaces a speaker in the scheduler and the mixer
// together. A new speaker takes the next output channel.
func (a *App) SetSpeaker(id soundscape.SpeakerID, sp soundscape.Speaker) error {
	a.layoutMu.Lock()
	defer a.layoutMu.Unlock()

	if _, err := a.scape.InsertSpeaker(id, sp); err != nil {
		return fmt.Errorf("failed to insert speaker: %w", err)
	}
	if _, ok := a.layout[id]; !ok {
		a.speakerIDs = append(a.speakerIDs, id)
	}
	a.layout[id] = sp
	a.syncLayout()
	return nil
}

// RemoveSpeaker removes a speaker from the scheduler and the mixer. Later
// speakers move down one output channel. Returns false if it does not exist.
func (a *App) RemoveSpeaker(id soundscape.SpeakerID) (bool, error) {
	a.layoutMu.Lock()
	defer a.layoutMu.Unlock()

	found, err := a.scape.RemoveSpeaker(id)
	if err != nil {
		return false, fmt.Errorf("failed to remove speaker: %w", err)
	}
	if _, ok := a.layout[id]; !ok {
		return found, nil
	}
	delete(a.layout, id)
	a.speakerIDs = slices.DeleteFunc(a.speakerIDs, func(other soundscape.SpeakerID) bool {
		return other == id
	})
	a.syncLayout()
	return found, nil
}

// syncLayout pushes the speaker list to the mixer. Callers hold layoutMu.
func (a *App) syncLayout() {
	speakers := make([]dbap.Speaker, len(a.speakerIDs))
	for i, id := range a.speakerIDs {
		sp := a.layout[id]
		speakers[i] = dbap.Speaker{Point: sp.Point, Zones: sp.Zones.Clone()}
	}
	a.mixer.SetSpeakers(speakers)
}

func (a *App) startMonitor() {
	a.hub = monitor.NewHub()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hub.Run(a.ctx, a.scape.Snapshots(), a.mixer.Levels())
	}()

	if a.config.Port < 0 {
		return
	}

	a.monitor = monitor.NewServer(monitor.Config{Port: a.config.Port, Debug: a.config.Debug}, a.hub)
	if err := a.monitor.Start(); err != nil {
		log.Printf("Monitor disabled: %v", err)
		a.monitor = nil
		return
	}

	if a.config.EnableMDNS {
		a.discovery = discovery.NewManager(discovery.Config{
			ServiceName: a.config.Name,
			Port:        a.monitor.Port(),
			Info:        map[string]string{"version": version.Version},
		})
		if err := a.discovery.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
	}
}

// shutdown stops rendering before releasing what it reads from
func (a *App) shutdown() {
	if a.tui != nil {
		a.tui.Stop()
	}
	if a.discovery != nil {
		a.discovery.Stop()
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			log.Printf("Audio device close error: %v", err)
		}
	}

	a.cancel()
	a.rendering.Wait()
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.hub != nil {
		a.hub.Close()
	}

	a.scape.Exit()
	a.mixer.Close()
	a.pipeline.Exit()
	a.wg.Wait()
}

// renderHeadless drives the mixer in real time when no device is open, so
// levels and completion reports keep flowing.
func renderHeadless(ctx context.Context, mixer *output.Mixer, frames int) {
	period := time.Duration(frames) * time.Second / time.Duration(mixer.SampleRate())
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var buf []float32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			buf = mixer.Render(buf, frames)
		}
	}
}
