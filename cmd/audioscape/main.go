// ABOUTME: Entry point for the audioscape installation
// ABOUTME: Parses CLI flags, sets up logging and runs the application
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audioscape/audioscape/internal/app"
	"github.com/audioscape/audioscape/internal/discovery"
	"github.com/audioscape/audioscape/internal/version"
)

var (
	audioDir    = flag.String("audio", "", "Directory of audio files to use as sources (WAV, AIFF, MP3, OGG, FLAC). If not specified, plays synthesised tones")
	speakers    = flag.Int("speakers", 4, "Number of speakers arranged in a ring")
	radius      = flag.Float64("radius", 3, "Radius of the speaker ring in metres")
	zone        = flag.String("zone", "", "Zone served by the speakers and used by every source (default: all zones)")
	rolloff     = flag.Float64("rolloff", 6, "Distance rolloff in dB per doubling of distance")
	frames      = flag.Int("frames", 64, "Frames decoded per streaming buffer")
	sampleRate  = flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	port        = flag.Int("port", 8930, "Monitor HTTP port (-1 disables the monitor)")
	name        = flag.String("name", "", "Installation name (default: hostname-audioscape)")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI       = flag.Bool("no-tui", false, "Disable the terminal status view")
	noAudio     = flag.Bool("no-audio", false, "Render without opening an audio device")
	paused      = flag.Bool("paused", false, "Start paused")
	seed        = flag.Uint64("seed", 0, "Seed for spawn decisions (0 picks one from the clock)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	logFile     = flag.String("log-file", "audioscape.log", "Log file path")
	browse      = flag.Duration("browse", 0, "List installations advertised on the local network for this long, then exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	if *browse > 0 {
		listInstallations(*browse)
		return
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	// The status view owns the terminal, so only the file gets logs then
	if *noTUI {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.SetOutput(f)
	}

	installation := *name
	if installation == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		installation = fmt.Sprintf("%s-%s", hostname, version.Product)
	}

	spawnSeed := *seed
	if spawnSeed == 0 {
		spawnSeed = uint64(time.Now().UnixNano())
	}

	log.Printf("Starting %s %s: %s", version.Product, version.Version, installation)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Spawn seed: %d", spawnSeed)
	log.Printf("Logging to: %s", *logFile)

	a := app.New(app.Config{
		Name:            installation,
		AudioDir:        *audioDir,
		Speakers:        *speakers,
		Radius:          *radius,
		Zone:            *zone,
		RolloffDB:       *rolloff,
		FramesPerBuffer: *frames,
		SampleRate:      *sampleRate,
		Port:            *port,
		Seed:            spawnSeed,
		EnableMDNS:      !*noMDNS,
		UseTUI:          !*noTUI,
		EnableAudio:     !*noAudio,
		StartPaused:     *paused,
		Debug:           *debug,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		a.Stop()
	}()

	if err := a.Start(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// listInstallations prints the monitor address of every installation that
// answers within wait.
func listInstallations(wait time.Duration) {
	if !*debug {
		log.SetOutput(io.Discard)
	}

	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()
	if err := mgr.Browse(); err != nil {
		fmt.Fprintf(os.Stderr, "Browse failed: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	servers := discovery.Collect(ctx, mgr.Servers())
	if len(servers) == 0 {
		fmt.Println("No installations found")
		return
	}
	for _, s := range servers {
		fmt.Printf("%s\t%s\n", s.Name, s.URL())
	}
}
