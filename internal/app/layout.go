// ABOUTME: Builds the installation from CLI settings
// ABOUTME: Speaker rings, sources from an audio directory and fallback tones
package app

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/audioscape/audioscape/pkg/audio/decode"
	"github.com/audioscape/audioscape/pkg/dbap"
	"github.com/audioscape/audioscape/pkg/soundscape"
)

// toneFrequencies are the fallback sources when no audio directory is given
var toneFrequencies = []float64{220, 277.18, 329.63, 440}

// SpeakerRing places n speakers evenly on a circle around the origin, the
// first one straight ahead.
func SpeakerRing(n int, radius float64, zones dbap.Zones) []soundscape.Speaker {
	speakers := make([]soundscape.Speaker, 0, n)
	for i := 0; i < n; i++ {
		angle := math.Pi/2 - 2*math.Pi*float64(i)/float64(n)
		speakers = append(speakers, soundscape.Speaker{
			Point: dbap.Point{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)},
			Zones: zones.Clone(),
		})
	}
	return speakers
}

// LoadSources returns one looping source for every decodable file in dir,
// sorted by file name.
func LoadSources(dir string, zones dbap.Zones) ([]soundscape.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !decode.Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no supported audio files in %s", dir)
	}

	sources := make([]soundscape.Source, 0, len(names))
	for i, name := range names {
		src := baseSource(i, zones)
		src.Name = strings.TrimSuffix(name, filepath.Ext(name))
		src.Kind = soundscape.Kind{Path: filepath.Join(dir, name), Looped: true}
		sources = append(sources, src)
	}
	return sources, nil
}

// ToneSources returns synthesised sources used when no files are given
func ToneSources(zones dbap.Zones) []soundscape.Source {
	sources := make([]soundscape.Source, 0, len(toneFrequencies))
	for i, freq := range toneFrequencies {
		src := baseSource(i, zones)
		src.Name = fmt.Sprintf("tone %.0fHz", freq)
		src.Kind = soundscape.Kind{Frequency: freq, Channels: 1}
		src.Volume = 0.4
		sources = append(sources, src)
	}
	return sources
}

// baseSource gives the i-th source its spawn policy and a movement that
// cycles through the available kinds.
func baseSource(i int, zones dbap.Zones) soundscape.Source {
	src := soundscape.Source{
		Zones:           zones.Clone(),
		Spread:          1,
		Volume:          0.8,
		Occurrence:      soundscape.Interval{Min: 4 * time.Second, Max: 12 * time.Second},
		MaxSimultaneous: 2,
		Duration:        soundscape.Interval{Min: 8 * time.Second, Max: 20 * time.Second},
		Attack:          2 * time.Second,
		Release:         3 * time.Second,
	}

	switch i % 3 {
	case 0:
		src.Movement = soundscape.Movement{Kind: soundscape.MoveFixed}
	case 1:
		src.Movement = soundscape.Movement{
			Kind: soundscape.MoveNgon,
			Ngon: soundscape.Ngon{Vertices: 5, Radius: 2, Speed: 0.5, Phase: float64(i) / 7},
		}
	case 2:
		src.Movement = soundscape.Movement{
			Kind:  soundscape.MoveAgent,
			Agent: soundscape.Agent{MaxSpeed: 1, MaxForce: 0.5},
		}
	}
	return src
}
