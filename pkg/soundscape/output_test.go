// ABOUTME: Recording Output used by scheduler tests
// ABOUTME: Captures every request the scheduler makes of the output
package soundscape

import (
	"sync"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/dbap"
)

type update struct {
	position dbap.Position
	volume   float64
}

type recordingOutput struct {
	mu       sync.Mutex
	spawnErr error
	spawned  []Spec
	updates  map[audio.SoundID][]update
	stopped  []audio.SoundID
	played   []audio.SoundID
	paused   []audio.SoundID
}

func newRecordingOutput() *recordingOutput {
	return &recordingOutput{updates: make(map[audio.SoundID][]update)}
}

func (o *recordingOutput) Spawn(spec Spec) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.spawnErr != nil {
		return o.spawnErr
	}
	o.spawned = append(o.spawned, spec)
	return nil
}

func (o *recordingOutput) Update(id audio.SoundID, position dbap.Position, volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates[id] = append(o.updates[id], update{position: position, volume: volume})
}

func (o *recordingOutput) Stop(id audio.SoundID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = append(o.stopped, id)
}

func (o *recordingOutput) Play(id audio.SoundID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.played = append(o.played, id)
}

func (o *recordingOutput) Pause(id audio.SoundID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = append(o.paused, id)
}

func (o *recordingOutput) spawnCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.spawned)
}

func (o *recordingOutput) lastUpdate(id audio.SoundID) (update, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	u := o.updates[id]
	if len(u) == 0 {
		return update{}, false
	}
	return u[len(u)-1], true
}
