// ABOUTME: Oto-based audio device driving the mixer
// ABOUTME: Down-mixes speaker channels to stereo by speaker position
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/audioscape/audioscape/pkg/audio"
	"github.com/audioscape/audioscape/pkg/dbap"
)

const (
	deviceChannels = 2
	bytesPerSample = 2
)

// Device plays a mixer on the default stereo output. oto pulls audio from
// the device on its own goroutine, which becomes the mixer's render goroutine.
type Device struct {
	mixer   *Mixer
	otoCtx  *oto.Context
	player  *oto.Player
	frames  int
	buf     []float32
	stereo  []float32
	pans    [][2]float32
	panFrom []dbap.Speaker
}

// OpenDevice starts playback. bufferFrames sets the render period.
func OpenDevice(mixer *Mixer, bufferFrames int) (*Device, error) {
	if bufferFrames <= 0 {
		bufferFrames = 512
	}
	sampleRate := mixer.SampleRate()

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: deviceChannels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	d := &Device{
		mixer:  mixer,
		otoCtx: ctx,
		frames: bufferFrames,
	}
	d.player = ctx.NewPlayer(d)
	d.player.Play()

	log.Printf("Audio output initialized: %dHz, %d frames per period", sampleRate, bufferFrames)
	return d, nil
}

// Read renders the mixer into 16-bit little-endian stereo for oto
func (d *Device) Read(p []byte) (int, error) {
	frames := len(p) / (deviceChannels * bytesPerSample)
	if frames > d.frames {
		frames = d.frames
	}
	if frames == 0 {
		return 0, nil
	}

	d.render(frames)
	for i, v := range d.stereo[:frames*deviceChannels] {
		binary.LittleEndian.PutUint16(p[i*bytesPerSample:], uint16(audio.SampleToInt16(v)))
	}
	return frames * deviceChannels * bytesPerSample, nil
}

// render mixes one period and folds it down to stereo
func (d *Device) render(frames int) {
	d.buf = d.mixer.Render(d.buf, frames)
	speakers := d.mixer.Speakers()
	n := len(speakers)

	if cap(d.stereo) < frames*deviceChannels {
		d.stereo = make([]float32, frames*deviceChannels)
	}
	d.stereo = d.stereo[:frames*deviceChannels]
	clear(d.stereo)

	if !sameLayout(d.panFrom, speakers) {
		d.pans = stereoPans(speakers)
		d.panFrom = speakers
	}
	for f := 0; f < frames; f++ {
		for i := 0; i < n; i++ {
			v := d.buf[f*n+i]
			d.stereo[f*2] += v * d.pans[i][0]
			d.stereo[f*2+1] += v * d.pans[i][1]
		}
	}
}

// Close stops playback. The mixer stays open for its owner to close once
// nothing renders it.
func (d *Device) Close() error {
	var err error
	if d.player != nil {
		err = d.player.Close()
		d.player = nil
	}
	if d.otoCtx != nil {
		if serr := d.otoCtx.Suspend(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// stereoPans gives each speaker an equal-power left/right pan from its x
// position relative to the leftmost and rightmost speakers.
func stereoPans(speakers []dbap.Speaker) [][2]float32 {
	pans := make([][2]float32, len(speakers))
	if len(speakers) == 0 {
		return pans
	}
	minX, maxX := speakers[0].Point.X, speakers[0].Point.X
	for _, s := range speakers[1:] {
		minX = math.Min(minX, s.Point.X)
		maxX = math.Max(maxX, s.Point.X)
	}
	for i, s := range speakers {
		x := 0.5
		if maxX > minX {
			x = (s.Point.X - minX) / (maxX - minX)
		}
		angle := x * math.Pi / 2
		pans[i] = [2]float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
	}
	return pans
}

func sameLayout(a, b []dbap.Speaker) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Point != b[i].Point {
			return false
		}
	}
	return true
}
