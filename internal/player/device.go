// ABOUTME: Output device abstraction over oto
// ABOUTME: The device pulls rendered samples; its clock is the sample clock
package player

import (
	"fmt"
	"io"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/audio"
	"github.com/ebitengine/oto/v3"
)

// Device is the audio output endpoint. It pulls interleaved PCM16 from the
// reader it was built with; suspending it freezes the sample clock, and
// resuming continues exactly where playback left off.
type Device interface {
	// Play starts the pull loop.
	Play()

	// Resume unblocks output. Output devices commonly start suspended
	// until the process is allowed to produce sound.
	Resume() error

	// Suspend pauses the pull loop without discarding pending audio.
	Suspend() error

	// Close releases the device. Must tolerate being called twice.
	Close() error
}

// DeviceFactory builds a Device that pulls from r. Swapped for a headless
// fake in tests.
type DeviceFactory func(r io.Reader) (Device, error)

type otoDevice struct {
	ctx    *oto.Context
	player *oto.Player
	closed bool
}

// newOtoDevice opens the system audio output at the fixed service format.
func newOtoDevice(r io.Reader) (Device, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	return &otoDevice{ctx: ctx, player: ctx.NewPlayer(r)}, nil
}

func (d *otoDevice) Play() {
	d.player.Play()
}

func (d *otoDevice) Resume() error {
	return d.ctx.Resume()
}

func (d *otoDevice) Suspend() error {
	return d.ctx.Suspend()
}

func (d *otoDevice) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	// Best effort: a device that is already gone counts as released.
	if err := d.player.Close(); err != nil {
		return nil
	}
	return d.ctx.Suspend()
}
