// ABOUTME: High-level live generation player
// ABOUTME: One object wrapping the session protocol and playback scheduler
package muselink

import (
	"context"
	"errors"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/player"
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/MuseLink-Live/muselink-go/internal/session"
)

// Re-exported types so callers only import this package.
type (
	// WeightedPrompt steers generation toward a style.
	WeightedPrompt = protocol.WeightedPrompt

	// ConfigUpdate is a partial generation config; nil fields are kept.
	ConfigUpdate = session.ConfigUpdate

	// State is the session lifecycle state.
	State = session.State
)

// Session states, re-exported.
const (
	Idle    = session.Idle
	Ready   = session.Ready
	Playing = session.Playing
	Paused  = session.Paused
	Stopped = session.Stopped
	Closed  = session.Closed
)

// Prompt builds a weighted prompt with the default weight 1.0.
func Prompt(text string) WeightedPrompt {
	return session.Prompt(text)
}

// PlayerConfig configures a Player.
type PlayerConfig struct {
	// Endpoint is the generation service WebSocket URL.
	Endpoint string

	// APIKey authenticates the connection, if the service requires one.
	APIKey string

	// Model names the generative model.
	Model string

	// Volume is the initial output gain (0-1, default 1).
	Volume float64

	// LeadIn is the post-stall scheduling delay (default 50ms).
	LeadIn time.Duration

	// Fade is the stop fade length (default 500ms).
	Fade time.Duration

	// OnStateChange is called when the service confirms a state change.
	OnStateChange func(State)

	// OnError is called for transport failures, server errors, filtered
	// prompts, and warnings.
	OnError func(error)
}

// Player streams live generated audio to the system output.
type Player struct {
	config    PlayerConfig
	session   *session.Session
	scheduler *player.Scheduler
}

// NewPlayer creates a player. The audio output opens and the service is
// contacted on Connect.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Endpoint == "" {
		return nil, errors.New("muselink: endpoint required")
	}
	if config.Volume <= 0 {
		config.Volume = 1.0
	}
	if config.Fade <= 0 {
		config.Fade = player.DefaultFade
	}

	p := &Player{
		config:    config,
		scheduler: player.New(player.Config{LeadIn: config.LeadIn}),
		session: session.New(session.Config{
			Endpoint: config.Endpoint,
			APIKey:   config.APIKey,
			Model:    config.Model,
		}),
	}

	p.session.OnAudioChunk(func(pcm []byte) {
		p.scheduler.SubmitChunk(pcm)
	})
	p.session.OnStateChange(func(st State) {
		if st == Stopped {
			p.scheduler.BeginFadeStop(p.config.Fade)
		}
		if config.OnStateChange != nil {
			config.OnStateChange(st)
		}
	})
	if config.OnError != nil {
		p.session.OnError(config.OnError)
	}

	return p, nil
}

// Connect opens the audio output, then performs the handshake, returning
// once the session is ready. The output opens first so the first chunk has
// somewhere to land.
func (p *Player) Connect(ctx context.Context) error {
	if err := p.scheduler.Initialize(); err != nil {
		return err
	}
	p.scheduler.SetVolume(p.config.Volume)
	return p.session.Connect(ctx)
}

// SetPrompts replaces the active prompt set.
func (p *Player) SetPrompts(prompts ...WeightedPrompt) bool {
	return p.session.SetWeightedPrompts(prompts)
}

// UpdateConfig merges a partial config and sends the full result.
func (p *Player) UpdateConfig(update ConfigUpdate) bool {
	return p.session.UpdateGenerationConfig(update)
}

// Play unblocks the output device and requests playback.
func (p *Player) Play() bool {
	if err := p.scheduler.Resume(); err != nil {
		return false
	}
	return p.session.Play()
}

// Pause requests a pause.
func (p *Player) Pause() bool {
	return p.session.Pause()
}

// Stop requests a stop and fades the local output.
func (p *Player) Stop() bool {
	ok := p.session.Stop()
	p.scheduler.BeginFadeStop(p.config.Fade)
	return ok
}

// ResetContext discards the model's accumulated generation state. Call it
// after BPM or scale changes.
func (p *Player) ResetContext() bool {
	return p.session.ResetContext()
}

// SetVolume adjusts output gain, clamped to [0,1].
func (p *Player) SetVolume(v float64) {
	p.scheduler.SetVolume(v)
}

// FrequencySnapshot returns the current spectrum bins for visualization.
func (p *Player) FrequencySnapshot() []byte {
	return p.scheduler.FrequencySnapshot()
}

// WaveformSnapshot returns the current time-domain snapshot.
func (p *Player) WaveformSnapshot() []byte {
	return p.scheduler.WaveformSnapshot()
}

// State returns the current session state.
func (p *Player) State() State {
	return p.session.State()
}

// Close releases the session and the audio output. Idempotent.
func (p *Player) Close() {
	p.session.Close()
	p.scheduler.Shutdown()
}
