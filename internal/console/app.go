// ABOUTME: Console application wiring
// ABOUTME: Connects session, scheduler, MIDI, and the TUI program
package console

import (
	"context"
	"fmt"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/config"
	"github.com/MuseLink-Live/muselink-go/internal/midi"
	"github.com/MuseLink-Live/muselink-go/internal/player"
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/MuseLink-Live/muselink-go/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

// startPrompts seeds the palette on first launch.
var startPrompts = []string{
	"minimal techno",
	"warm analog pads",
	"jazzy keys",
}

// App owns the console's components for one run.
type App struct {
	cfg       *config.Config
	session   *session.Session
	scheduler *player.Scheduler
	store     *midi.Store
	listener  *midi.Listener
	prog      *tea.Program
}

// New builds the app. Nothing connects until Run.
func New(cfg *config.Config) *App {
	return &App{
		cfg:       cfg,
		scheduler: player.New(player.Config{LeadIn: cfg.LeadIn}),
		session: session.New(session.Config{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
		}),
		store: midi.NewStore(cfg.MappingPath),
	}
}

// Run connects, starts the TUI, and blocks until quit.
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Initialize(); err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	defer a.scheduler.Shutdown()
	a.scheduler.SetVolume(a.cfg.Volume)

	model := NewModel(a, startPrompts, a.cfg.Volume)
	a.prog = tea.NewProgram(model, tea.WithAltScreen())

	a.wireSession()
	if a.cfg.EnableMIDI {
		a.wireMIDI()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.session.Connect(connectCtx); err != nil {
		return fmt.Errorf("connect to %s: %w", a.cfg.Endpoint, err)
	}
	defer a.session.Close()

	a.scheduler.StartVisualizationLoop(func(freq, wave []byte) {
		a.prog.Send(SpectrumMsg(freq))
	})

	statsDone := make(chan struct{})
	defer close(statsDone)
	go a.pumpStats(statsDone)

	_, err := a.prog.Run()
	return err
}

// wireSession forwards session events into the TUI and the scheduler.
func (a *App) wireSession() {
	a.session.OnAudioChunk(func(pcm []byte) {
		if err := a.scheduler.SubmitChunk(pcm); err != nil {
			log.Warn().Err(err).Msg("chunk rejected")
		}
	})

	a.session.OnStateChange(func(st session.State) {
		switch st {
		case session.Playing:
			if err := a.scheduler.Resume(); err != nil {
				log.Warn().Err(err).Msg("resume output")
			}
		case session.Paused:
			if err := a.scheduler.Suspend(); err != nil {
				log.Warn().Err(err).Msg("suspend output")
			}
		case session.Stopped:
			a.scheduler.BeginFadeStop(a.cfg.Fade)
		}
		a.prog.Send(StateMsg(st))
	})

	a.session.OnError(func(err error) {
		a.prog.Send(ToastMsg(err.Error()))
	})

	a.session.OnClose(func() {
		a.prog.Send(ToastMsg("connection closed"))
		a.prog.Send(StateMsg(session.Closed))
	})
}

func (a *App) wireMIDI() {
	if err := a.store.Load(); err != nil {
		log.Warn().Err(err).Msg("mapping store unreadable, starting empty")
	}

	listener, err := midi.NewListener(a.store, a.cfg.MIDIPort)
	if err != nil {
		log.Warn().Err(err).Msg("midi unavailable")
		return
	}
	a.listener = listener

	listener.OnParameterChange(func(param string, value float64) {
		a.prog.Send(ParameterMsg{Param: param, Value: value})
	})
	listener.OnLearned(func(param string, control midi.Control) {
		a.prog.Send(LearnedMsg{Param: param})
	})
}

func (a *App) pumpStats(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			if a.listener != nil {
				a.listener.Close()
			}
			return
		case <-ticker.C:
			a.prog.Send(StatsMsg{
				Session:   a.session.Stats(),
				Scheduler: a.scheduler.Stats(),
			})
		}
	}
}

// Controls implementation: the model calls these, nothing else.

func (a *App) SetPrompts(prompts []protocol.WeightedPrompt) {
	a.session.SetWeightedPrompts(prompts)
}

func (a *App) UpdateConfig(update session.ConfigUpdate) {
	a.session.UpdateGenerationConfig(update)
}

func (a *App) ResetContext() {
	a.session.ResetContext()
}

func (a *App) Play() {
	// The device must be unblocked before the transport request, or the
	// confirmed stream plays into a suspended output.
	if err := a.scheduler.Resume(); err != nil {
		log.Warn().Err(err).Msg("resume output")
	}
	a.session.Play()
}

func (a *App) Pause() {
	a.session.Pause()
}

func (a *App) StopPlayback() {
	a.session.Stop()
	a.scheduler.BeginFadeStop(a.cfg.Fade)
}

func (a *App) SetVolume(v float64) {
	a.scheduler.SetVolume(v)
}

func (a *App) BeginLearn(param string) {
	if a.listener == nil {
		a.prog.Send(ToastMsg("midi not available"))
		return
	}
	a.listener.BeginLearn(param)
}
