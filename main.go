// ABOUTME: Entry point for the MuseLink live console
// ABOUTME: Parses flags, sets up logging, and starts the TUI or radio mode
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/MuseLink-Live/muselink-go/internal/config"
	"github.com/MuseLink-Live/muselink-go/internal/console"
	"github.com/MuseLink-Live/muselink-go/internal/version"
	"github.com/MuseLink-Live/muselink-go/pkg/muselink"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
)

var (
	endpoint   = flag.String("endpoint", "", "Generation service URL (overrides MUSELINK_ENDPOINT)")
	model      = flag.String("model", "", "Model name (overrides MUSELINK_MODEL)")
	enableMIDI = flag.Bool("midi", false, "Enable MIDI CC control")
	radio      = flag.Bool("radio", false, "No TUI: connect, play defaults, stream until interrupted")
	logFile    = flag.String("log-file", "muselink.log", "Log file path (TUI mode)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *enableMIDI {
		cfg.EnableMIDI = true
	}

	setupLogging(cfg.LogLevel, !*radio)

	log.Info().Str("version", version.Version).Str("endpoint", cfg.Endpoint).
		Str("model", cfg.Model).Msg("starting " + version.Product)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *radio {
		if err := runRadio(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("radio mode failed")
		}
		return
	}

	if err := console.New(cfg).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("console failed")
	}
}

// setupLogging routes zerolog to a file in TUI mode, where stdout belongs
// to the terminal UI, and to a console writer otherwise.
func setupLogging(level string, tui bool) {
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if tui {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatal().Err(err).Msg("open log file")
		}
		log.Logger = log.Output(f)
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// runRadio streams with the default prompt set and no UI.
func runRadio(ctx context.Context, cfg *config.Config) error {
	p, err := muselink.NewPlayer(muselink.PlayerConfig{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Volume:   cfg.Volume,
		LeadIn:   cfg.LeadIn,
		Fade:     cfg.Fade,
		OnStateChange: func(st muselink.State) {
			log.Info().Stringer("state", st).Msg("state changed")
		},
		OnError: func(err error) {
			log.Warn().Err(err).Msg("session")
		},
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Connect(ctx); err != nil {
		return err
	}
	p.SetPrompts(muselink.Prompt("minimal techno"), muselink.Prompt("warm analog pads"))
	p.Play()

	<-ctx.Done()
	p.Stop()
	return nil
}
