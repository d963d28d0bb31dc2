// ABOUTME: Headless capture tool: connect, prompt, record to WAV
// ABOUTME: No audio device needed; chunks go straight to the file
package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/audio"
	"github.com/MuseLink-Live/muselink-go/internal/config"
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/MuseLink-Live/muselink-go/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	out     = flag.String("out", "capture.wav", "Output WAV path")
	seconds = flag.Int("seconds", 30, "Recording length in seconds")
	prompts = flag.String("prompts", "minimal techno", "Comma-separated prompts")
	bpm     = flag.Int("bpm", 0, "BPM (0 leaves the service default)")
	density = flag.Float64("density", -1, "Density 0-1 (negative leaves the default)")
)

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	s := session.New(session.Config{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
	})

	var (
		mu  sync.Mutex
		pcm bytes.Buffer
	)
	s.OnAudioChunk(func(chunk []byte) {
		mu.Lock()
		pcm.Write(chunk)
		mu.Unlock()
	})
	s.OnError(func(err error) {
		log.Warn().Err(err).Msg("session")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := s.Connect(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("connect")
	}
	cancel()
	defer s.Close()

	var weighted []protocol.WeightedPrompt
	for _, text := range strings.Split(*prompts, ",") {
		if text = strings.TrimSpace(text); text != "" {
			weighted = append(weighted, session.Prompt(text))
		}
	}
	s.SetWeightedPrompts(weighted)

	update := session.ConfigUpdate{}
	reset := false
	if *bpm > 0 {
		update.BPM = bpm
		reset = true
	}
	if *density >= 0 {
		update.Density = density
	}
	if update.BPM != nil || update.Density != nil {
		s.UpdateGenerationConfig(update)
	}
	if reset {
		s.ResetContext()
	}

	s.Play()
	log.Info().Int("seconds", *seconds).Msg("recording")
	time.Sleep(time.Duration(*seconds) * time.Second)
	s.Stop()

	mu.Lock()
	data := pcm.Bytes()
	mu.Unlock()
	if len(data) == 0 {
		log.Fatal().Msg("no audio received")
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal().Err(err).Msg("create output")
	}
	defer f.Close()
	if err := audio.WriteWAV(f, data); err != nil {
		log.Fatal().Err(err).Msg("write wav")
	}

	log.Info().Str("file", *out).
		Dur("length", audio.FramesToDuration(int64(len(data)/audio.BytesPerFrame))).
		Msg("capture complete")
}
