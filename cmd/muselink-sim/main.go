// ABOUTME: Standalone simulated generation service
// ABOUTME: Speaks the session wire protocol with a deterministic synth
package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MuseLink-Live/muselink-go/internal/sim"
	"github.com/MuseLink-Live/muselink-go/internal/version"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	port      = flag.Int("port", 9035, "Port to listen on")
	chunkMs   = flag.Int("chunk-ms", 500, "Streamed chunk duration in milliseconds")
	binary    = flag.Bool("binary", false, "Stream audio as binary frames instead of base64 JSON")
	blocklist = flag.String("blocklist", "", "Comma-separated prompt substrings to filter")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var blocked []string
	for _, term := range strings.Split(*blocklist, ",") {
		if term = strings.TrimSpace(term); term != "" {
			blocked = append(blocked, term)
		}
	}

	server := sim.New(sim.Config{
		Port:      *port,
		ChunkMs:   *chunkMs,
		Binary:    *binary,
		Blocklist: blocked,
	})

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		log.Info().Msg("shutting down")
		if err := server.Stop(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("version", version.Version).Int("port", *port).Msg("muselink-sim starting")
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
