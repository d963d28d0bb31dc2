// ABOUTME: Package documentation for the public muselink API
// ABOUTME: High-level live generation player over session + scheduler
//
// Package muselink provides a high-level client for streaming live
// generated music: it connects to a generation service, forwards prompt
// and parameter updates, and plays the returned audio gap-free on the
// system output.
//
// Basic usage:
//
//	p, err := muselink.NewPlayer(muselink.PlayerConfig{
//		Endpoint: "ws://localhost:9035/session",
//		Model:    "models/lyria-realtime-exp",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	p.SetPrompts(muselink.Prompt("minimal techno"))
//	p.Play()
package muselink
