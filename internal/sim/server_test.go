// ABOUTME: Integration tests for the simulator against a real session
// ABOUTME: Full handshake, prompt filtering, and streaming over httptest
package sim

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/MuseLink-Live/muselink-go/internal/session"
)

func startSim(t *testing.T, cfg Config) (endpoint string) {
	t.Helper()
	srv := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/session"
}

func connect(t *testing.T, endpoint string) *session.Session {
	t.Helper()
	s := session.New(session.Config{
		Endpoint: endpoint,
		Model:    "models/test-music",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestHandshakeReachesReady(t *testing.T) {
	endpoint := startSim(t, Config{})
	s := connect(t, endpoint)

	if s.State() != session.Ready {
		t.Errorf("state = %v, want Ready", s.State())
	}
}

func TestBlockedPromptIsFiltered(t *testing.T) {
	endpoint := startSim(t, Config{Blocklist: []string{"forbidden"}})
	s := connect(t, endpoint)

	errs := make(chan error, 4)
	s.OnError(func(err error) { errs <- err })

	s.SetWeightedPrompts([]protocol.WeightedPrompt{
		session.Prompt("gentle piano"),
		session.Prompt("Forbidden Genre"),
	})

	select {
	case err := <-errs:
		var filtered *session.FilteredPromptError
		if !errors.As(err, &filtered) {
			t.Fatalf("got %T %v, want *FilteredPromptError", err, err)
		}
		if filtered.Text != "Forbidden Genre" {
			t.Errorf("filtered text = %q", filtered.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no filteredPrompt delivered")
	}
}

func TestPlayStreamsChunksAndState(t *testing.T) {
	endpoint := startSim(t, Config{ChunkMs: 20})
	s := connect(t, endpoint)

	var (
		mu     sync.Mutex
		chunks int
		states []session.State
	)
	s.OnAudioChunk(func(pcm []byte) {
		mu.Lock()
		chunks++
		mu.Unlock()
		if len(pcm)%4 != 0 {
			t.Errorf("chunk length %d not frame-aligned", len(pcm))
		}
	})
	s.OnStateChange(func(st session.State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	bpm := 140
	s.UpdateGenerationConfig(session.ConfigUpdate{BPM: &bpm})
	s.ResetContext()
	s.Play()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := chunks
		mu.Unlock()
		if got >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if chunks < 3 {
		t.Errorf("chunks = %d, want >= 3", chunks)
	}
	sawPlaying := false
	for _, st := range states {
		if st == session.Playing {
			sawPlaying = true
		}
	}
	if !sawPlaying {
		t.Errorf("states = %v, PLAYING never confirmed", states)
	}
}

func TestBinaryStreaming(t *testing.T) {
	endpoint := startSim(t, Config{ChunkMs: 20, Binary: true})
	s := connect(t, endpoint)

	got := make(chan int, 16)
	s.OnAudioChunk(func(pcm []byte) { got <- len(pcm) })

	s.Play()

	select {
	case n := <-got:
		want := 48000 * 20 / 1000 * 4 // 20ms of 48k stereo PCM16
		if n != want {
			t.Errorf("binary chunk = %d bytes, want %d", n, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no binary chunk arrived")
	}
}

func TestPauseConfirmedByService(t *testing.T) {
	endpoint := startSim(t, Config{ChunkMs: 20})
	s := connect(t, endpoint)

	states := make(chan session.State, 16)
	s.OnStateChange(func(st session.State) { states <- st })

	s.Play()
	s.Pause()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case st := <-states:
			if st == session.Paused {
				return
			}
		case <-deadline:
			t.Fatal("PAUSED never confirmed")
		}
	}
}

func TestSynthTempoQuirk(t *testing.T) {
	s := newSynth()

	s.apply(protocol.MusicGenerationConfig{BPM: 30, Density: 0.2, Scale: protocol.ScaleGMajorEMinor})
	if s.cfg.BPM != 120 || s.cfg.Scale != protocol.ScaleCMajorAMinor {
		t.Errorf("tempo/scale applied without context reset: %+v", s.cfg)
	}
	if s.cfg.Density != 0.2 {
		t.Errorf("density = %v, want 0.2 applied immediately", s.cfg.Density)
	}

	s.resetContext()
	if s.cfg.BPM != 30 || s.cfg.Scale != protocol.ScaleGMajorEMinor {
		t.Errorf("tempo/scale not adopted after reset: %+v", s.cfg)
	}
}

func TestSynthRenderLength(t *testing.T) {
	s := newSynth()
	pcm := s.render(480)
	if len(pcm) != 480*4 {
		t.Errorf("render = %d bytes, want %d", len(pcm), 480*4)
	}
}
