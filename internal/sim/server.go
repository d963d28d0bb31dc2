// ABOUTME: Simulated generation service speaking the session wire protocol
// ABOUTME: Handshake, full-config application, prompt filtering, streaming
package sim

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/audio"
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Config holds simulator settings.
type Config struct {
	// Port to listen on for the standalone binary.
	Port int

	// ChunkMs is the duration of each streamed audio chunk.
	ChunkMs int

	// Binary streams audio as binary frames instead of base64 JSON.
	Binary bool

	// Blocklist lists substrings that trigger a filteredPrompt response,
	// standing in for the real service's safety filter.
	Blocklist []string
}

// Server is the simulated generation service.
type Server struct {
	config     Config
	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	wg sync.WaitGroup
}

// New creates a simulator.
func New(config Config) *Server {
	if config.ChunkMs <= 0 {
		config.ChunkMs = 500
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/session", s.handleSession)
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens until Stop.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.mux,
	}
	log.Info().Int("port", s.config.Port).Msg("simulator listening")
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the listener down and waits for open sessions to finish.
func (s *Server) Stop() error {
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

// conn is one client session.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	synth     *synth
	synthMu   sync.Mutex
	streaming chan struct{} // non-nil while the streamer goroutine runs
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	c := &conn{ws: ws, synth: newSynth()}
	defer func() {
		c.stopStreaming()
		ws.Close()
	}()

	// Handshake: the first message must be setup.
	var first protocol.OutboundMessage
	if err := ws.ReadJSON(&first); err != nil || first.Setup == nil {
		log.Warn().Err(err).Msg("session opened without setup, dropping")
		return
	}
	sessionID := uuid.New().String()
	c.send(protocol.InboundMessage{
		SetupComplete: &protocol.SetupComplete{SessionID: sessionID},
	})
	log.Info().Str("session", sessionID).Str("model", first.Setup.Model).Msg("session started")

	for {
		var msg protocol.OutboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			log.Debug().Str("session", sessionID).Err(err).Msg("session closed")
			return
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *conn, msg protocol.OutboundMessage) {
	if msg.ClientContent != nil {
		for _, p := range msg.ClientContent.WeightedPrompts {
			if reason, blocked := s.filtered(p.Text); blocked {
				c.send(protocol.InboundMessage{
					FilteredPrompt: &protocol.FilteredPrompt{Text: p.Text, Reason: reason},
				})
			}
		}
	}

	if msg.MusicGenerationConfig != nil {
		c.synthMu.Lock()
		c.synth.apply(*msg.MusicGenerationConfig)
		c.synthMu.Unlock()
	}

	switch msg.PlaybackControl {
	case protocol.ControlPlay:
		s.startStreaming(c)
		c.sendState(protocol.StatePlaying)
	case protocol.ControlPause:
		c.stopStreaming()
		c.sendState(protocol.StatePaused)
	case protocol.ControlStop:
		c.stopStreaming()
		c.sendState(protocol.StateStopped)
	case protocol.ControlResetContext:
		c.synthMu.Lock()
		c.synth.resetContext()
		c.synthMu.Unlock()
	}
}

func (s *Server) filtered(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, blocked := range s.config.Blocklist {
		if strings.Contains(lower, strings.ToLower(blocked)) {
			return "blocked term: " + blocked, true
		}
	}
	return "", false
}

// startStreaming launches the chunk streamer unless one is running.
func (s *Server) startStreaming(c *conn) {
	c.synthMu.Lock()
	if c.streaming != nil {
		c.synthMu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.streaming = stop
	c.synthMu.Unlock()

	chunkFrames := audio.SampleRate * s.config.ChunkMs / 1000
	interval := time.Duration(s.config.ChunkMs) * time.Millisecond

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.synthMu.Lock()
				pcm := c.synth.render(chunkFrames)
				c.synthMu.Unlock()

				var err error
				if s.config.Binary {
					err = c.sendBinary(pcm)
				} else {
					err = c.send(protocol.InboundMessage{
						ServerContent: &protocol.ServerContent{
							AudioChunks: []protocol.AudioChunk{
								{Data: base64.StdEncoding.EncodeToString(pcm)},
							},
						},
					})
				}
				if err != nil {
					return
				}
			}
		}
	}()
}

func (c *conn) stopStreaming() {
	c.synthMu.Lock()
	if c.streaming != nil {
		close(c.streaming)
		c.streaming = nil
	}
	c.synthMu.Unlock()
}

func (c *conn) send(msg protocol.InboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) sendBinary(pcm []byte) error {
	frame := append([]byte{protocol.BinaryFrameAudio}, pcm...)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *conn) sendState(state string) {
	c.send(protocol.InboundMessage{
		ServerContent: &protocol.ServerContent{GenerationState: state},
	})
}
