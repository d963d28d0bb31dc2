// ABOUTME: Generation session state machine over a message transport
// ABOUTME: Handshake, pre-ready write queue, and inbound message dispatch
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State is the session lifecycle state. Transitions are driven by protocol
// events only; transport calls are requests, not guarantees.
type State int

const (
	Idle State = iota
	Connecting
	AwaitingHandshake
	Ready
	Playing
	Paused
	Stopped
	Closed
)

var stateNames = map[State]string{
	Idle:              "idle",
	Connecting:        "connecting",
	AwaitingHandshake: "awaiting-handshake",
	Ready:             "ready",
	Playing:           "playing",
	Paused:            "paused",
	Stopped:           "stopped",
	Closed:            "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrClosed is returned by Connect when the transport closes before the
// handshake completes.
var ErrClosed = errors.New("session: closed before handshake completed")

// Stats counts session traffic for diagnostics.
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	ChunksReceived   int64
	ChunkBytes       int64
	Skipped          int64 // malformed inbound payloads dropped
}

// Config configures a Session.
type Config struct {
	// Endpoint is the WebSocket URL of the generation service.
	Endpoint string

	// APIKey authenticates the connection. Optional for local simulators.
	APIKey string

	// Model names the generative model requested in the setup handshake.
	Model string

	// Dial overrides the transport dialer. Defaults to DialWebSocket with
	// the endpoint and key above.
	Dial DialFunc
}

// Session manages one streaming generation session. It owns the transport
// exclusively: all writes funnel through one send path, all reads through
// one loop, so callers never touch the connection concurrently.
type Session struct {
	id   string
	dial DialFunc

	mu        sync.Mutex
	state     State
	transport Transport
	queue     [][]byte // marshaled messages awaiting handshake, FIFO

	// Retained session content. The full config is re-sent on every update
	// because the service resets omitted fields to defaults.
	model   string
	prompts []protocol.WeightedPrompt
	config  protocol.MusicGenerationConfig

	// Single-slot callbacks; last registration wins.
	onChunk func([]byte)
	onState func(State)
	onError func(error)
	onClose func()

	handshake chan error
	stats     Stats
}

// New creates a disconnected session.
func New(cfg Config) *Session {
	dial := cfg.Dial
	if dial == nil {
		dial = DialWebSocket(cfg.Endpoint, cfg.APIKey)
	}

	return &Session{
		id:        uuid.New().String(),
		dial:      dial,
		model:     cfg.Model,
		state:     Idle,
		handshake: make(chan error, 1),
	}
}

// ID returns the locally-generated session identifier.
func (s *Session) ID() string { return s.id }

// OnAudioChunk registers the audio chunk callback. Chunks are raw
// interleaved PCM16 bytes; ownership transfers to the callback.
func (s *Session) OnAudioChunk(cb func([]byte)) {
	s.mu.Lock()
	s.onChunk = cb
	s.mu.Unlock()
}

// OnStateChange registers the state change callback.
func (s *Session) OnStateChange(cb func(State)) {
	s.mu.Lock()
	s.onState = cb
	s.mu.Unlock()
}

// OnError registers the error callback. Receives *TransportError,
// *ServerError, *FilteredPromptError, and *ServerWarning values.
func (s *Session) OnError(cb func(error)) {
	s.mu.Lock()
	s.onError = cb
	s.mu.Unlock()
}

// OnClose registers the close callback, invoked exactly once when the
// session reaches Closed.
func (s *Session) OnClose(cb func()) {
	s.mu.Lock()
	s.onClose = cb
	s.mu.Unlock()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the traffic counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Connect opens the transport, sends the setup message, and waits for the
// service's setup acknowledgement. It returns only once the session is
// Ready (queued messages flushed), or with an error if the transport fails
// or closes first.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session: connect from state %s", state)
	}
	s.state = Connecting
	s.mu.Unlock()

	transport, err := s.dial(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = Closed
		s.mu.Unlock()
		return &TransportError{Op: "dial", Err: err}
	}

	setup, err := json.Marshal(protocol.OutboundMessage{
		Setup: &protocol.Setup{Model: s.model},
	})
	if err != nil {
		transport.Close()
		return fmt.Errorf("session: marshal setup: %w", err)
	}

	s.mu.Lock()
	s.transport = transport
	if err := transport.WriteMessage(TextMessage, setup); err != nil {
		s.state = Closed
		s.mu.Unlock()
		transport.Close()
		return &TransportError{Op: "setup", Err: err}
	}
	s.state = AwaitingHandshake
	s.stats.MessagesSent++
	s.mu.Unlock()

	go s.readLoop(transport)

	select {
	case err := <-s.handshake:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}
}

// SetWeightedPrompts stores the prompt set as current session state and
// sends the whole set unconditionally. Returns false only if the session
// is closed.
func (s *Session) SetWeightedPrompts(prompts []protocol.WeightedPrompt) bool {
	normalized := normalizePrompts(prompts)

	s.mu.Lock()
	s.prompts = normalized
	s.mu.Unlock()

	return s.send(protocol.OutboundMessage{
		ClientContent: &protocol.ClientContent{WeightedPrompts: normalized},
	})
}

// WeightedPrompts returns the retained prompt set in insertion order.
func (s *Session) WeightedPrompts() []protocol.WeightedPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.WeightedPrompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// UpdateGenerationConfig merges a partial update into the retained config,
// clamps out-of-range values, and sends the complete config. Sending a diff
// instead would silently reset every omitted field service-side.
func (s *Session) UpdateGenerationConfig(update ConfigUpdate) bool {
	s.mu.Lock()
	mergeConfig(&s.config, update)
	full := s.config
	s.mu.Unlock()

	return s.send(protocol.OutboundMessage{MusicGenerationConfig: &full})
}

// GenerationConfig returns the retained full config.
func (s *Session) GenerationConfig() protocol.MusicGenerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Play requests playback. Confirmed only by an inbound PLAYING state.
func (s *Session) Play() bool {
	return s.send(protocol.OutboundMessage{PlaybackControl: protocol.ControlPlay})
}

// Pause requests a pause.
func (s *Session) Pause() bool {
	return s.send(protocol.OutboundMessage{PlaybackControl: protocol.ControlPause})
}

// Stop requests a stop.
func (s *Session) Stop() bool {
	return s.send(protocol.OutboundMessage{PlaybackControl: protocol.ControlStop})
}

// ResetContext discards the model's accumulated generation state. Required
// after a BPM or scale change: the model otherwise keeps generating under
// the old tempo and scale.
func (s *Session) ResetContext() bool {
	return s.send(protocol.OutboundMessage{PlaybackControl: protocol.ControlResetContext})
}

// send marshals and transmits a message if the handshake is complete,
// queues it if the session is still connecting, and reports failure for a
// closed session. It never panics or returns an error for a dead transport.
func (s *Session) send(msg protocol.OutboundMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound message")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == Closed:
		return false
	case s.state == Idle || s.state == Connecting || s.state == AwaitingHandshake:
		s.queue = append(s.queue, data)
		return true
	default:
		if err := s.transport.WriteMessage(TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("write failed, dropping message")
			return false
		}
		s.stats.MessagesSent++
		return true
	}
}

// Close tears the session down. Idempotent; an already-closed session is
// success, not an error.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	preHandshake := s.state == Connecting || s.state == AwaitingHandshake
	s.state = Closed
	transport := s.transport
	onClose := s.onClose
	s.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	if preHandshake {
		s.failHandshake(ErrClosed)
	}
	if onClose != nil {
		onClose()
	}
}

// readLoop reads and dispatches inbound messages until the transport dies.
// It is the only reader; messages are processed strictly in arrival order.
func (s *Session) readLoop(transport Transport) {
	for {
		kind, data, err := transport.ReadMessage()
		if err != nil {
			s.handleTransportDown(err)
			return
		}

		s.mu.Lock()
		s.stats.MessagesReceived++
		s.mu.Unlock()

		switch kind {
		case BinaryMessage:
			s.handleBinary(data)
		case TextMessage:
			s.handleJSON(data)
		default:
			log.Debug().Int("kind", kind).Msg("ignoring unknown frame kind")
		}
	}
}

// handleTransportDown routes a read failure: before the handshake it fails
// the pending Connect, after it the error callback is notified. Both paths
// end in Closed.
func (s *Session) handleTransportDown(err error) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	preHandshake := s.state == AwaitingHandshake || s.state == Connecting
	s.state = Closed
	transport := s.transport
	onError := s.onError
	onClose := s.onClose
	s.mu.Unlock()

	terr := &TransportError{Op: "read", Err: err}
	if preHandshake {
		s.failHandshake(terr)
	} else if onError != nil {
		onError(terr)
	}

	if transport != nil {
		transport.Close()
	}
	if onClose != nil {
		onClose()
	}
}

func (s *Session) failHandshake(err error) {
	select {
	case s.handshake <- err:
	default:
	}
}

// handleBinary dispatches a binary frame. Only audio frames are defined;
// anything else is logged and skipped.
func (s *Session) handleBinary(data []byte) {
	if len(data) < protocol.BinaryHeaderSize {
		s.skip("binary frame too short")
		return
	}
	if data[0] != protocol.BinaryFrameAudio {
		s.skip(fmt.Sprintf("unknown binary frame type %d", data[0]))
		return
	}
	s.deliverChunk(data[protocol.BinaryHeaderSize:])
}

// handleJSON dispatches one inbound JSON message. Every envelope field is
// independently optional and independently checked; a corrupt payload is
// skipped without aborting the surrounding fields or the read loop.
func (s *Session) handleJSON(data []byte) {
	var msg protocol.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.skip(fmt.Sprintf("unparseable message: %v", err))
		return
	}

	if msg.SetupComplete != nil {
		s.completeHandshake()
	}

	if msg.ServerContent != nil {
		for _, chunk := range msg.ServerContent.AudioChunks {
			pcm, err := base64.StdEncoding.DecodeString(chunk.Data)
			if err != nil {
				s.skip(fmt.Sprintf("undecodable audio chunk: %v", err))
				continue
			}
			s.deliverChunk(pcm)
		}

		if state := msg.ServerContent.GenerationState; state != "" {
			s.applyGenerationState(state)
		}
	}

	if msg.FilteredPrompt != nil {
		s.deliverError(&FilteredPromptError{
			Text:   msg.FilteredPrompt.Text,
			Reason: msg.FilteredPrompt.Reason,
		})
	}

	if msg.Warning != "" {
		s.deliverError(&ServerWarning{Message: msg.Warning})
	}

	if msg.Error != nil {
		s.deliverError(&ServerError{Message: msg.Error.Message})
	}
}

// completeHandshake moves the session to Ready and flushes every message
// queued before the acknowledgement, in submission order.
func (s *Session) completeHandshake() {
	s.mu.Lock()
	if s.state != AwaitingHandshake {
		s.mu.Unlock()
		return
	}
	s.state = Ready
	queued := s.queue
	s.queue = nil
	for _, data := range queued {
		if err := s.transport.WriteMessage(TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("flush of queued message failed")
			break
		}
		s.stats.MessagesSent++
	}
	onState := s.onState
	s.mu.Unlock()

	s.failHandshake(nil) // resolves Connect; nil means success
	if onState != nil {
		onState(Ready)
	}
}

// applyGenerationState maps an inbound generation state token onto the
// session state machine.
func (s *Session) applyGenerationState(token string) {
	var next State
	switch token {
	case protocol.StatePlaying:
		next = Playing
	case protocol.StatePaused:
		next = Paused
	case protocol.StateStopped:
		next = Stopped
	default:
		s.skip(fmt.Sprintf("unknown generation state %q", token))
		return
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.state = next
	onState := s.onState
	s.mu.Unlock()

	if onState != nil {
		onState(next)
	}
}

func (s *Session) deliverChunk(pcm []byte) {
	s.mu.Lock()
	s.stats.ChunksReceived++
	s.stats.ChunkBytes += int64(len(pcm))
	onChunk := s.onChunk
	s.mu.Unlock()

	if onChunk != nil {
		onChunk(pcm)
	}
}

func (s *Session) deliverError(err error) {
	s.mu.Lock()
	onError := s.onError
	s.mu.Unlock()

	if onError != nil {
		onError(err)
	}
}

func (s *Session) skip(reason string) {
	s.mu.Lock()
	s.stats.Skipped++
	s.mu.Unlock()
	log.Warn().Str("session", s.id).Msg("skipping inbound payload: " + reason)
}
