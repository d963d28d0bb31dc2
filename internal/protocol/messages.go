// ABOUTME: Wire message definitions for the music generation service
// ABOUTME: Outbound setup/content/config/control and inbound server messages
package protocol

// Playback control tokens accepted by the generation service.
const (
	ControlPlay         = "PLAY"
	ControlPause        = "PAUSE"
	ControlStop         = "STOP"
	ControlResetContext = "RESET_CONTEXT"
)

// Generation states reported by the service. The service is the source of
// truth: a control token is a request, the matching state message is the
// confirmation.
const (
	StatePlaying = "PLAYING"
	StatePaused  = "PAUSED"
	StateStopped = "STOPPED"
)

// Music generation modes.
const (
	ModeQuality   = "QUALITY"
	ModeDiversity = "DIVERSITY"
)

// Scale names the service understands. Relative major/minor pairs share one
// token; SCALE_UNSPECIFIED leaves the choice to the model.
const (
	ScaleUnspecified  = "SCALE_UNSPECIFIED"
	ScaleCMajorAMinor = "C_MAJOR_A_MINOR"
	ScaleDbMajorBbMin = "D_FLAT_MAJOR_B_FLAT_MINOR"
	ScaleDMajorBMinor = "D_MAJOR_B_MINOR"
	ScaleEbMajorCMin  = "E_FLAT_MAJOR_C_MINOR"
	ScaleEMajorDbMin  = "E_MAJOR_D_FLAT_MINOR"
	ScaleFMajorDMinor = "F_MAJOR_D_MINOR"
	ScaleGbMajorEbMin = "G_FLAT_MAJOR_E_FLAT_MINOR"
	ScaleGMajorEMinor = "G_MAJOR_E_MINOR"
	ScaleAbMajorFMin  = "A_FLAT_MAJOR_F_MINOR"
	ScaleAMajorGbMin  = "A_MAJOR_G_FLAT_MINOR"
	ScaleBbMajorGMin  = "B_FLAT_MAJOR_G_MINOR"
	ScaleBMajorAbMin  = "B_MAJOR_A_FLAT_MINOR"
)

// Scales lists every scale token in display order, unspecified first.
// UI code cycles through this slice.
var Scales = []string{
	ScaleUnspecified,
	ScaleCMajorAMinor,
	ScaleDbMajorBbMin,
	ScaleDMajorBMinor,
	ScaleEbMajorCMin,
	ScaleEMajorDbMin,
	ScaleFMajorDMinor,
	ScaleGbMajorEbMin,
	ScaleGMajorEMinor,
	ScaleAbMajorFMin,
	ScaleAMajorGbMin,
	ScaleBbMajorGMin,
	ScaleBMajorAbMin,
}

// WeightedPrompt steers generation toward a style with a relative weight.
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// MusicGenerationConfig is the full parameter set for the generator. Every
// update message carries the complete config: the service treats an update
// as authoritative and resets omitted fields to service-side defaults, so
// no field here may use omitempty — an explicit zero must reach the wire.
type MusicGenerationConfig struct {
	BPM                 int     `json:"bpm"`
	Density             float64 `json:"density"`
	Brightness          float64 `json:"brightness"`
	Scale               string  `json:"scale"`
	MuteDrums           bool    `json:"muteDrums"`
	MuteBass            bool    `json:"muteBass"`
	OnlyBassAndDrums    bool    `json:"onlyBassAndDrums"`
	MusicGenerationMode string  `json:"musicGenerationMode"`
}

// Setup opens the handshake and names the model to generate with.
type Setup struct {
	Model string `json:"model"`
}

// ClientContent carries the active weighted prompt set.
type ClientContent struct {
	WeightedPrompts []WeightedPrompt `json:"weightedPrompts"`
}

// OutboundMessage is the envelope for every client-to-service message.
// Exactly one field is set per message.
type OutboundMessage struct {
	Setup                 *Setup                 `json:"setup,omitempty"`
	ClientContent         *ClientContent         `json:"clientContent,omitempty"`
	MusicGenerationConfig *MusicGenerationConfig `json:"musicGenerationConfig,omitempty"`
	PlaybackControl       string                 `json:"playbackControl,omitempty"`
}

// AudioChunk is one arrival of generated audio, base64 PCM16 in JSON.
type AudioChunk struct {
	Data string `json:"data"`
}

// ServerContent carries generated audio and/or a confirmed generation state.
type ServerContent struct {
	AudioChunks     []AudioChunk `json:"audioChunks,omitempty"`
	GenerationState string       `json:"generationState,omitempty"`
}

// SetupComplete acknowledges the setup message; content may be sent after it.
type SetupComplete struct {
	SessionID string `json:"sessionId,omitempty"`
}

// FilteredPrompt reports a prompt rejected by the service's safety filter.
type FilteredPrompt struct {
	Text   string `json:"text,omitempty"`
	Reason string `json:"filteredReason,omitempty"`
}

// ServerError is a fatal error reported by the service.
type ServerError struct {
	Message string `json:"message"`
}

// InboundMessage is the envelope for every service-to-client JSON message.
// Fields are independently optional: one message may carry any combination,
// so receivers check each field, never switch on a single type tag.
type InboundMessage struct {
	SetupComplete  *SetupComplete  `json:"setupComplete,omitempty"`
	ServerContent  *ServerContent  `json:"serverContent,omitempty"`
	FilteredPrompt *FilteredPrompt `json:"filteredPrompt,omitempty"`
	Warning        string          `json:"warning,omitempty"`
	Error          *ServerError    `json:"error,omitempty"`
}

// Binary frame layout: a 1-byte type header followed by the payload. The
// service may deliver audio as binary frames instead of base64 JSON.
const (
	BinaryFrameAudio = 0x00

	// BinaryHeaderSize is the length of the frame type header.
	BinaryHeaderSize = 1
)
