// ABOUTME: Bubbletea model for the live performance console
// ABOUTME: Prompt palette, parameter sliders, transport, toasts
package console

import (
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/player"
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/MuseLink-Live/muselink-go/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Controls is what the model calls into; the app wires it to the session
// and scheduler. The model itself never touches the network or the device.
type Controls interface {
	SetPrompts(prompts []protocol.WeightedPrompt)
	UpdateConfig(update session.ConfigUpdate)
	ResetContext()
	Play()
	Pause()
	StopPlayback()
	SetVolume(v float64)
	BeginLearn(param string)
}

// Parameter IDs shared with the MIDI mapping store.
const (
	ParamDensity    = "density"
	ParamBrightness = "brightness"
	ParamBPM        = "bpm"
	ParamVolume     = "volume"
)

// adjustable lists the slider rows in display order.
var adjustable = []string{ParamDensity, ParamBrightness, ParamBPM, ParamVolume}

// Messages sent into the program by the app's forwarding callbacks.
type (
	// SpectrumMsg carries a frequency snapshot for the bars.
	SpectrumMsg []byte

	// StateMsg reports a confirmed session state.
	StateMsg session.State

	// ToastMsg shows a transient notification.
	ToastMsg string

	// StatsMsg refreshes the diagnostic counters.
	StatsMsg struct {
		Session   session.Stats
		Scheduler player.Stats
	}

	// LearnedMsg reports a completed MIDI learn.
	LearnedMsg struct{ Param string }

	tickMsg time.Time
)

type toast struct {
	text    string
	expires time.Time
}

type promptRow struct {
	text   string
	weight float64
	active bool
}

// Model is the console state. All mutation happens in Update.
type Model struct {
	controls Controls

	// Prompt palette
	prompts  []promptRow
	cursor   int // index into prompts + adjustable rows
	editing  bool
	editText string

	// Parameters mirrored from the retained config
	bpm        int
	density    float64
	brightness float64
	scaleIdx   int
	muteDrums  bool
	muteBass   bool
	onlyBD     bool
	volume     float64

	state    session.State
	spectrum []byte
	toasts   []toast
	stats    StatsMsg
	learning string

	width, height int
}

// NewModel creates the console model with a starting prompt palette.
func NewModel(controls Controls, startPrompts []string, volume float64) Model {
	prompts := make([]promptRow, len(startPrompts))
	for i, text := range startPrompts {
		prompts[i] = promptRow{text: text, weight: session.DefaultWeight, active: i == 0}
	}

	return Model{
		controls:   controls,
		prompts:    prompts,
		bpm:        120,
		density:    0.5,
		brightness: 0.5,
		volume:     volume,
		state:      session.Ready,
	}
}

// Init starts the toast expiry ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// rows is the total number of selectable rows.
func (m Model) rows() int {
	return len(m.prompts) + len(adjustable)
}

// selectedParam returns the adjustable parameter under the cursor, if any.
func (m Model) selectedParam() (string, bool) {
	i := m.cursor - len(m.prompts)
	if i < 0 || i >= len(adjustable) {
		return "", false
	}
	return adjustable[i], true
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SpectrumMsg:
		m.spectrum = msg
		return m, nil

	case StateMsg:
		m.state = session.State(msg)
		return m, nil

	case ToastMsg:
		m.toasts = append(m.toasts, toast{
			text:    string(msg),
			expires: time.Now().Add(4 * time.Second),
		})
		return m, nil

	case StatsMsg:
		m.stats = msg
		return m, nil

	case LearnedMsg:
		m.learning = ""
		m.toasts = append(m.toasts, toast{
			text:    "mapped " + msg.Param,
			expires: time.Now().Add(4 * time.Second),
		})
		return m, nil

	case ParameterMsg:
		return m.ApplyParameter(msg.Param, msg.Value), nil

	case tickMsg:
		now := time.Now()
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.expires.After(now) {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.rows()-1 {
			m.cursor++
		}

	case " ":
		if m.state == session.Playing {
			m.controls.Pause()
		} else {
			m.controls.Play()
		}
	case "s":
		m.controls.StopPlayback()
	case "r":
		m.controls.ResetContext()

	case "enter":
		if m.cursor < len(m.prompts) {
			m.prompts[m.cursor].active = !m.prompts[m.cursor].active
			m.pushPrompts()
		}
	case "a":
		m.editing = true
		m.editText = ""
	case "d":
		if m.cursor < len(m.prompts) {
			m.prompts = append(m.prompts[:m.cursor], m.prompts[m.cursor+1:]...)
			if m.cursor > 0 {
				m.cursor--
			}
			m.pushPrompts()
		}

	case "left", "right", "-", "+", "=":
		m = m.adjust(msg.String())

	case "S":
		m.scaleIdx = (m.scaleIdx + 1) % len(protocol.Scales)
		scale := protocol.Scales[m.scaleIdx]
		m.controls.UpdateConfig(session.ConfigUpdate{Scale: &scale})
		m.controls.ResetContext()

	case "m":
		m.muteDrums = !m.muteDrums
		m.controls.UpdateConfig(session.ConfigUpdate{MuteDrums: &m.muteDrums})
	case "b":
		m.muteBass = !m.muteBass
		m.controls.UpdateConfig(session.ConfigUpdate{MuteBass: &m.muteBass})
	case "o":
		m.onlyBD = !m.onlyBD
		m.controls.UpdateConfig(session.ConfigUpdate{OnlyBassAndDrums: &m.onlyBD})

	case "L":
		if param, ok := m.selectedParam(); ok {
			m.learning = param
			m.controls.BeginLearn(param)
		}
	}

	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.editText != "" {
			m.prompts = append(m.prompts, promptRow{
				text:   m.editText,
				weight: session.DefaultWeight,
				active: true,
			})
			m.pushPrompts()
		}
		m.editing = false
		m.editText = ""
	case "esc":
		m.editing = false
		m.editText = ""
	case "backspace":
		if len(m.editText) > 0 {
			m.editText = m.editText[:len(m.editText)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.editText += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.editText += " "
		}
	}
	return m, nil
}

// adjust changes the value under the cursor: prompt weight for prompt rows,
// the parameter itself for slider rows.
func (m Model) adjust(key string) Model {
	up := key == "right" || key == "+" || key == "="

	if m.cursor < len(m.prompts) {
		p := &m.prompts[m.cursor]
		if up {
			p.weight += 0.1
			if p.weight > 2.0 {
				p.weight = 2.0
			}
		} else {
			p.weight -= 0.1
			if p.weight < 0 {
				p.weight = 0
			}
		}
		m.pushPrompts()
		return m
	}

	param, ok := m.selectedParam()
	if !ok {
		return m
	}
	return m.ApplyParameter(param, paramDelta(m, param, up))
}

// paramDelta computes the new normalized value for a keyboard nudge.
func paramDelta(m Model, param string, up bool) float64 {
	step := 0.05
	var current float64
	switch param {
	case ParamDensity:
		current = m.density
	case ParamBrightness:
		current = m.brightness
	case ParamBPM:
		current = float64(m.bpm-minBPM) / float64(maxBPM-minBPM)
		step = 0.02
	case ParamVolume:
		current = m.volume
	}
	if up {
		return current + step
	}
	return current - step
}

const (
	minBPM = 60
	maxBPM = 200
)

// ApplyParameter sets a parameter from a normalized [0,1] value. Shared by
// keyboard nudges and MIDI CC movements.
func (m Model) ApplyParameter(param string, norm float64) Model {
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}

	switch param {
	case ParamDensity:
		m.density = norm
		m.controls.UpdateConfig(session.ConfigUpdate{Density: &m.density})
	case ParamBrightness:
		m.brightness = norm
		m.controls.UpdateConfig(session.ConfigUpdate{Brightness: &m.brightness})
	case ParamBPM:
		m.bpm = minBPM + int(norm*float64(maxBPM-minBPM))
		bpm := m.bpm
		m.controls.UpdateConfig(session.ConfigUpdate{BPM: &bpm})
		m.controls.ResetContext()
	case ParamVolume:
		m.volume = norm
		m.controls.SetVolume(norm)
	}
	return m
}

// ParameterMsg carries a MIDI-driven parameter change into the program.
type ParameterMsg struct {
	Param string
	Value float64
}

func (m Model) pushPrompts() {
	var active []protocol.WeightedPrompt
	for _, p := range m.prompts {
		if p.active {
			active = append(active, protocol.WeightedPrompt{Text: p.text, Weight: p.weight})
		}
	}
	m.controls.SetPrompts(active)
}
