// ABOUTME: Tests for the console model
// ABOUTME: Fake controls record the calls the UI glue makes
package console

import (
	"testing"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/MuseLink-Live/muselink-go/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

type call struct {
	name   string
	update session.ConfigUpdate
	prompts []protocol.WeightedPrompt
	volume float64
}

type fakeControls struct {
	calls []call
}

func (f *fakeControls) SetPrompts(p []protocol.WeightedPrompt) {
	f.calls = append(f.calls, call{name: "prompts", prompts: p})
}
func (f *fakeControls) UpdateConfig(u session.ConfigUpdate) {
	f.calls = append(f.calls, call{name: "config", update: u})
}
func (f *fakeControls) ResetContext() { f.calls = append(f.calls, call{name: "reset"}) }
func (f *fakeControls) Play()         { f.calls = append(f.calls, call{name: "play"}) }
func (f *fakeControls) Pause()        { f.calls = append(f.calls, call{name: "pause"}) }
func (f *fakeControls) StopPlayback() { f.calls = append(f.calls, call{name: "stop"}) }
func (f *fakeControls) SetVolume(v float64) {
	f.calls = append(f.calls, call{name: "volume", volume: v})
}
func (f *fakeControls) BeginLearn(param string) {
	f.calls = append(f.calls, call{name: "learn:" + param})
}

func (f *fakeControls) last(t *testing.T) call {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("no control calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newTestModel() (Model, *fakeControls) {
	f := &fakeControls{}
	return NewModel(f, []string{"minimal techno", "dub"}, 1.0), f
}

func TestSpaceTogglesTransport(t *testing.T) {
	m, f := newTestModel()

	next, _ := m.Update(key(" "))
	m = next.(Model)
	if f.last(t).name != "play" {
		t.Errorf("space from ready = %q, want play", f.last(t).name)
	}

	next, _ = m.Update(StateMsg(session.Playing))
	m = next.(Model)
	next, _ = m.Update(key(" "))
	if f.last(t).name != "pause" {
		t.Errorf("space while playing = %q, want pause", f.last(t).name)
	}
	_ = next
}

func TestToggleSendsActivePromptSet(t *testing.T) {
	m, f := newTestModel()

	// Activate the second prompt; the first is active from startup.
	m.cursor = 1
	next, _ := m.Update(key("enter"))
	_ = next

	got := f.last(t)
	if got.name != "prompts" {
		t.Fatalf("last call = %q, want prompts", got.name)
	}
	if len(got.prompts) != 2 {
		t.Fatalf("active prompts = %d, want 2", len(got.prompts))
	}
	if got.prompts[1].Text != "dub" || got.prompts[1].Weight != session.DefaultWeight {
		t.Errorf("prompts[1] = %+v", got.prompts[1])
	}
}

func TestBPMChangeResetsContext(t *testing.T) {
	m, f := newTestModel()

	m = m.ApplyParameter(ParamBPM, 0.5)

	if len(f.calls) < 2 {
		t.Fatalf("calls = %d, want config then reset", len(f.calls))
	}
	cfg := f.calls[len(f.calls)-2]
	if cfg.name != "config" || cfg.update.BPM == nil {
		t.Errorf("second-to-last call = %+v, want bpm config", cfg)
	}
	if f.last(t).name != "reset" {
		t.Errorf("last call = %q, want reset (tempo change needs context reset)", f.last(t).name)
	}
	if m.bpm != minBPM+(maxBPM-minBPM)/2 {
		t.Errorf("bpm = %d", m.bpm)
	}
}

func TestDensityChangeDoesNotReset(t *testing.T) {
	m, f := newTestModel()

	_ = m.ApplyParameter(ParamDensity, 0.7)

	got := f.last(t)
	if got.name != "config" || got.update.Density == nil || *got.update.Density != 0.7 {
		t.Errorf("last call = %+v, want density config", got)
	}
}

func TestParameterMsgClamped(t *testing.T) {
	m, f := newTestModel()

	next, _ := m.Update(ParameterMsg{Param: ParamVolume, Value: 1.8})
	_ = next

	got := f.last(t)
	if got.name != "volume" || got.volume != 1.0 {
		t.Errorf("volume call = %+v, want clamped 1.0", got)
	}
}

func TestWeightAdjustOnPromptRow(t *testing.T) {
	m, f := newTestModel()

	m.cursor = 0
	next, _ := m.Update(key("right"))
	_ = next

	got := f.last(t)
	if got.name != "prompts" {
		t.Fatalf("last call = %q, want prompts", got.name)
	}
	if w := got.prompts[0].Weight; w != session.DefaultWeight+0.1 {
		t.Errorf("weight = %v, want %v", w, session.DefaultWeight+0.1)
	}
}

func TestToastExpires(t *testing.T) {
	m, _ := newTestModel()

	next, _ := m.Update(ToastMsg("server warning: hot"))
	m = next.(Model)
	if len(m.toasts) != 1 {
		t.Fatalf("toasts = %d, want 1", len(m.toasts))
	}

	m.toasts[0].expires = time.Now().Add(-time.Second)
	next, _ = m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if len(m.toasts) != 0 {
		t.Errorf("toasts after expiry tick = %d, want 0", len(m.toasts))
	}
}

func TestViewRendersWithoutState(t *testing.T) {
	m, _ := newTestModel()
	if out := m.View(); out == "" {
		t.Error("empty view")
	}

	next, _ := m.Update(SpectrumMsg(make([]byte, 1024)))
	m = next.(Model)
	if out := m.View(); out == "" {
		t.Error("empty view with spectrum")
	}
}
