// ABOUTME: Console rendering with lipgloss
// ABOUTME: Spectrum bars, prompt palette, sliders, transport line, toasts
package console

import (
	"fmt"
	"strings"

	"github.com/MuseLink-Live/muselink-go/internal/protocol"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("84"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("219"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	toastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Italic(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	learnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// View renders the console.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MuseLink Live Console"))
	b.WriteString(labelStyle.Render(fmt.Sprintf("   [%s]", m.state)))
	if m.learning != "" {
		b.WriteString("  " + learnStyle.Render("MIDI LEARN: move a control for "+m.learning))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderSpectrum())
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Prompts") + "\n")
	for i, p := range m.prompts {
		b.WriteString(m.renderPromptRow(i, p))
	}
	if m.editing {
		b.WriteString(cursorStyle.Render("  new prompt: "+m.editText+"▌") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Parameters") + "\n")
	for i, param := range adjustable {
		b.WriteString(m.renderParamRow(len(m.prompts)+i, param))
	}

	scale := protocol.Scales[m.scaleIdx]
	b.WriteString(fmt.Sprintf("  %s %s   %s %s   %s %s   %s %s\n",
		labelStyle.Render("scale:"), scale,
		labelStyle.Render("drums:"), onOff(!m.muteDrums),
		labelStyle.Render("bass:"), onOff(!m.muteBass),
		labelStyle.Render("only b&d:"), onOff(m.onlyBD),
	))
	b.WriteString("\n")

	for _, t := range m.toasts {
		b.WriteString(toastStyle.Render("• "+t.text) + "\n")
	}

	b.WriteString(mutedStyle.Render(fmt.Sprintf(
		"chunks %d  sent %d  stalls %d  skipped %d",
		m.stats.Session.ChunksReceived,
		m.stats.Session.MessagesSent,
		m.stats.Scheduler.Stalls,
		m.stats.Session.Skipped,
	)) + "\n")
	b.WriteString(mutedStyle.Render(
		"space play/pause  s stop  r reset  a add  d del  enter toggle  ←/→ adjust  S scale  L learn  q quit"))

	return b.String()
}

func (m Model) renderPromptRow(i int, p promptRow) string {
	cursor := "  "
	if m.cursor == i {
		cursor = cursorStyle.Render("> ")
	}

	text := fmt.Sprintf("%-28s %.1f %s", p.text, p.weight, weightBar(p.weight))
	if p.active {
		return cursor + activeStyle.Render(text) + "\n"
	}
	return cursor + mutedStyle.Render(text) + "\n"
}

func (m Model) renderParamRow(row int, param string) string {
	cursor := "  "
	if m.cursor == row {
		cursor = cursorStyle.Render("> ")
	}

	var value string
	var norm float64
	switch param {
	case ParamDensity:
		norm = m.density
		value = fmt.Sprintf("%.2f", m.density)
	case ParamBrightness:
		norm = m.brightness
		value = fmt.Sprintf("%.2f", m.brightness)
	case ParamBPM:
		norm = float64(m.bpm-minBPM) / float64(maxBPM-minBPM)
		value = fmt.Sprintf("%d", m.bpm)
	case ParamVolume:
		norm = m.volume
		value = fmt.Sprintf("%.2f", m.volume)
	}

	return fmt.Sprintf("%s%s %s %s\n",
		cursor, labelStyle.Render(fmt.Sprintf("%-11s", param)), slider(norm, 24), value)
}

// renderSpectrum folds the frequency snapshot into one row of bar glyphs.
func (m Model) renderSpectrum() string {
	width := m.width - 4
	if width < 16 {
		width = 60
	}
	if len(m.spectrum) == 0 {
		return mutedStyle.Render(strings.Repeat("·", width)) + "\n"
	}

	perBar := len(m.spectrum) / width
	if perBar < 1 {
		perBar = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*perBar < len(m.spectrum); i++ {
		peak := byte(0)
		for j := i * perBar; j < (i+1)*perBar && j < len(m.spectrum); j++ {
			if m.spectrum[j] > peak {
				peak = m.spectrum[j]
			}
		}
		b.WriteRune(barGlyphs[int(peak)*(len(barGlyphs)-1)/255])
	}
	return barStyle.Render(b.String()) + "\n"
}

func slider(norm float64, width int) string {
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	filled := int(norm * float64(width))
	return barStyle.Render(strings.Repeat("━", filled)) +
		mutedStyle.Render(strings.Repeat("─", width-filled))
}

func weightBar(weight float64) string {
	return slider(weight/2.0, 10)
}

func onOff(on bool) string {
	if on {
		return activeStyle.Render("on")
	}
	return mutedStyle.Render("off")
}
