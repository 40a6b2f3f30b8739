package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/icco/beatscribe/internal/notation"
	"github.com/icco/beatscribe/internal/pattern"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	ghostStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	cursorBG   = lipgloss.Color("#7D56F4")
	playheadBG = lipgloss.Color("#333366")
	loopedBG   = lipgloss.Color("#2D4F2D")
	selectBG   = lipgloss.Color("#4F2D2D")

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	playStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AFFF"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

var meterBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

func (m *Model) View() string {
	if m.enteringTempo {
		return m.viewTempoEntry()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Beatscribe") + "\n\n")
	b.WriteString(m.viewStatus() + "\n\n")
	b.WriteString(m.viewGrid())
	b.WriteString("\n" + m.viewNotation())

	if m.message != "" {
		b.WriteString("\n" + errorStyle.Render(m.message) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("↑↓←→/hjkl: move • space: hit • g: ghost • v/enter: loop select • x: clear loop • B: bake"))
	b.WriteString("\n" + helpStyle.Render("p: play/stop • t/+/-: tempo • r: resolution • m: meter • [ ]: bars • K: keep timing"))
	b.WriteString("\n" + helpStyle.Render("1/2/3: merge notes/rests/dots • w: save • q: quit"))
	return b.String()
}

func (m *Model) viewTempoEntry() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Set Tempo") + "\n\n")
	fmt.Fprintf(&b, "Current: %d bpm\n\n", m.timing.BPM)
	b.WriteString(m.tempoInput.View() + "\n")
	b.WriteString("\n" + helpStyle.Render("enter: apply • esc: cancel"))
	return b.String()
}

func (m *Model) viewStatus() string {
	ts := m.timing.TimeSig
	status := fmt.Sprintf("%d bpm • %d/%d • 1/%d • %d bars", m.timing.BPM, ts.Numerator, ts.Denominator, m.timing.Resolution, m.bars)
	if m.rule != nil {
		status += fmt.Sprintf(" • loop %d+%d", m.rule.Start+1, m.rule.Length)
	}
	line := statusStyle.Render(status)
	if m.sched != nil && m.sched.Playing() {
		line += "  " + playStyle.Render("▶ PLAYING")
	}
	return line
}

// viewGrid renders the derived grid, one row per instrument. The base
// grid's cells under an active loop rule show as the loop writes them, so
// editing inside the looped span is visible immediately.
func (m *Model) viewGrid() string {
	instruments := pattern.Instruments()
	cols := m.derived.Columns()
	spb := m.timing.StepsPerBar()
	playing := m.sched != nil && m.sched.Playing()

	var b strings.Builder

	// Playhead ruler.
	b.WriteString(strings.Repeat(" ", 7))
	for x := 0; x < cols; x++ {
		if x > 0 && x%spb == 0 {
			b.WriteString(barStyle.Render("|"))
		}
		if playing && x == m.playStep {
			b.WriteString(playStyle.Render("▼ "))
		} else {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	for y, in := range instruments {
		if y == m.cursorY {
			b.WriteString(labelStyle.Render(fmt.Sprintf("%-6s ", in.Label)))
		} else {
			b.WriteString(fmt.Sprintf("%-6s ", in.Label))
		}
		for x := 0; x < cols; x++ {
			if x > 0 && x%spb == 0 {
				b.WriteString(barStyle.Render("|"))
			}
			b.WriteString(m.renderCell(y, in.ID, x, playing))
		}
		// Meter column to the right of the row.
		if m.engine != nil {
			b.WriteString(" " + meterStyle.Render(meterBlock(m.levels[y])))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func meterBlock(level float64) string {
	idx := int(level * float64(len(meterBlocks)))
	if idx >= len(meterBlocks) {
		idx = len(meterBlocks) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return meterBlocks[idx]
}

func (m *Model) renderCell(row int, id pattern.InstrumentID, x int, playing bool) string {
	cell := m.derived.Cell(id, x)
	var glyph string
	var style lipgloss.Style
	switch cell {
	case pattern.On:
		glyph, style = "●", onStyle
	case pattern.Ghost:
		glyph, style = "◦", ghostStyle
	default:
		glyph, style = "·", offStyle
	}

	switch {
	case row == m.cursorY && x == m.cursorX:
		style = style.Background(cursorBG)
	case m.selecting && m.inSelection(row, x):
		style = style.Background(selectBG)
	case m.rule != nil && m.rule.Covers(row, x):
		style = style.Background(loopedBG)
	case playing && x == m.playStep:
		style = style.Background(playheadBG)
	}
	return style.Render(glyph) + " "
}

func (m *Model) inSelection(row, x int) bool {
	x0, x1 := m.selX, m.cursorX
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := m.selY, m.cursorY
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return row >= y0 && row <= y1 && x >= x0 && x <= x1
}

// viewNotation prints one line per bar with beamed runs bracketed,
// mirroring the engrave command's output.
func (m *Model) viewNotation() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Notation") + "\n")
	for _, bar := range m.notated {
		b.WriteString(statusStyle.Render(renderNotationBar(bar)) + "\n")
	}
	return b.String()
}

func renderNotationBar(bar notation.Bar) string {
	opens := make(map[int]bool)
	closes := make(map[int]bool)
	for _, bucket := range bar.BeamGroups {
		if len(bucket) < 2 {
			continue
		}
		opens[bucket[0]] = true
		closes[bucket[len(bucket)-1]] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%2d │ ", bar.Index+1)
	for i, sym := range bar.Symbols {
		if i > 0 {
			b.WriteByte(' ')
		}
		if opens[i] {
			b.WriteByte('[')
		}
		b.WriteString(sym.String())
		if closes[i] {
			b.WriteByte(']')
		}
	}
	return b.String()
}
