// Package tui is the interactive grid editor: cursor editing, loop
// selection and bake, transport control and a live notation pane.
package tui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"

	"github.com/icco/beatscribe/internal/audio"
	"github.com/icco/beatscribe/internal/notation"
	"github.com/icco/beatscribe/internal/pattern"
	"github.com/icco/beatscribe/internal/playback"
)

// meterPresets cycles with the 'm' key.
var meterPresets = []pattern.TimeSignature{
	{Numerator: 4, Denominator: 4},
	{Numerator: 3, Denominator: 4},
	{Numerator: 5, Denominator: 4},
	{Numerator: 6, Denominator: 8},
	{Numerator: 12, Denominator: 8},
}

// stepMsg is sent from the scheduler's step observer.
type stepMsg int

// meterMsg drives the level-meter animation while playing.
type meterMsg time.Time

// playResultMsg reports the outcome of starting playback.
type playResultMsg struct{ err error }

// Model is the grid editor state. It is used through a pointer so the
// scheduler callback and the snapshot provider see live state.
type Model struct {
	base    *pattern.Grid
	rule    *pattern.LoopRule
	derived *pattern.Grid
	timing  pattern.Timing
	bars    int

	cursorX, cursorY int
	selecting        bool
	selX, selY       int // selection anchor

	keepTiming bool
	opts       notation.Options
	notated    []notation.Bar

	sched  *playback.Scheduler
	engine *audio.Engine // nil disables audio (tests)

	playStep int

	tempoInput    textinput.Model
	enteringTempo bool

	spring    harmonica.Spring
	levels    []float64
	levelVels []float64

	filePath string
	message  string
	width    int
	height   int

	program *tea.Program

	snapMu   sync.Mutex
	snapshot playback.Snapshot
}

// NewModel builds the editor around an existing grid. sched and engine may
// be nil, which disables playback (used in tests).
func NewModel(grid *pattern.Grid, timing pattern.Timing, bars int, sched *playback.Scheduler, engine *audio.Engine, filePath string) *Model {
	ti := textinput.New()
	ti.Placeholder = "bpm"
	ti.CharLimit = 3
	ti.Width = 5

	m := &Model{
		base:       grid,
		timing:     timing.Clamped(),
		bars:       bars,
		keepTiming: true,
		opts:       notation.DefaultOptions(),
		sched:      sched,
		engine:     engine,
		tempoInput: ti,
		filePath:   filePath,
		spring:     harmonica.NewSpring(harmonica.FPS(30), 5.0, 0.7),
		levels:     make([]float64, len(pattern.Instruments())),
		levelVels:  make([]float64, len(pattern.Instruments())),
	}
	if sched != nil {
		sched.OnStep(func(step int) {
			if p := m.program; p != nil {
				p.Send(stepMsg(step))
			}
		})
	}
	m.refresh()
	return m
}

// SetProgram stores the program reference so scheduler callbacks can send
// messages into the update loop.
func (m *Model) SetProgram(p *tea.Program) { m.program = p }

// refresh recomputes everything derived from the base grid: the loop
// overlay, the notation and the published playback snapshot.
func (m *Model) refresh() {
	if m.rule != nil && !m.rule.Valid() {
		m.rule = nil
	}
	m.derived = pattern.ComputeDerived(m.base, m.rule)
	m.notated = notation.Transcribe(m.derived, m.timing, m.opts)

	snap := playback.Snapshot{
		Grid:        m.derived.Clone(),
		Instruments: pattern.Instruments(),
		Columns:     m.derived.Columns(),
		Timing:      m.timing,
	}
	m.snapMu.Lock()
	m.snapshot = snap
	m.snapMu.Unlock()
}

// pullSnapshot is the scheduler's snapshot provider; it hands out the last
// published copy so playback never aliases the grid being edited.
func (m *Model) pullSnapshot() playback.Snapshot {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	return m.snapshot
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stepMsg:
		m.playStep = int(msg)
		return m, nil

	case playResultMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Playback error: %v", msg.err)
		}
		return m, nil

	case meterMsg:
		m.animateMeter()
		if m.sched != nil && m.sched.Playing() {
			return m, meterTick()
		}
		return m, nil

	case tea.KeyMsg:
		if m.enteringTempo {
			return m.updateTempoEntry(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func meterTick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return meterMsg(t) })
}

// animateMeter springs the displayed levels toward the engine's current
// per-instrument amplitudes.
func (m *Model) animateMeter() {
	if m.engine == nil {
		return
	}
	levels := m.engine.Levels()
	for i, in := range pattern.Instruments() {
		m.levels[i], m.levelVels[i] = m.spring.Update(m.levels[i], m.levelVels[i], levels[in.ID])
	}
}

func (m *Model) updateTempoEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if bpm, err := strconv.Atoi(m.tempoInput.Value()); err == nil {
			m.timing.BPM = bpm
			m.timing = m.timing.Clamped()
			m.message = fmt.Sprintf("Tempo set to %d", m.timing.BPM)
			m.refresh()
		} else {
			m.message = "Not a number"
		}
		m.enteringTempo = false
		m.tempoInput.Blur()
		return m, nil
	case "esc":
		m.enteringTempo = false
		m.tempoInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.tempoInput, cmd = m.tempoInput.Update(msg)
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	instruments := pattern.Instruments()
	cols := m.base.Columns()

	switch msg.String() {
	case "ctrl+c", "q":
		if m.sched != nil {
			m.sched.Stop()
		}
		return m, tea.Quit

	case "left", "h":
		if m.cursorX > 0 {
			m.cursorX--
		}
	case "right", "l":
		if m.cursorX < cols-1 {
			m.cursorX++
		}
	case "up", "k":
		if m.cursorY > 0 {
			m.cursorY--
		}
	case "down", "j":
		if m.cursorY < len(instruments)-1 {
			m.cursorY++
		}

	case " ":
		m.base.Toggle(instruments[m.cursorY].ID, m.cursorX)
		m.refresh()
	case "g":
		m.base.ToggleGhost(instruments[m.cursorY].ID, m.cursorX)
		m.refresh()

	case "v":
		if m.selecting {
			m.selecting = false
			m.message = "Selection cancelled"
		} else {
			m.selecting = true
			m.selX, m.selY = m.cursorX, m.cursorY
			m.message = "Selecting: move, then enter to loop"
		}
	case "enter":
		if m.selecting {
			m.commitSelection()
		}
	case "x":
		if m.rule != nil {
			m.rule = nil
			m.message = "Loop cleared"
			m.refresh()
		}
	case "B":
		if m.rule != nil {
			m.base = pattern.Bake(m.base, m.rule)
			m.rule = nil
			m.selecting = false
			m.message = "Loop baked into pattern"
			m.refresh()
		}

	case "p":
		return m.togglePlayback()

	case "t":
		m.enteringTempo = true
		m.tempoInput.SetValue("")
		m.tempoInput.Focus()
	case "+", "=":
		m.timing.BPM += 5
		m.timing = m.timing.Clamped()
		m.refresh()
	case "-", "_":
		m.timing.BPM -= 5
		m.timing = m.timing.Clamped()
		m.refresh()

	case "r":
		m.cycleResolution()
	case "m":
		m.cycleMeter()
	case "K":
		m.keepTiming = !m.keepTiming
		m.message = fmt.Sprintf("Keep timing on remap: %v", m.keepTiming)
	case "]":
		m.setBars(m.bars + 1)
	case "[":
		m.setBars(m.bars - 1)

	case "1":
		m.opts.MergeNotes = !m.opts.MergeNotes
		m.refresh()
	case "2":
		m.opts.MergeRests = !m.opts.MergeRests
		m.refresh()
	case "3":
		m.opts.DottedNotes = !m.opts.DottedNotes
		m.refresh()

	case "w":
		m.savePattern()
	}
	return m, nil
}

// commitSelection turns the selection rectangle into a loop rule. A span
// under two cells cannot loop and drops the rule instead.
func (m *Model) commitSelection() {
	m.selecting = false
	x0, x1 := m.selX, m.cursorX
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := m.selY, m.cursorY
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	r := &pattern.LoopRule{RowStart: y0, RowEnd: y1, Start: x0, Length: x1 - x0 + 1}
	if !r.Valid() {
		m.rule = nil
		m.message = "Selection too small to loop (need 2+ steps)"
	} else {
		m.rule = r
		m.message = fmt.Sprintf("Looping steps %d-%d", x0+1, x1+1)
	}
	m.refresh()
}

func (m *Model) togglePlayback() (tea.Model, tea.Cmd) {
	if m.sched == nil {
		m.message = "Audio disabled"
		return m, nil
	}
	if m.sched.Playing() {
		m.sched.Stop()
		m.playStep = 0
		return m, nil
	}
	start := func() tea.Msg {
		return playResultMsg{err: m.sched.Play(context.Background(), m.pullSnapshot, 0)}
	}
	return m, tea.Batch(start, meterTick())
}

// cycleResolution steps to the next subdivision. With keep-timing on, the
// grid is remapped so existing hits stay on the same musical positions;
// otherwise it is recreated empty at the new shape. Either way the loop
// rule's indices no longer apply and it is cleared.
func (m *Model) cycleResolution() {
	oldSPB := m.timing.StepsPerBar()
	for i, r := range pattern.Resolutions {
		if r == m.timing.Resolution {
			m.timing.Resolution = pattern.Resolutions[(i+1)%len(pattern.Resolutions)]
			break
		}
	}
	m.reshape(oldSPB)
	m.message = fmt.Sprintf("Resolution: 1/%d", m.timing.Resolution)
}

func (m *Model) cycleMeter() {
	oldSPB := m.timing.StepsPerBar()
	for i, ts := range meterPresets {
		if ts == m.timing.TimeSig {
			m.timing.TimeSig = meterPresets[(i+1)%len(meterPresets)]
			m.reshape(oldSPB)
			m.message = fmt.Sprintf("Meter: %d/%d", m.timing.TimeSig.Numerator, m.timing.TimeSig.Denominator)
			return
		}
	}
	m.timing.TimeSig = meterPresets[0]
	m.reshape(oldSPB)
}

func (m *Model) reshape(oldSPB int) {
	newSPB := m.timing.StepsPerBar()
	if m.keepTiming {
		m.base = pattern.Remap(m.base, oldSPB, newSPB, m.bars)
	} else {
		m.base = pattern.NewGrid(m.bars * newSPB)
	}
	m.rule = nil
	m.selecting = false
	m.clampCursor()
	m.refresh()
}

func (m *Model) setBars(bars int) {
	if bars < 1 || bars > 16 {
		return
	}
	m.bars = bars
	m.base = m.base.Resize(m.bars * m.timing.StepsPerBar())
	m.clampCursor()
	m.refresh()
	m.message = fmt.Sprintf("Bars: %d", m.bars)
}

func (m *Model) clampCursor() {
	if cols := m.base.Columns(); m.cursorX >= cols {
		m.cursorX = cols - 1
	}
	if m.cursorX < 0 {
		m.cursorX = 0
	}
}

func (m *Model) savePattern() {
	if m.filePath == "" {
		m.filePath = "pattern.txt"
	}
	text := pattern.Format(m.base, m.timing, m.bars)
	if err := os.WriteFile(m.filePath, []byte(text), 0o644); err != nil {
		m.message = fmt.Sprintf("Error saving: %v", err)
		return
	}
	m.message = fmt.Sprintf("Saved %s", m.filePath)
}
