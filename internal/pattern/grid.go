package pattern

// CellState is the state of one grid cell.
type CellState uint8

const (
	Off CellState = iota
	On
	Ghost
)

// rank orders states for collision resolution during remap: On wins over
// Ghost, Ghost wins over Off.
func rank(c CellState) int {
	switch c {
	case On:
		return 2
	case Ghost:
		return 1
	default:
		return 0
	}
}

// Grid maps each catalogue instrument to an equal-length row of cells.
type Grid struct {
	rows map[InstrumentID][]CellState
	cols int
}

// NewGrid creates an all-Off grid with one row per catalogue instrument.
func NewGrid(cols int) *Grid {
	if cols < 0 {
		cols = 0
	}
	g := &Grid{rows: make(map[InstrumentID][]CellState), cols: cols}
	for _, in := range catalogue {
		g.rows[in.ID] = make([]CellState, cols)
	}
	return g
}

// Columns returns the current row length.
func (g *Grid) Columns() int { return g.cols }

// Cell returns the state at (id, step). Out-of-range steps and unknown
// instruments read as Off; the grid can resize while a scheduler tick is in
// flight, so reads clamp instead of panicking.
func (g *Grid) Cell(id InstrumentID, step int) CellState {
	row, ok := g.rows[id]
	if !ok || step < 0 || step >= len(row) {
		return Off
	}
	return row[step]
}

// Set writes a state, ignoring out-of-range steps. Ghost on a non-ghostable
// instrument degrades to On.
func (g *Grid) Set(id InstrumentID, step int, c CellState) {
	row, ok := g.rows[id]
	if !ok || step < 0 || step >= len(row) {
		return
	}
	if c == Ghost {
		if in, ok := Lookup(id); !ok || !in.Ghostable {
			c = On
		}
	}
	row[step] = c
}

// Toggle flips a cell between Off and On. A Ghost cell toggles to Off.
func (g *Grid) Toggle(id InstrumentID, step int) {
	if g.Cell(id, step) == Off {
		g.Set(id, step, On)
	} else {
		g.Set(id, step, Off)
	}
}

// ToggleGhost flips a sounding cell between On and Ghost. It is a no-op on
// Off cells and on instruments without ghost support.
func (g *Grid) ToggleGhost(id InstrumentID, step int) {
	in, ok := Lookup(id)
	if !ok || !in.Ghostable {
		return
	}
	switch g.Cell(id, step) {
	case On:
		g.Set(id, step, Ghost)
	case Ghost:
		g.Set(id, step, On)
	}
}

// Clone returns a deep copy. Mutating the copy never touches the original.
func (g *Grid) Clone() *Grid {
	out := &Grid{rows: make(map[InstrumentID][]CellState, len(g.rows)), cols: g.cols}
	for id, row := range g.rows {
		cp := make([]CellState, len(row))
		copy(cp, row)
		out.rows[id] = cp
	}
	return out
}

// Resize returns a copy with the new column count, preserving cells by
// index: extra columns are Off, surplus columns are dropped.
func (g *Grid) Resize(cols int) *Grid {
	if cols < 0 {
		cols = 0
	}
	out := &Grid{rows: make(map[InstrumentID][]CellState, len(g.rows)), cols: cols}
	for id, row := range g.rows {
		cp := make([]CellState, cols)
		copy(cp, row)
		out.rows[id] = cp
	}
	return out
}

// Empty reports whether every cell is Off.
func (g *Grid) Empty() bool {
	for _, row := range g.rows {
		for _, c := range row {
			if c != Off {
				return false
			}
		}
	}
	return true
}
