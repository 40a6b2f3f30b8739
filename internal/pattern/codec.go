package pattern

import (
	"fmt"
	"strings"
)

// Text form of a pattern, one header line plus one row per instrument:
//
//	bpm=120 meter=4/4 resolution=16 bars=2
//	hihat |x.x.x.x.x.x.x.x.|x.x.x.x.x.x.x.x.|
//	snare |....x..g....x...|....x..g....x...|
//	kick  |x.......x.......|x.........x.....|
//
// '.' is Off, 'x' is On, 'g' is Ghost. Bar separators '|' and spaces are
// cosmetic. Rows for instruments left out of the file stay empty.

// Format renders the grid and timing as pattern text, with a separator at
// every bar boundary.
func Format(g *Grid, t Timing, bars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bpm=%d meter=%d/%d resolution=%d bars=%d\n",
		t.BPM, t.TimeSig.Numerator, t.TimeSig.Denominator, t.Resolution, bars)
	spb := t.StepsPerBar()
	for _, in := range catalogue {
		fmt.Fprintf(&b, "%-6s|", string(in.ID))
		for step := 0; step < g.Columns(); step++ {
			switch g.Cell(in.ID, step) {
			case On:
				b.WriteByte('x')
			case Ghost:
				b.WriteByte('g')
			default:
				b.WriteByte('.')
			}
			if (step+1)%spb == 0 {
				b.WriteByte('|')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads pattern text. The grid shape comes from the header; rows
// longer than the declared shape are truncated, shorter rows are padded
// with Off.
func Parse(text string) (*Grid, Timing, int, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, Timing{}, 0, fmt.Errorf("empty pattern")
	}

	t := Timing{BPM: 120, Resolution: 16, TimeSig: TimeSignature{4, 4}}
	bars := 1
	for _, field := range strings.Fields(lines[0]) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return nil, Timing{}, 0, fmt.Errorf("bad header field %q", field)
		}
		var err error
		switch k {
		case "bpm":
			_, err = fmt.Sscanf(v, "%d", &t.BPM)
		case "meter":
			_, err = fmt.Sscanf(v, "%d/%d", &t.TimeSig.Numerator, &t.TimeSig.Denominator)
		case "resolution":
			_, err = fmt.Sscanf(v, "%d", &t.Resolution)
		case "bars":
			_, err = fmt.Sscanf(v, "%d", &bars)
		default:
			err = fmt.Errorf("unknown key")
		}
		if err != nil {
			return nil, Timing{}, 0, fmt.Errorf("bad header field %q: %w", field, err)
		}
	}
	t = t.Clamped()
	if bars < 1 {
		bars = 1
	}

	g := NewGrid(bars * t.StepsPerBar())
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, cells, ok := strings.Cut(line, "|")
		if !ok {
			name, cells, _ = strings.Cut(line, " ")
		}
		id := InstrumentID(strings.TrimSpace(name))
		if _, known := Lookup(id); !known {
			return nil, Timing{}, 0, fmt.Errorf("unknown instrument %q", name)
		}
		step := 0
		for _, ch := range cells {
			var c CellState
			switch ch {
			case '.':
				c = Off
			case 'x', 'X':
				c = On
			case 'g', 'G':
				c = Ghost
			case '|', ' ', '\t':
				continue
			default:
				return nil, Timing{}, 0, fmt.Errorf("bad cell %q in row %q", ch, name)
			}
			g.Set(id, step, c)
			step++
		}
	}
	return g, t, bars, nil
}
