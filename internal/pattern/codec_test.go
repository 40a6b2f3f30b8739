package pattern

import (
	"strings"
	"testing"
)

func TestFormatParseRoundTrip(t *testing.T) {
	tm := Timing{BPM: 132, Resolution: 16, TimeSig: TimeSignature{4, 4}}
	g := NewGrid(2 * tm.StepsPerBar())
	g.Set(Kick, 0, On)
	g.Set(Kick, 8, On)
	g.Set(Snare, 4, On)
	g.Set(Snare, 7, Ghost)
	g.Set(HiHat, 30, On)

	text := Format(g, tm, 2)
	g2, tm2, bars, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bars != 2 {
		t.Errorf("bars = %d, want 2", bars)
	}
	if tm2 != tm {
		t.Errorf("timing = %+v, want %+v", tm2, tm)
	}
	for _, in := range Instruments() {
		for step := 0; step < g.Columns(); step++ {
			if g.Cell(in.ID, step) != g2.Cell(in.ID, step) {
				t.Errorf("%s step %d: round trip mismatch", in.ID, step)
			}
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, text := range []string{
		"",
		"bpm=abc",
		"bpm=120 meter=4/4 resolution=16 bars=1\ncowbell|x...|",
		"bpm=120 meter=4/4 resolution=16 bars=1\nkick|x?..|",
	} {
		if _, _, _, err := Parse(text); err == nil {
			t.Errorf("Parse(%q): expected error", text)
		}
	}
}

func TestParsePadsShortRows(t *testing.T) {
	g, tm, _, err := Parse("bpm=120 meter=4/4 resolution=16 bars=1\nkick|x.x.|")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Columns() != tm.StepsPerBar() {
		t.Fatalf("columns = %d, want %d", g.Columns(), tm.StepsPerBar())
	}
	if g.Cell(Kick, 0) != On || g.Cell(Kick, 2) != On {
		t.Error("short row lost cells")
	}
	if g.Cell(Kick, 15) != Off {
		t.Error("padding should be Off")
	}
}

func TestParseGhostDegradesOnNonGhostable(t *testing.T) {
	g, _, _, err := Parse("bpm=120 meter=4/4 resolution=16 bars=1\nride|g...|")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := g.Cell(Ride, 0); got != On {
		t.Errorf("ride ghost cell: got %v, want On", got)
	}
}

func TestFormatBarSeparators(t *testing.T) {
	tm := Timing{BPM: 120, Resolution: 8, TimeSig: TimeSignature{4, 4}}
	g := NewGrid(2 * tm.StepsPerBar())
	line := ""
	for _, l := range strings.Split(Format(g, tm, 2), "\n") {
		if strings.HasPrefix(l, "kick") {
			line = l
		}
	}
	if strings.Count(line, "|") != 3 {
		t.Errorf("kick row %q: want leading plus one separator per bar", line)
	}
}
