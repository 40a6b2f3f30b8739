package cmd

import (
	"strings"
	"testing"

	"github.com/icco/beatscribe/internal/notation"
	"github.com/icco/beatscribe/internal/pattern"
)

func TestRenderBarBracketsBeamGroups(t *testing.T) {
	// Eighth-note hats across one 4/4 bar: four beam groups of two.
	tm := pattern.Timing{BPM: 120, Resolution: 16, TimeSig: pattern.TimeSignature{Numerator: 4, Denominator: 4}}
	g := pattern.NewGrid(tm.StepsPerBar())
	for step := 0; step < g.Columns(); step += 2 {
		g.Set(pattern.HiHat, step, pattern.On)
	}

	bars := notation.Transcribe(g, tm, notation.DefaultOptions())
	out := renderBar(bars[0])

	if !strings.HasPrefix(out, "bar 1: ") {
		t.Errorf("output %q missing bar prefix", out)
	}
	if got := strings.Count(out, "["); got != 4 {
		t.Errorf("output %q has %d open brackets, want 4", out, got)
	}
	if strings.Count(out, "[") != strings.Count(out, "]") {
		t.Errorf("unbalanced brackets in %q", out)
	}
}

func TestRenderBarNoBracketsForSingletons(t *testing.T) {
	// A single quarter note and rests: nothing beamable.
	tm := pattern.Timing{BPM: 120, Resolution: 16, TimeSig: pattern.TimeSignature{Numerator: 4, Denominator: 4}}
	g := pattern.NewGrid(tm.StepsPerBar())
	g.Set(pattern.Snare, 0, pattern.On)

	bars := notation.Transcribe(g, tm, notation.DefaultOptions())
	out := renderBar(bars[0])
	if strings.ContainsAny(out, "[]") {
		t.Errorf("output %q should not bracket singletons", out)
	}
	if !strings.Contains(out, "snare 4") {
		t.Errorf("output %q missing the quarter note", out)
	}
}
