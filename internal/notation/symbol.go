// Package notation transcribes a step grid into per-bar symbol sequences:
// chords and rests with idiomatic durations, dots and beam groupings. It
// produces structure only; staff layout belongs to the renderer.
package notation

import (
	"fmt"
	"strings"

	"github.com/icco/beatscribe/internal/pattern"
)

// Symbol is one notated event: a chord of percussion keys or a rest.
// All duration arithmetic stays in exact step counts; Denom is the
// renderer-facing duration code.
type Symbol struct {
	Keys      []pattern.InstrumentID // sounding instruments, catalogue order; empty = rest
	GhostKeys []int                  // indices into Keys played as ghost notes
	Denom     int                    // 4, 8, 16 or 32
	Dotted    bool                   // never set on rests
	Steps     int                    // length in grid steps (1.5x base when dotted)
	Start     int                    // step offset within the bar
}

// IsRest reports whether the symbol sounds nothing.
func (s Symbol) IsRest() bool { return len(s.Keys) == 0 }

// String renders a compact text form, e.g. "hihat+snare(g) 8." or "rest 4".
func (s Symbol) String() string {
	dur := fmt.Sprintf("%d", s.Denom)
	if s.Dotted {
		dur += "."
	}
	if s.IsRest() {
		return "rest " + dur
	}
	ghost := make(map[int]bool, len(s.GhostKeys))
	for _, i := range s.GhostKeys {
		ghost[i] = true
	}
	parts := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		parts[i] = string(k)
		if ghost[i] {
			parts[i] += "(g)"
		}
	}
	return strings.Join(parts, "+") + " " + dur
}

// Bar is the transcription of one bar: its ordered symbols plus beam-group
// buckets (symbol indices per group; rests and unbeamable durations are
// excluded).
type Bar struct {
	Index      int
	Symbols    []Symbol
	BeamGroups [][]int
}
