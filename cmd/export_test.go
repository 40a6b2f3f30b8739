package cmd

import (
	"testing"

	"github.com/icco/beatscribe/internal/pattern"
)

func TestBuildSMFTrackLayout(t *testing.T) {
	tm := pattern.Timing{BPM: 100, Resolution: 16, TimeSig: pattern.TimeSignature{Numerator: 3, Denominator: 4}}
	g := pattern.NewGrid(tm.StepsPerBar())
	g.Set(pattern.Kick, 0, pattern.On)
	g.Set(pattern.Snare, 4, pattern.Ghost)

	sm, err := buildSMF(g, tm)
	if err != nil {
		t.Fatalf("buildSMF: %v", err)
	}
	// Tempo/meter track plus one per catalogue instrument.
	want := 1 + len(pattern.Instruments())
	if got := len(sm.Tracks); got != want {
		t.Fatalf("tracks = %d, want %d", got, want)
	}
}

func TestBuildSMFGhostVelocity(t *testing.T) {
	tm := pattern.Timing{BPM: 120, Resolution: 16, TimeSig: pattern.TimeSignature{Numerator: 4, Denominator: 4}}
	g := pattern.NewGrid(tm.StepsPerBar())
	g.Set(pattern.Snare, 0, pattern.On)
	g.Set(pattern.Snare, 8, pattern.Ghost)

	sm, err := buildSMF(g, tm)
	if err != nil {
		t.Fatalf("buildSMF: %v", err)
	}

	snare, _ := pattern.Lookup(pattern.Snare)
	var velocities []uint8
	for _, track := range sm.Tracks {
		for _, ev := range track {
			var ch, key, vel uint8
			if ev.Message.GetNoteOn(&ch, &key, &vel) && key == snare.MIDINote {
				velocities = append(velocities, vel)
			}
		}
	}
	if len(velocities) != 2 {
		t.Fatalf("snare note-ons = %d, want 2", len(velocities))
	}
	if velocities[0] != onVelocity {
		t.Errorf("full hit velocity = %d, want %d", velocities[0], onVelocity)
	}
	wantGhost := uint8(onVelocity * pattern.GhostGainFor(snare))
	if velocities[1] != wantGhost {
		t.Errorf("ghost velocity = %d, want %d", velocities[1], wantGhost)
	}
}
