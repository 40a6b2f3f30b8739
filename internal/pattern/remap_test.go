package pattern

import "testing"

func TestRemapRoundTripOnBeatHits(t *testing.T) {
	// Hits on every quarter (every 4th sixteenth) survive 16 -> 8 -> 16.
	g := NewGrid(16)
	for step := 0; step < 16; step += 4 {
		g.Set(Kick, step, On)
	}

	down := Remap(g, 16, 8, 1)
	up := Remap(down, 8, 16, 1)

	if up.Columns() != 16 {
		t.Fatalf("columns = %d, want 16", up.Columns())
	}
	for step := 0; step < 16; step++ {
		want := Off
		if step%4 == 0 {
			want = On
		}
		if got := up.Cell(Kick, step); got != want {
			t.Errorf("step %d: got %v, want %v", step, got, want)
		}
	}
}

func TestRemapCollisionPrecedence(t *testing.T) {
	// At 16 -> 8, local steps 0 and 1 both round to new local 0 and 1 is
	// rounded up: steps 1 and 2 land on new step 1. On must win over Ghost.
	g := NewGrid(16)
	g.Set(Snare, 1, Ghost)
	g.Set(Snare, 2, On)

	down := Remap(g, 16, 8, 1)
	if got := down.Cell(Snare, 1); got != On {
		t.Errorf("collision: got %v, want On", got)
	}
}

func TestRemapOffGridNeverPanicsAndKeepsShape(t *testing.T) {
	g := NewGrid(32)
	for step := 0; step < 32; step++ {
		if step%3 == 0 {
			g.Set(HiHat, step, On)
		}
	}
	out := Remap(g, 16, 8, 2)
	if out.Columns() != 16 {
		t.Errorf("columns = %d, want 16", out.Columns())
	}

	// Degenerate inputs coerce instead of failing.
	out = Remap(g, 0, 0, 0)
	if out.Columns() != 1 {
		t.Errorf("coerced columns = %d, want 1", out.Columns())
	}
}

func TestRemapClampsIntoBar(t *testing.T) {
	// Last step of the bar must stay inside the bar after rounding up.
	g := NewGrid(16)
	g.Set(Kick, 15, On)
	down := Remap(g, 16, 8, 1)
	if got := down.Cell(Kick, 7); got != On {
		t.Errorf("last step: got %v at new local 7, want On", got)
	}
}
