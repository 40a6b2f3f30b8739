package pattern

import "testing"

func rowIndex(t *testing.T, id InstrumentID) int {
	t.Helper()
	for i, in := range Instruments() {
		if in.ID == id {
			return i
		}
	}
	t.Fatalf("no catalogue row for %q", id)
	return -1
}

func TestDerivedTilingTruncatesFinalRepeat(t *testing.T) {
	g := NewGrid(8)
	g.Set(Kick, 0, On)
	g.Set(Kick, 2, On)
	row := rowIndex(t, Kick)
	rule := &LoopRule{RowStart: row, RowEnd: row, Start: 0, Length: 3}

	d := ComputeDerived(g, rule)
	want := []CellState{On, Off, On, On, Off, On, On, Off}
	for i, w := range want {
		if got := d.Cell(Kick, i); got != w {
			t.Errorf("step %d: got %v, want %v", i, got, w)
		}
	}
}

func TestDerivedCopiesWhenRuleInvalid(t *testing.T) {
	g := NewGrid(8)
	g.Set(Snare, 1, On)

	for _, rule := range []*LoopRule{
		nil,
		{RowStart: 0, RowEnd: 1, Start: 0, Length: 1}, // below minimum length
		{RowStart: 2, RowEnd: 1, Start: 0, Length: 4}, // inverted rows
	} {
		d := ComputeDerived(g, rule)
		if d.Cell(Snare, 1) != On {
			t.Errorf("rule %+v: derived lost base cell", rule)
		}
		d.Set(Snare, 1, Off)
		if g.Cell(Snare, 1) != On {
			t.Errorf("rule %+v: derived aliases the base grid", rule)
		}
	}
}

func TestDerivedBlockLoopCoversRows(t *testing.T) {
	g := NewGrid(8)
	g.Set(HiHat, 0, On)
	g.Set(Snare, 1, Ghost)
	g.Set(Kick, 5, On) // outside any source slice but inside tiled span

	lo := rowIndex(t, HiHat)
	hi := rowIndex(t, Snare)
	d := ComputeDerived(g, &LoopRule{RowStart: lo, RowEnd: hi, Start: 0, Length: 2})

	for step := 0; step < 8; step += 2 {
		if d.Cell(HiHat, step) != On {
			t.Errorf("hihat step %d: want On", step)
		}
		if d.Cell(Snare, step+1) != Ghost {
			t.Errorf("snare step %d: want Ghost", step+1)
		}
	}
	// Kick row is outside [RowStart, RowEnd] and stays untouched.
	if d.Cell(Kick, 5) != On {
		t.Error("row outside the rule was modified")
	}
}

func TestBakeIdempotence(t *testing.T) {
	g := NewGrid(8)
	g.Set(Kick, 0, On)
	g.Set(Kick, 2, On)
	row := rowIndex(t, Kick)
	rule := &LoopRule{RowStart: row, RowEnd: row, Start: 0, Length: 3}

	derived := ComputeDerived(g, rule)
	baked := Bake(g, rule)
	again := Bake(baked, nil)

	for step := 0; step < 8; step++ {
		if baked.Cell(Kick, step) != derived.Cell(Kick, step) {
			t.Errorf("step %d: bake differs from derived", step)
		}
		if again.Cell(Kick, step) != baked.Cell(Kick, step) {
			t.Errorf("step %d: re-bake with no rule changed the grid", step)
		}
	}
}

func TestDerivedRuleStartBeyondGrid(t *testing.T) {
	g := NewGrid(4)
	g.Set(Kick, 3, On)
	d := ComputeDerived(g, &LoopRule{RowStart: 0, RowEnd: 6, Start: 10, Length: 2})
	if d.Cell(Kick, 3) != On {
		t.Error("out-of-range rule should leave the grid as-is")
	}
}
