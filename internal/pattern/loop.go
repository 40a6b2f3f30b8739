package pattern

// LoopRule tiles the slice [Start, Start+Length) of every instrument row in
// [RowStart, RowEnd] across the rest of the timeline. Rows are indexed in
// catalogue order. A rule with Length < 2 has no effect.
type LoopRule struct {
	RowStart int
	RowEnd   int
	Start    int
	Length   int
}

// Valid reports whether the rule can have any effect.
func (r LoopRule) Valid() bool {
	return r.Length >= 2 && r.RowStart <= r.RowEnd && r.Start >= 0
}

// Covers reports whether the source span of the rule includes the cell at
// catalogue row and step index.
func (r LoopRule) Covers(row, step int) bool {
	return row >= r.RowStart && row <= r.RowEnd && step >= r.Start && step < r.Start+r.Length
}

// ComputeDerived returns the derived grid for base under rule: the source
// slice repeats at stride Length, overwriting every later cell up to the
// grid end. The final repeat is truncated if it does not fit. A nil or
// invalid rule yields a plain copy, never an alias.
func ComputeDerived(base *Grid, rule *LoopRule) *Grid {
	out := base.Clone()
	if rule == nil || !rule.Valid() {
		return out
	}
	cols := out.cols
	if rule.Start >= cols {
		return out
	}
	length := rule.Length
	if rule.Start+length > cols {
		length = cols - rule.Start
	}
	order := catalogue
	lo, hi := rule.RowStart, rule.RowEnd
	if lo < 0 {
		lo = 0
	}
	if hi >= len(order) {
		hi = len(order) - 1
	}
	for row := lo; row <= hi; row++ {
		cells := out.rows[order[row].ID]
		src := make([]CellState, length)
		copy(src, cells[rule.Start:rule.Start+length])
		for i := 0; rule.Start+length+i < cols; i++ {
			cells[rule.Start+length+i] = src[i%length]
		}
	}
	return out
}

// Bake materializes the rule into a new base grid. Callers must clear the
// rule (and any active selection) afterwards; baking the result again with
// no rule is a no-op copy.
func Bake(base *Grid, rule *LoopRule) *Grid {
	return ComputeDerived(base, rule)
}
