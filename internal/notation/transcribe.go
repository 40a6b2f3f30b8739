package notation

import (
	"github.com/icco/beatscribe/internal/pattern"
)

// Options are the user toggles for the transcriber.
type Options struct {
	MergeRests  bool
	MergeNotes  bool
	DottedNotes bool
}

// DefaultOptions enables every merge path.
func DefaultOptions() Options {
	return Options{MergeRests: true, MergeNotes: true, DottedNotes: true}
}

// durationRule is one candidate in the merge ladder: a renderer duration
// code and its exact step count at the current resolution. Rules are
// evaluated in descending-duration order and the first legal one wins.
type durationRule struct {
	denom int
	steps int
}

// ladder builds the candidate table for a resolution. The ladder tops out
// at the quarter note; longer values are written as successive symbols.
func ladder(resolution int) []durationRule {
	var rules []durationRule
	for _, d := range []int{4, 8, 16, 32} {
		if d > resolution {
			break
		}
		rules = append(rules, durationRule{denom: d, steps: resolution / d})
	}
	return rules
}

// beamGroupsPerBar returns how many beam windows a bar divides into:
// dotted-quarter groups for compound meters (x/8 with a numerator that is a
// multiple of 3 above 3), otherwise one group per numerator beat.
func beamGroupsPerBar(ts pattern.TimeSignature) int {
	if ts.Denominator == 8 && ts.Numerator > 3 && ts.Numerator%3 == 0 {
		return ts.Numerator / 3
	}
	if ts.Numerator < 1 {
		return 1
	}
	return ts.Numerator
}

// barScan carries the per-bar state for one transcription pass.
type barScan struct {
	grid     *pattern.Grid
	order    []pattern.Instrument
	barStart int
	spb      int
	groups   int
}

// groupOf maps a local step to its beam-group index. Group boundaries sit
// at i*spb/groups so uneven bars distribute the remainder across windows.
func (b *barScan) groupOf(local int) int {
	if local < 0 {
		return 0
	}
	if local >= b.spb {
		local = b.spb - 1
	}
	return local * b.groups / b.spb
}

// sameGroup reports whether local steps from..to (inclusive) share a window.
func (b *barScan) sameGroup(from, to int) bool {
	return b.groupOf(from) == b.groupOf(to)
}

// sounding collects the chord at a local step, in catalogue order.
func (b *barScan) sounding(local int) (keys []pattern.InstrumentID, ghosts []int) {
	for _, in := range b.order {
		switch b.grid.Cell(in.ID, b.barStart+local) {
		case pattern.On:
			keys = append(keys, in.ID)
		case pattern.Ghost:
			keys = append(keys, in.ID)
			ghosts = append(ghosts, len(keys)-1)
		}
	}
	return keys, ghosts
}

// silent reports whether no instrument sounds on local steps [from, to).
// Steps beyond the grid read as Off, so a short final bar counts as silent.
func (b *barScan) silent(from, to int) bool {
	for s := from; s < to; s++ {
		for _, in := range b.order {
			if b.grid.Cell(in.ID, b.barStart+s) != pattern.Off {
				return false
			}
		}
	}
	return true
}

// Transcribe converts the derived grid into per-bar symbol sequences. The
// grid is read through clamped accessors, so a snapshot whose shape changed
// mid-call degrades to rests instead of failing.
func Transcribe(grid *pattern.Grid, timing pattern.Timing, opts Options) []Bar {
	timing = timing.Clamped()
	spb := timing.StepsPerBar()
	cols := grid.Columns()
	if cols <= 0 {
		return nil
	}
	barCount := (cols + spb - 1) / spb
	rules := ladder(timing.Resolution)
	order := pattern.Instruments()

	bars := make([]Bar, 0, barCount)
	for bi := 0; bi < barCount; bi++ {
		scan := &barScan{
			grid:     grid,
			order:    order,
			barStart: bi * spb,
			spb:      spb,
			groups:   beamGroupsPerBar(timing.TimeSig),
		}
		bar := Bar{Index: bi}
		s := 0
		for s < spb {
			keys, ghosts := scan.sounding(s)
			var sym Symbol
			if len(keys) > 0 {
				sym = mergeNote(scan, rules, opts, s)
				sym.Keys = keys
				sym.GhostKeys = ghosts
			} else {
				sym = mergeRest(scan, rules, opts, s)
			}
			sym.Start = s
			bar.Symbols = append(bar.Symbols, sym)
			s += sym.Steps
		}
		bar.BeamGroups = beamBuckets(scan, bar.Symbols)
		bars = append(bars, bar)
	}
	return bars
}

// mergeNote picks the longest legal duration for a hit at local step s:
// the run must start aligned to the candidate's natural grid, stay inside
// one beam group, and be silent after the attack. With dotted notes allowed
// the run extends by exactly half its own length under the same rules. The
// one-step rule at the bottom of the ladder always matches.
func mergeNote(b *barScan, rules []durationRule, opts Options, s int) Symbol {
	for _, r := range rules {
		l := r.steps
		if l > 1 && !opts.MergeNotes {
			continue
		}
		if s%l != 0 || s+l > b.spb {
			continue
		}
		if !b.sameGroup(s, s+l-1) {
			continue
		}
		if !b.silent(s+1, s+l) {
			continue
		}
		if opts.DottedNotes && l >= 2 {
			ext := l / 2
			if s+l+ext <= b.spb && b.sameGroup(s, s+l+ext-1) && b.silent(s+l, s+l+ext) {
				return Symbol{Denom: r.denom, Dotted: true, Steps: l + ext}
			}
		}
		return Symbol{Denom: r.denom, Steps: l}
	}
	// Unreachable: the one-step rule matches any aligned position.
	return Symbol{Denom: rules[len(rules)-1].denom, Steps: 1}
}

// mergeRest is the same ladder restricted to fully silent runs. Rests are
// never dotted and degrade to a single base-resolution rest.
func mergeRest(b *barScan, rules []durationRule, opts Options, s int) Symbol {
	if opts.MergeRests {
		for _, r := range rules {
			l := r.steps
			if s%l != 0 || s+l > b.spb {
				continue
			}
			if !b.sameGroup(s, s+l-1) {
				continue
			}
			if !b.silent(s, s+l) {
				continue
			}
			return Symbol{Denom: r.denom, Steps: l}
		}
	}
	return Symbol{Denom: rules[len(rules)-1].denom, Steps: 1}
}

// beamBuckets groups beamable note symbols by the beam window their start
// step falls in. Quarters carry no flag and are left out, as are rests; a
// beam never spans two windows.
func beamBuckets(b *barScan, symbols []Symbol) [][]int {
	buckets := make([][]int, b.groups)
	for i, sym := range symbols {
		if sym.IsRest() || sym.Denom < 8 {
			continue
		}
		g := b.groupOf(sym.Start)
		buckets[g] = append(buckets[g], i)
	}
	out := make([][]int, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket) > 0 {
			out = append(out, bucket)
		}
	}
	return out
}
