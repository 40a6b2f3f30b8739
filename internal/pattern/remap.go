package pattern

import "math"

// Remap rescales the grid from oldSPB to newSPB steps per bar while keeping
// the musical timing of existing hits: each non-Off cell at local step s
// within its bar moves to round(s * newSPB / oldSPB), clamped into the bar.
// When two source cells land on the same destination the higher-ranked state
// wins (On over Ghost over Off). The operation never fails; out-of-range
// writes are impossible by construction.
func Remap(g *Grid, oldSPB, newSPB, bars int) *Grid {
	if oldSPB < 1 {
		oldSPB = 1
	}
	if newSPB < 1 {
		newSPB = 1
	}
	if bars < 1 {
		bars = 1
	}
	out := NewGrid(bars * newSPB)
	for id, row := range g.rows {
		dst, ok := out.rows[id]
		if !ok {
			continue
		}
		for idx, c := range row {
			if c == Off {
				continue
			}
			bar := idx / oldSPB
			if bar >= bars {
				break
			}
			local := idx % oldSPB
			newLocal := int(math.Round(float64(local) * float64(newSPB) / float64(oldSPB)))
			if newLocal < 0 {
				newLocal = 0
			}
			if newLocal > newSPB-1 {
				newLocal = newSPB - 1
			}
			target := bar*newSPB + newLocal
			if rank(c) > rank(dst[target]) {
				dst[target] = c
			}
		}
	}
	return out
}
