package cmd

import (
	"fmt"
	"os"

	"github.com/icco/beatscribe/internal/pattern"
)

// loadOrNewPattern reads a pattern file when path is non-empty, otherwise
// builds a fresh empty grid from the flag values.
func loadOrNewPattern(path string, bpm, resolution, bars int, meter string) (*pattern.Grid, pattern.Timing, int, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, pattern.Timing{}, 0, fmt.Errorf("reading pattern: %w", err)
		}
		return pattern.Parse(string(data))
	}

	t := pattern.Timing{BPM: bpm, Resolution: resolution}
	if _, err := fmt.Sscanf(meter, "%d/%d", &t.TimeSig.Numerator, &t.TimeSig.Denominator); err != nil {
		return nil, pattern.Timing{}, 0, fmt.Errorf("bad meter %q: %w", meter, err)
	}
	t = t.Clamped()
	if bars < 1 {
		bars = 1
	}
	return pattern.NewGrid(bars * t.StepsPerBar()), t, bars, nil
}
