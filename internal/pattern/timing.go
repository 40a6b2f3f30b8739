package pattern

import "math"

// Tempo and subdivision bounds.
const (
	MinBPM = 30
	MaxBPM = 300
)

// Resolutions lists the supported subdivision denominators.
var Resolutions = []int{4, 8, 16, 32}

// TimeSignature is a meter numerator/denominator pair.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// Timing bundles the parameters both the scheduler and the transcriber
// derive their step math from.
type Timing struct {
	BPM        int
	Resolution int // subdivision denominator: 4, 8, 16 or 32
	TimeSig    TimeSignature
}

// Clamped returns t with bpm, resolution and meter forced into valid
// range. Unknown resolutions snap to 16.
func (t Timing) Clamped() Timing {
	if t.BPM < MinBPM {
		t.BPM = MinBPM
	}
	if t.BPM > MaxBPM {
		t.BPM = MaxBPM
	}
	valid := false
	for _, r := range Resolutions {
		if t.Resolution == r {
			valid = true
		}
	}
	if !valid {
		t.Resolution = 16
	}
	if t.TimeSig.Numerator < 1 {
		t.TimeSig.Numerator = 4
	}
	if t.TimeSig.Denominator < 1 {
		t.TimeSig.Denominator = 4
	}
	return t
}

// SecondsPerStep returns the duration of one grid step.
func (t Timing) SecondsPerStep() float64 {
	return 60.0 / float64(t.BPM) * 4.0 / float64(t.Resolution)
}

// StepsPerBar returns round(numerator * resolution / denominator), coerced
// to at least 1. Rounding is the only lossy case: meters whose bar length is
// not a whole number of steps at this resolution round to the nearest step.
func (t Timing) StepsPerBar() int {
	spb := int(math.Round(float64(t.TimeSig.Numerator) * float64(t.Resolution) / float64(t.TimeSig.Denominator)))
	if spb < 1 {
		spb = 1
	}
	return spb
}
