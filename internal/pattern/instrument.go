// Package pattern holds the step-grid data model: the instrument catalogue,
// cell states, the loop overlay, grid remapping and the timing math shared by
// playback and notation.
package pattern

// InstrumentID identifies one row of the grid.
type InstrumentID string

// Fixed catalogue ids.
const (
	Crash  InstrumentID = "crash"
	HiHat  InstrumentID = "hihat"
	Ride   InstrumentID = "ride"
	HiTom  InstrumentID = "hitom"
	Snare  InstrumentID = "snare"
	LowTom InstrumentID = "lowtom"
	Kick   InstrumentID = "kick"
)

// DefaultGhostGain is used for ghost hits on instruments without a tuned
// gain of their own. The per-instrument values below were tuned by ear.
const DefaultGhostGain = 0.1

// Instrument is an immutable row identity. Order in the catalogue is row
// order in the grid and stacking order in notation (top staff position
// first).
type Instrument struct {
	ID        InstrumentID
	Label     string
	MIDINote  uint8  // GM percussion note, used for SMF export
	Key       string // fixed notation pitch key, e.g. "g/5"
	Ghostable bool
	GhostGain float64 // 0 means DefaultGhostGain
}

var catalogue = []Instrument{
	{ID: Crash, Label: "Crash", MIDINote: 49, Key: "a/5"},
	{ID: HiHat, Label: "HiHat", MIDINote: 42, Key: "g/5", Ghostable: true, GhostGain: 0.6},
	{ID: Ride, Label: "Ride", MIDINote: 51, Key: "f/5"},
	{ID: HiTom, Label: "HiTom", MIDINote: 48, Key: "e/5", Ghostable: true},
	{ID: Snare, Label: "Snare", MIDINote: 38, Key: "c/5", Ghostable: true, GhostGain: 0.3},
	{ID: LowTom, Label: "LoTom", MIDINote: 45, Key: "a/4", Ghostable: true},
	{ID: Kick, Label: "Kick", MIDINote: 36, Key: "f/4", Ghostable: true, GhostGain: 0.15},
}

// Instruments returns the fixed ordered catalogue. The slice is a copy.
func Instruments() []Instrument {
	out := make([]Instrument, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the catalogue entry for id.
func Lookup(id InstrumentID) (Instrument, bool) {
	for _, in := range catalogue {
		if in.ID == id {
			return in, true
		}
	}
	return Instrument{}, false
}

// GhostGainFor returns the trigger gain for a ghost hit on inst.
func GhostGainFor(inst Instrument) float64 {
	if inst.GhostGain > 0 {
		return inst.GhostGain
	}
	return DefaultGhostGain
}
