package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/icco/beatscribe/internal/pattern"
)

const (
	ticksPerQuarterNote = 960 // Standard MIDI resolution
	onVelocity          = 100
	percussionChannel   = 9 // GM channel 10
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <pattern file>",
	Short: "Export a pattern as a standard MIDI file",
	Long: `Export a pattern file as a Type-1 standard MIDI file: a tempo/meter
track plus one track per instrument on the GM percussion channel. Ghost
cells export at a velocity scaled by the instrument's ghost gain.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "pattern.mid", "output MIDI file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	grid, timing, _, err := loadOrNewPattern(args[0], 0, 0, 0, "")
	if err != nil {
		return err
	}
	sm, err := buildSMF(grid, timing)
	if err != nil {
		return err
	}
	if err := sm.WriteFile(exportOut); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	fmt.Printf("wrote %s\n", exportOut)
	return nil
}

func buildSMF(grid *pattern.Grid, timing pattern.Timing) (*smf.SMF, error) {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarterNote)

	ticksPerStep := uint32(ticksPerQuarterNote * 4 / timing.Resolution)

	// Track 0: tempo and meter.
	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(uint8(timing.TimeSig.Numerator), uint8(timing.TimeSig.Denominator)))
	track0.Add(0, smf.MetaTempo(float64(timing.BPM)))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("error adding tempo track: %w", err)
	}

	for _, in := range pattern.Instruments() {
		var track smf.Track
		var lastTick uint32

		for step := 0; step < grid.Columns(); step++ {
			cell := grid.Cell(in.ID, step)
			if cell == pattern.Off {
				continue
			}
			velocity := uint8(onVelocity)
			if cell == pattern.Ghost {
				v := int(onVelocity * pattern.GhostGainFor(in))
				if v < 1 {
					v = 1
				}
				velocity = uint8(v)
			}
			pos := uint32(step) * ticksPerStep
			track.Add(pos-lastTick, midi.NoteOn(percussionChannel, in.MIDINote, velocity))
			lastTick = pos
			track.Add(ticksPerStep-1, midi.NoteOff(percussionChannel, in.MIDINote))
			lastTick += ticksPerStep - 1
		}

		endTick := uint32(grid.Columns()) * ticksPerStep
		if lastTick < endTick {
			track.Close(endTick - lastTick)
		} else {
			track.Close(0)
		}
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("error adding track for %s: %w", in.ID, err)
		}
	}
	return sm, nil
}
