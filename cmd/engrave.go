package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/icco/beatscribe/internal/notation"
)

var (
	engraveMergeNotes bool
	engraveMergeRests bool
	engraveDotted     bool
)

var engraveCmd = &cobra.Command{
	Use:   "engrave <pattern file>",
	Short: "Transcribe a pattern to notation symbols",
	Long: `Transcribe a pattern file and print its notation: one line per bar,
with beam groups bracketed. Durations print as denominators (4 = quarter,
8 = eighth, ...) with a trailing dot for dotted values.`,
	Args: cobra.ExactArgs(1),
	RunE: runEngrave,
}

func init() {
	engraveCmd.Flags().BoolVar(&engraveMergeNotes, "merge-notes", true, "merge note runs into longer durations")
	engraveCmd.Flags().BoolVar(&engraveMergeRests, "merge-rests", true, "merge rest runs into longer durations")
	engraveCmd.Flags().BoolVar(&engraveDotted, "dotted", true, "allow dotted note durations")
	rootCmd.AddCommand(engraveCmd)
}

func runEngrave(cmd *cobra.Command, args []string) error {
	grid, timing, _, err := loadOrNewPattern(args[0], 0, 0, 0, "")
	if err != nil {
		return err
	}
	opts := notation.Options{
		MergeNotes:  engraveMergeNotes,
		MergeRests:  engraveMergeRests,
		DottedNotes: engraveDotted,
	}
	for _, bar := range notation.Transcribe(grid, timing, opts) {
		fmt.Println(renderBar(bar))
	}
	return nil
}

// renderBar prints a bar's symbols in order, wrapping each beam group's
// symbols in brackets.
func renderBar(bar notation.Bar) string {
	// Map symbol index to the beam group that starts/ends there.
	opens := make(map[int]bool)
	closes := make(map[int]bool)
	for _, bucket := range bar.BeamGroups {
		if len(bucket) < 2 {
			continue // nothing to beam
		}
		opens[bucket[0]] = true
		closes[bucket[len(bucket)-1]] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "bar %d: ", bar.Index+1)
	for i, sym := range bar.Symbols {
		if i > 0 {
			b.WriteByte(' ')
		}
		if opens[i] {
			b.WriteByte('[')
		}
		b.WriteString(sym.String())
		if closes[i] {
			b.WriteByte(']')
		}
	}
	return b.String()
}
