package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/icco/beatscribe/internal/audio"
	"github.com/icco/beatscribe/internal/playback"
	"github.com/icco/beatscribe/internal/tui"
)

var (
	playBPM        int
	playResolution int
	playBars       int
	playMeter      string
	playSamples    string
)

var playCmd = &cobra.Command{
	Use:   "play [pattern file]",
	Short: "Open the interactive drum grid with audio playback",
	Long: `Open the step-grid editor. Cells toggle between off, on and ghost;
a selection can be committed as a repeating loop and baked into the grid.
Playback runs through a look-ahead scheduler against the audio clock, and
the notation pane transcribes the grid live.

With no sample directory the built-in synthesized kit is used. A directory
given with --samples is scanned for <instrument>.wav/.ogg files, plus
optional <instrument>.ghost variants.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().IntVar(&playBPM, "bpm", 120, "tempo in beats per minute")
	playCmd.Flags().IntVar(&playResolution, "resolution", 16, "subdivision denominator (4, 8, 16 or 32)")
	playCmd.Flags().IntVar(&playBars, "bars", 2, "number of bars")
	playCmd.Flags().StringVar(&playMeter, "meter", "4/4", "time signature")
	playCmd.Flags().StringVar(&playSamples, "samples", "", "directory of drum samples")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	grid, timing, bars, err := loadOrNewPattern(path, playBPM, playResolution, playBars, playMeter)
	if err != nil {
		return err
	}

	bank := audio.SynthBank()
	if playSamples != "" {
		bank, err = audio.LoadDirectory(playSamples)
		if err != nil {
			return err
		}
	}
	engine, err := audio.NewEngine(bank, log.Default())
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}
	defer engine.Close()

	sched := playback.New(engine, engine, playback.WithLogger(log.Default()))
	defer sched.Stop()

	m := tui.NewModel(grid, timing, bars, sched, engine, path)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetProgram(p)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
