// Package playback schedules grid steps against an audio clock. A recurring
// coarse timer only decides *when to schedule*; the precise trigger times
// come from step arithmetic on the audio clock, so timer jitter never reaches
// the audio output.
package playback

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/icco/beatscribe/internal/pattern"
)

var (
	// ErrOutputNotReady is returned by Play when the audio output context
	// cannot be brought into a running state.
	ErrOutputNotReady = errors.New("playback: output not ready")

	// ErrNoColumns is returned by Play for an empty pattern. Starting with
	// zero columns is rejected rather than treated as a silent success, so
	// the caller can tell the transport never engaged.
	ErrNoColumns = errors.New("playback: pattern has no columns")
)

// Clock reads the current time in seconds on the output's own timeline.
type Clock interface {
	Now() float64
}

// TriggerEvent asks the sink to start one voice at an absolute clock time.
type TriggerEvent struct {
	Instrument pattern.Instrument
	When       float64 // absolute seconds on the sink's clock
	Gain       float64
	Ghost      bool // ghost hits may select a dedicated ghost sample
}

// Voice is one in-flight (or pending) triggered sound. Stopping a voice that
// has not started yet discards it.
type Voice interface {
	Stop() error
	Active() bool
}

// TriggerSink starts voices. A sink with no sample for the instrument
// returns ErrNoSample; the scheduler skips the trigger and keeps going.
type TriggerSink interface {
	Trigger(TriggerEvent) (Voice, error)
}

// ErrNoSample reports a trigger for an instrument with no loaded buffer.
var ErrNoSample = errors.New("playback: no sample for instrument")

// Readier is implemented by sinks whose output context needs to be brought
// up before scheduling can start.
type Readier interface {
	Ready(context.Context) error
}

// Snapshot is the read-only state a scheduler tick works from. Providers
// must hand out copies; the scheduler never mutates it but also never caches
// it across ticks.
type Snapshot struct {
	Grid        *pattern.Grid
	Instruments []pattern.Instrument
	Columns     int
	Timing      pattern.Timing
}

// SnapshotFunc pulls a fresh snapshot. Called on every tick so live edits,
// tempo changes and grid reshapes are picked up without restarting.
type SnapshotFunc func() Snapshot

const (
	defaultTickInterval = 25 * time.Millisecond
	defaultLookAhead    = 0.120 // seconds of events scheduled ahead of now
	startMargin         = 0.050 // keeps the first step out of the past
)

// Scheduler owns transport state for one pattern. Multiple independent
// schedulers can run side by side; nothing here is process-global.
type Scheduler struct {
	sink   TriggerSink
	clock  Clock
	logger *log.Logger

	tickInterval time.Duration
	lookAhead    float64

	mu      sync.Mutex
	playing bool
	step    int
	next    float64 // absolute clock time of the next unscheduled step
	voices  []Voice
	onStep  func(step int)
	done    chan struct{}
	snap    SnapshotFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger routes diagnostics (voice-stop failures, skipped samples) to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithTickInterval overrides the look-ahead timer period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithLookAhead overrides the scheduling horizon in seconds.
func WithLookAhead(sec float64) Option {
	return func(s *Scheduler) {
		if sec > 0 {
			s.lookAhead = sec
		}
	}
}

// New creates a stopped scheduler triggering into sink, timed by clock.
func New(sink TriggerSink, clock Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:         sink,
		clock:        clock,
		logger:       log.New(io.Discard),
		tickInterval: defaultTickInterval,
		lookAhead:    defaultLookAhead,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnStep registers the step-advance observer. It fires once per scheduled
// step, in non-decreasing step order, from the scheduler's timer goroutine.
func (s *Scheduler) OnStep(fn func(step int)) {
	s.mu.Lock()
	s.onStep = fn
	s.mu.Unlock()
}

// Playing reports the transport state.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Step returns the next unscheduled step index.
func (s *Scheduler) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Play starts the transport from startStep (clamped into range). It waits
// for the sink's output context to come up first; on failure no timer is
// left running. A second Play while playing is a no-op.
func (s *Scheduler) Play(ctx context.Context, snap SnapshotFunc, startStep int) error {
	if snap == nil {
		return ErrNoColumns
	}
	if r, ok := s.sink.(Readier); ok {
		if err := r.Ready(ctx); err != nil {
			return errors.Join(ErrOutputNotReady, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return nil
	}
	sn := snap()
	if sn.Columns <= 0 {
		return ErrNoColumns
	}
	if startStep < 0 {
		startStep = 0
	}
	if startStep > sn.Columns-1 {
		startStep = sn.Columns - 1
	}
	s.snap = snap
	s.step = startStep
	s.next = s.clock.Now() + startMargin
	s.playing = true
	s.done = make(chan struct{})
	go s.run(s.done)
	s.logger.Debug("transport started", "step", startStep, "bpm", sn.Timing.BPM)
	return nil
}

func (s *Scheduler) run(done chan struct{}) {
	t := time.NewTicker(s.tickInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick schedules every step whose time falls inside the look-ahead horizon.
// Redundant calls are cheap no-ops, so the timer firing late and catching up
// with a burst of ticks is harmless.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	sn := s.snap()
	now := s.clock.Now()
	if sn.Columns <= 0 {
		// Grid emptied mid-play: idle until it grows back.
		s.next = now + s.lookAhead
		s.mu.Unlock()
		return
	}
	if s.step >= sn.Columns {
		s.step %= sn.Columns
	}
	var scheduled []int
	for s.next < now+s.lookAhead {
		s.scheduleStep(sn, s.step, s.next)
		scheduled = append(scheduled, s.step)
		s.next += sn.Timing.SecondsPerStep()
		s.step = (s.step + 1) % sn.Columns
	}
	s.pruneVoices()
	fn := s.onStep
	s.mu.Unlock()

	// Observers run outside the lock: they may call back into the
	// scheduler or block on the UI loop.
	if fn != nil {
		for _, step := range scheduled {
			fn(step)
		}
	}
}

// scheduleStep triggers every sounding cell of one step. Gain is 1 for On
// and the instrument's ghost gain (DefaultGhostGain fallback) for Ghost.
func (s *Scheduler) scheduleStep(sn Snapshot, step int, at float64) {
	for _, inst := range sn.Instruments {
		cell := sn.Grid.Cell(inst.ID, step)
		if cell == pattern.Off {
			continue
		}
		ev := TriggerEvent{Instrument: inst, When: at, Gain: 1}
		if cell == pattern.Ghost {
			ev.Gain = pattern.GhostGainFor(inst)
			ev.Ghost = true
		}
		v, err := s.sink.Trigger(ev)
		if err != nil {
			if !errors.Is(err, ErrNoSample) {
				s.logger.Warn("trigger failed", "instrument", inst.ID, "err", err)
			}
			continue
		}
		s.voices = append(s.voices, v)
	}
}

func (s *Scheduler) pruneVoices() {
	kept := s.voices[:0]
	for _, v := range s.voices {
		if v.Active() {
			kept = append(kept, v)
		}
	}
	s.voices = kept
}

// Stop cancels the timer, force-stops every in-flight and pending voice and
// rewinds to step zero. Individual voice-stop failures are logged and
// swallowed; they never abort the stop. Stopping a stopped scheduler is a
// no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.playing = false
	close(s.done)
	for _, v := range s.voices {
		if err := v.Stop(); err != nil {
			s.logger.Warn("voice stop failed", "err", err)
		}
	}
	s.voices = nil
	s.step = 0
	s.next = 0
	s.logger.Debug("transport stopped")
}
