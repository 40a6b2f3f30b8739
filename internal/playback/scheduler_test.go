package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/icco/beatscribe/internal/pattern"
)

type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d float64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

type fakeVoice struct {
	stopped  bool
	stopErr  error
	finished bool
}

func (v *fakeVoice) Stop() error {
	v.stopped = true
	return v.stopErr
}

func (v *fakeVoice) Active() bool { return !v.stopped && !v.finished }

type recordingSink struct {
	mu      sync.Mutex
	events  []TriggerEvent
	voices  []*fakeVoice
	missing map[pattern.InstrumentID]bool
	ready   error
}

func (s *recordingSink) Ready(context.Context) error { return s.ready }

func (s *recordingSink) Trigger(ev TriggerEvent) (Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[ev.Instrument.ID] {
		return nil, ErrNoSample
	}
	s.events = append(s.events, ev)
	v := &fakeVoice{}
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *recordingSink) recorded() []TriggerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TriggerEvent, len(s.events))
	copy(out, s.events)
	return out
}

func testSnapshot(g *pattern.Grid, bpm int) SnapshotFunc {
	return func() Snapshot {
		return Snapshot{
			Grid:        g.Clone(),
			Instruments: pattern.Instruments(),
			Columns:     g.Columns(),
			Timing:      pattern.Timing{BPM: bpm, Resolution: 16, TimeSig: pattern.TimeSignature{Numerator: 4, Denominator: 4}},
		}
	}
}

// startStopped puts the scheduler into the playing state without letting the
// real timer goroutine race the test; ticks are driven manually.
func startStopped(t *testing.T, s *Scheduler, snap SnapshotFunc, startStep int) {
	t.Helper()
	if err := s.Play(context.Background(), snap, startStep); err != nil {
		t.Fatalf("Play: %v", err)
	}
}

func TestSchedulerNoDrift(t *testing.T) {
	g := pattern.NewGrid(16)
	g.Set(pattern.Kick, 0, pattern.On)
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := New(sink, clock, WithTickInterval(time.Hour))

	startStopped(t, s, testSnapshot(g, 120), 0)
	defer s.Stop()

	sps := 60.0 / 120.0 / 4.0 // 0.125s per sixteenth at 120 bpm
	// Deliberately jittery tick cadence: the scheduled times must not care.
	for i := 0; i < 1000; i++ {
		s.Tick()
		if i%3 == 0 {
			clock.advance(0.031)
		} else {
			clock.advance(0.022)
		}
	}

	events := sink.recorded()
	if len(events) < 10 {
		t.Fatalf("scheduled only %d events", len(events))
	}
	for k, ev := range events {
		want := startMargin + float64(k*16)*sps // kick fires once per pattern pass
		if math.Abs(ev.When-want) > 1e-9 {
			t.Fatalf("event %d scheduled at %.9f, want %.9f", k, ev.When, want)
		}
	}
}

func TestStopClearsState(t *testing.T) {
	g := pattern.NewGrid(8)
	for step := 0; step < 8; step++ {
		g.Set(pattern.HiHat, step, pattern.On)
	}
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := New(sink, clock, WithTickInterval(time.Hour))

	startStopped(t, s, testSnapshot(g, 120), 3)
	s.Tick()
	if len(sink.recorded()) == 0 {
		t.Fatal("expected scheduled events before stop")
	}

	s.Stop()
	if s.Step() != 0 {
		t.Errorf("step after stop = %d, want 0", s.Step())
	}
	if s.Playing() {
		t.Error("still playing after stop")
	}
	s.mu.Lock()
	if len(s.voices) != 0 {
		t.Errorf("active-voice set has %d entries after stop", len(s.voices))
	}
	s.mu.Unlock()
	for _, v := range sink.voices {
		if !v.stopped {
			t.Error("in-flight voice not force-stopped")
		}
	}

	// Stopping again is a no-op.
	s.Stop()
}

func TestStopSwallowsVoiceFailures(t *testing.T) {
	g := pattern.NewGrid(4)
	g.Set(pattern.Kick, 0, pattern.On)
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := New(sink, clock, WithTickInterval(time.Hour))

	startStopped(t, s, testSnapshot(g, 120), 0)
	s.Tick()
	sink.mu.Lock()
	for _, v := range sink.voices {
		v.stopErr = errors.New("device gone")
	}
	sink.mu.Unlock()

	s.Stop() // must not panic or abort
	if s.Playing() {
		t.Error("stop aborted on voice failure")
	}
}

func TestPlayRejectsEmptyPattern(t *testing.T) {
	s := New(&recordingSink{}, &fakeClock{})
	err := s.Play(context.Background(), testSnapshot(pattern.NewGrid(0), 120), 0)
	if !errors.Is(err, ErrNoColumns) {
		t.Fatalf("err = %v, want ErrNoColumns", err)
	}
	if s.Playing() {
		t.Error("scheduler playing after rejected Play")
	}
}

func TestPlayOutputNotReady(t *testing.T) {
	sink := &recordingSink{ready: errors.New("no user gesture")}
	s := New(sink, &fakeClock{})
	g := pattern.NewGrid(4)
	err := s.Play(context.Background(), testSnapshot(g, 120), 0)
	if !errors.Is(err, ErrOutputNotReady) {
		t.Fatalf("err = %v, want ErrOutputNotReady", err)
	}
	if s.Playing() {
		t.Error("partial transport state left after failed start")
	}
}

func TestPlayWhilePlayingIsNoOp(t *testing.T) {
	g := pattern.NewGrid(4)
	clock := &fakeClock{}
	s := New(&recordingSink{}, clock, WithTickInterval(time.Hour))
	startStopped(t, s, testSnapshot(g, 120), 2)
	defer s.Stop()

	if err := s.Play(context.Background(), testSnapshot(g, 120), 0); err != nil {
		t.Fatalf("second Play: %v", err)
	}
	if s.Step() != 2 {
		t.Errorf("second Play moved the cursor to %d", s.Step())
	}
}

func TestGhostGainAndFlag(t *testing.T) {
	g := pattern.NewGrid(2)
	g.Set(pattern.Snare, 0, pattern.Ghost)
	g.Set(pattern.HiHat, 0, pattern.On)
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := New(sink, clock, WithTickInterval(time.Hour))

	startStopped(t, s, testSnapshot(g, 120), 0)
	defer s.Stop()
	s.Tick()

	var sawSnare, sawHat bool
	for _, ev := range sink.recorded() {
		switch ev.Instrument.ID {
		case pattern.Snare:
			if ev.When > startMargin+1e-9 {
				continue // later pattern passes
			}
			sawSnare = true
			if !ev.Ghost {
				t.Error("snare ghost hit lost its ghost flag")
			}
			if math.Abs(ev.Gain-0.3) > 1e-9 {
				t.Errorf("snare ghost gain = %g, want 0.3", ev.Gain)
			}
		case pattern.HiHat:
			if ev.When > startMargin+1e-9 {
				continue
			}
			sawHat = true
			if ev.Ghost || ev.Gain != 1 {
				t.Errorf("hihat On hit: ghost=%v gain=%g", ev.Ghost, ev.Gain)
			}
		}
	}
	if !sawSnare || !sawHat {
		t.Error("missing expected triggers")
	}
}

func TestMissingSampleSkippedSilently(t *testing.T) {
	g := pattern.NewGrid(2)
	g.Set(pattern.Ride, 0, pattern.On)
	g.Set(pattern.Kick, 0, pattern.On)
	clock := &fakeClock{}
	sink := &recordingSink{missing: map[pattern.InstrumentID]bool{pattern.Ride: true}}
	s := New(sink, clock, WithTickInterval(time.Hour))

	startStopped(t, s, testSnapshot(g, 120), 0)
	defer s.Stop()
	s.Tick()

	for _, ev := range sink.recorded() {
		if ev.Instrument.ID == pattern.Ride {
			t.Fatal("ride has no sample and must be skipped")
		}
	}
	if len(sink.recorded()) == 0 {
		t.Error("kick should still have triggered")
	}
}

func TestStepObserverOrdering(t *testing.T) {
	g := pattern.NewGrid(4)
	clock := &fakeClock{}
	s := New(&recordingSink{}, clock, WithTickInterval(time.Hour))

	var steps []int
	s.OnStep(func(step int) { steps = append(steps, step) })

	startStopped(t, s, testSnapshot(g, 240), 0)
	defer s.Stop()
	for i := 0; i < 20; i++ {
		s.Tick()
		clock.advance(0.025)
	}

	if len(steps) == 0 {
		t.Fatal("observer never fired")
	}
	for i := 1; i < len(steps); i++ {
		want := (steps[i-1] + 1) % 4
		if steps[i] != want {
			t.Fatalf("step order broke at %d: %v", i, steps[:i+1])
		}
	}
}

func TestLiveSnapshotReRead(t *testing.T) {
	g := pattern.NewGrid(4)
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := New(sink, clock, WithTickInterval(time.Hour))

	startStopped(t, s, testSnapshot(g, 120), 0)
	defer s.Stop()
	s.Tick()
	if len(sink.recorded()) != 0 {
		t.Fatal("empty grid should schedule nothing")
	}

	// Edit while playing: next tick must see the new hit.
	g.Set(pattern.Kick, 2, pattern.On)
	clock.advance(0.5)
	s.Tick()
	if len(sink.recorded()) == 0 {
		t.Error("live edit was not picked up")
	}
}

func TestColumnsCollapseMidPlayIdles(t *testing.T) {
	g := pattern.NewGrid(4)
	g.Set(pattern.Kick, 0, pattern.On)
	clock := &fakeClock{}
	sink := &recordingSink{}
	s := New(sink, clock, WithTickInterval(time.Hour))

	shrunk := false
	snap := func() Snapshot {
		sn := testSnapshot(g, 120)()
		if shrunk {
			sn.Columns = 0
			sn.Grid = pattern.NewGrid(0)
		}
		return sn
	}
	startStopped(t, s, snap, 0)
	defer s.Stop()
	s.Tick()

	shrunk = true
	before := len(sink.recorded())
	clock.advance(1)
	s.Tick() // must neither panic nor spin
	if got := len(sink.recorded()); got != before {
		t.Errorf("scheduled %d events against an empty grid", got-before)
	}
}
