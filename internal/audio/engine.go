// Package audio implements the trigger sink and audio clock on top of
// ebitengine/oto: a mixing stream that starts sample voices at scheduled
// positions on its own sample clock.
package audio

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/icco/beatscribe/internal/pattern"
	"github.com/icco/beatscribe/internal/playback"
)

const (
	sampleRate   = 44100
	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit
)

// voice is one triggered sample playing (or waiting to play) at a fixed
// position on the engine's sample clock.
type voice struct {
	inst    pattern.InstrumentID
	buf     []float32 // mono samples
	pos     int
	startAt int64 // engine sample index of the first frame
	gain    float64
	stopped bool
}

// engineVoice adapts a voice to playback.Voice; Stop on a voice that has
// not reached its start position simply discards it.
type engineVoice struct {
	e *Engine
	v *voice
}

func (ev engineVoice) Stop() error {
	ev.e.mu.Lock()
	ev.v.stopped = true
	ev.e.mu.Unlock()
	return nil
}

func (ev engineVoice) Active() bool {
	ev.e.mu.Lock()
	defer ev.e.mu.Unlock()
	return !ev.v.stopped && ev.v.pos < len(ev.v.buf)
}

// Engine renders the voice mix into an oto player and exposes the stream
// position as the clock the scheduler times against.
type Engine struct {
	bank   *Bank
	logger *log.Logger

	otoCtx *oto.Context
	player *oto.Player
	ready  chan struct{}

	mu         sync.Mutex
	voices     []*voice
	pos        int64 // frames rendered since start
	masterGain float64
	levels     map[pattern.InstrumentID]float64 // decaying per-instrument meter
}

// NewEngine opens the audio output context. The context comes up
// asynchronously; Ready blocks until it is running.
func NewEngine(bank *Bank, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		bank:       bank,
		logger:     logger,
		otoCtx:     otoCtx,
		ready:      readyChan,
		masterGain: 0.8,
		levels:     make(map[pattern.InstrumentID]float64),
	}
	e.player = otoCtx.NewPlayer(&mixReader{engine: e})
	e.player.Play()
	return e, nil
}

// Ready blocks until the output context is running, or the caller cancels.
func (e *Engine) Ready(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns the stream position in seconds. This, not the wall clock, is
// the scheduler's time base.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.pos) / sampleRate
}

// Trigger schedules one voice at an absolute stream time. Instruments with
// no buffer in the bank report playback.ErrNoSample; times already in the
// past clamp to "immediately".
func (e *Engine) Trigger(ev playback.TriggerEvent) (playback.Voice, error) {
	buf := e.bank.Buffer(ev.Instrument.ID, ev.Ghost)
	if buf == nil {
		return nil, playback.ErrNoSample
	}
	startAt := int64(ev.When * sampleRate)
	e.mu.Lock()
	defer e.mu.Unlock()
	if startAt < e.pos {
		startAt = e.pos
	}
	v := &voice{inst: ev.Instrument.ID, buf: buf, startAt: startAt, gain: ev.Gain}
	e.voices = append(e.voices, v)
	return engineVoice{e: e, v: v}, nil
}

// Levels returns a decaying per-instrument amplitude snapshot for meters.
func (e *Engine) Levels() map[pattern.InstrumentID]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[pattern.InstrumentID]float64, len(e.levels))
	for id, l := range e.levels {
		out[id] = l
	}
	return out
}

// Close silences the engine. The oto player needs no explicit teardown.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.voices = nil
	e.mu.Unlock()
	return nil
}

// mixReader implements io.Reader for continuous audio generation, mixing
// every live voice into interleaved 16-bit stereo.
type mixReader struct {
	engine *Engine
}

func (r *mixReader) Read(buf []byte) (int, error) {
	e := r.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	frames := len(buf) / (channelCount * bitDepth)
	for i := 0; i < frames; i++ {
		frame := e.pos + int64(i)
		var sample float64

		for _, v := range e.voices {
			if v.stopped || frame < v.startAt || v.pos >= len(v.buf) {
				continue
			}
			s := float64(v.buf[v.pos]) * v.gain
			v.pos++
			sample += s
			if a := abs(s); a > e.levels[v.inst] {
				e.levels[v.inst] = a
			}
		}

		sample *= e.masterGain
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}

		out := int16(sample * 32767)
		idx := i * channelCount * bitDepth
		buf[idx] = byte(out)
		buf[idx+1] = byte(out >> 8)
		buf[idx+2] = byte(out)
		buf[idx+3] = byte(out >> 8)
	}
	e.pos += int64(frames)

	// Meter decay plus finished-voice cleanup, once per buffer.
	for id := range e.levels {
		e.levels[id] *= 0.85
	}
	live := e.voices[:0]
	for _, v := range e.voices {
		if !v.stopped && v.pos < len(v.buf) {
			live = append(live, v)
		}
	}
	e.voices = live

	return frames * channelCount * bitDepth, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
