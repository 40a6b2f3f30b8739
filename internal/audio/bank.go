package audio

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/faiface/beep"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	"github.com/pkg/errors"

	"github.com/icco/beatscribe/internal/pattern"
)

// Bank maps instruments to mono sample buffers at the engine rate. A
// ghost-suffixed entry, when present, is preferred for ghost hits so e.g.
// the snare can carry a dedicated ghost sample.
type Bank struct {
	buffers map[string][]float32
}

const ghostSuffix = ".ghost"

// Buffer returns the sample for an instrument, or nil when none is loaded.
// Ghost hits fall back to the regular sample when no ghost variant exists.
func (b *Bank) Buffer(id pattern.InstrumentID, ghost bool) []float32 {
	if ghost {
		if g, ok := b.buffers[string(id)+ghostSuffix]; ok {
			return g
		}
	}
	return b.buffers[string(id)]
}

// LoadDirectory builds a bank from <id>.wav or <id>.ogg files in dir, with
// optional <id>.ghost.wav/.ogg ghost variants. Instruments without a file
// are simply absent; their triggers are skipped at playback time.
func LoadDirectory(dir string) (*Bank, error) {
	b := &Bank{buffers: make(map[string][]float32)}
	for _, in := range pattern.Instruments() {
		for _, name := range []string{string(in.ID), string(in.ID) + ghostSuffix} {
			buf, err := loadFirst(dir, name)
			if err != nil {
				return nil, errors.Wrapf(err, "loading sample %q", name)
			}
			if buf != nil {
				b.buffers[name] = buf
			}
		}
	}
	return b, nil
}

func loadFirst(dir, name string) ([]float32, error) {
	for _, ext := range []string{".wav", ".ogg"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return decodeFile(path)
	}
	return nil, nil
}

type decoderFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

func decodeFile(path string) ([]float32, error) {
	decode := decoderFor(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening sample file")
	}
	stream, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if format.SampleRate != sampleRate {
		src = beep.Resample(4, format.SampleRate, sampleRate, stream)
	}
	return monoSamples(src), nil
}

func decoderFor(path string) decoderFunc {
	if filepath.Ext(path) == ".ogg" {
		return func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
			return vorbis.Decode(f)
		}
	}
	return func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(f)
	}
}

// monoSamples drains a streamer into a mono float32 buffer.
func monoSamples(src beep.Streamer) []float32 {
	var out []float32
	frame := make([][2]float64, 512)
	for {
		n, ok := src.Stream(frame)
		for i := 0; i < n; i++ {
			out = append(out, float32((frame[i][0]+frame[i][1])/2))
		}
		if !ok {
			return out
		}
	}
}

// SynthBank generates a default kit so the machine makes sound with no
// sample directory at all. The voices are simple decaying oscillators and
// noise bursts, one recipe per instrument.
func SynthBank() *Bank {
	b := &Bank{buffers: make(map[string][]float32)}
	b.buffers[string(pattern.Kick)] = pitchDrop(0.25, 120, 40, 1.0)
	b.buffers[string(pattern.Snare)] = noiseBurst(0.18, 0.6, tone(0.18, 180, 0.4))
	b.buffers[string(pattern.Snare)+ghostSuffix] = noiseBurst(0.08, 0.5, nil)
	b.buffers[string(pattern.HiHat)] = noiseBurst(0.05, 0.4, nil)
	b.buffers[string(pattern.Ride)] = noiseBurst(0.6, 0.25, tone(0.6, 330, 0.1))
	b.buffers[string(pattern.Crash)] = noiseBurst(1.2, 0.5, nil)
	b.buffers[string(pattern.HiTom)] = pitchDrop(0.2, 220, 160, 0.8)
	b.buffers[string(pattern.LowTom)] = pitchDrop(0.25, 160, 100, 0.8)
	return b
}

// pitchDrop renders a sine sweep from f0 to f1 with exponential decay.
func pitchDrop(dur, f0, f1, gain float64) []float32 {
	n := int(dur * sampleRate)
	out := make([]float32, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		freq := f0 + (f1-f0)*t
		phase += freq / sampleRate
		env := math.Exp(-5 * t)
		out[i] = float32(math.Sin(2*math.Pi*phase) * env * gain)
	}
	return out
}

// noiseBurst renders white noise with exponential decay, optionally mixed
// with a tonal body. The noise source is seeded so banks are reproducible.
func noiseBurst(dur, gain float64, body []float32) []float32 {
	n := int(dur * sampleRate)
	out := make([]float32, n)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		env := math.Exp(-6 * t)
		s := (rng.Float64()*2 - 1) * env * gain
		if i < len(body) {
			s += float64(body[i])
		}
		out[i] = float32(s)
	}
	return out
}

func tone(dur, freq, gain float64) []float32 {
	n := int(dur * sampleRate)
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		env := math.Exp(-7 * t)
		out[i] = float32(math.Sin(2*math.Pi*freq*float64(i)/sampleRate) * env * gain)
	}
	return out
}
