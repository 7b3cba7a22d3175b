package modem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PhaseMode selects how the sampler carries phase from one bit to the next.
type PhaseMode int

const (
	// PhaseFromLastSample starts each bit at the phase of the previous bit's
	// last grid sample. This reproduces the reference plots exactly but lags
	// the true phase by up to one sample period per bit.
	PhaseFromLastSample PhaseMode = iota
	// PhaseExact starts each bit at the analytic end phase of the previous bit.
	PhaseExact
)

// String returns the configuration name of the mode.
func (m PhaseMode) String() string {
	switch m {
	case PhaseFromLastSample:
		return "last_sample"
	case PhaseExact:
		return "exact"
	default:
		return "unknown"
	}
}

// ParsePhaseMode parses a configuration name. The empty string selects the default.
func ParsePhaseMode(s string) (PhaseMode, error) {
	switch s {
	case "", "last_sample":
		return PhaseFromLastSample, nil
	case "exact":
		return PhaseExact, nil
	default:
		return 0, fmt.Errorf("unknown phase mode %q", s)
	}
}

// Waveform is a sampled signal: Amplitude[i] is the value at Time[i].
type Waveform struct {
	Time      []float64 `json:"time"`
	Amplitude []float64 `json:"amplitude"`
}

// Len returns the number of samples.
func (w Waveform) Len() int {
	return len(w.Time)
}

// Float32 converts the amplitudes for audio output.
func (w Waveform) Float32() []float32 {
	out := make([]float32, len(w.Amplitude))
	for i, s := range w.Amplitude {
		out[i] = float32(s)
	}
	return out
}

type sampleConfig struct {
	mode PhaseMode
}

// SampleOption configures Sample.
type SampleOption func(*sampleConfig)

// WithPhaseMode sets how phase is carried across bit boundaries.
func WithPhaseMode(m PhaseMode) SampleOption {
	return func(c *sampleConfig) {
		c.mode = m
	}
}

// Sample evaluates the CPFSK signal on sampleCount evenly spaced points
// covering [0, len(bits)·Tb], both ends included.
//
// A point belongs to bit i when i·Tb <= t < (i+1)·Tb. Points that belong to
// no bit (the closing endpoint, normally) are left at zero.
func Sample(p Params, bits []byte, sampleCount int, opts ...SampleOption) (Waveform, error) {
	if err := checkInput(p, bits); err != nil {
		return Waveform{}, err
	}
	if sampleCount < 2 {
		return Waveform{}, fmt.Errorf("%w: got %d", ErrSampleCount, sampleCount)
	}

	cfg := sampleConfig{mode: PhaseFromLastSample}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := Waveform{
		Time:      make([]float64, sampleCount),
		Amplitude: make([]float64, sampleCount),
	}
	total := float64(len(bits)) * p.BitDuration
	floats.Span(w.Time, 0, total)
	w.Time[sampleCount-1] = total

	phase := 0.0
	j := 0
	for i, b := range bits {
		f := p.InstFrequency(b)
		start := float64(i) * p.BitDuration
		end := float64(i+1) * p.BitDuration

		// The grid is ascending, so one cursor visits every point once.
		for j < sampleCount && w.Time[j] < start {
			j++
		}
		last := -1
		for ; j < sampleCount && w.Time[j] < end; j++ {
			seg := phase + 2*math.Pi*f*(w.Time[j]-start)
			w.Amplitude[j] = p.Amplitude * math.Cos(seg)
			last = j
		}

		if cfg.mode == PhaseFromLastSample && last >= 0 {
			phase += 2 * math.Pi * f * (w.Time[last] - start)
		} else {
			phase += 2 * math.Pi * f * p.BitDuration
		}
	}
	return w, nil
}

// SampleAtRate samples the signal at a fixed rate in samples per second,
// e.g. 44100 for audio playback.
func SampleAtRate(p Params, bits []byte, rate float64, opts ...SampleOption) (Waveform, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Waveform{}, fmt.Errorf("%w: got %v", ErrSampleRate, rate)
	}
	if err := p.Validate(); err != nil {
		return Waveform{}, err
	}
	n := int(math.Round(float64(len(bits))*p.BitDuration*rate)) + 1
	if n < 2 {
		n = 2
	}
	return Sample(p, bits, n, opts...)
}
