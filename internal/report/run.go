// Package report turns computed CPFSK runs into artifacts: the formula text
// file, the waveform plot and a WAV rendering.
package report

import (
	"time"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/modem"
)

// Run bundles the inputs and outputs of one computation.
type Run struct {
	ID        string         `json:"id"`
	Time      time.Time      `json:"time"`
	Params    modem.Params   `json:"params"`
	Bits      string         `json:"bits"`
	Generated bool           `json:"generated"` // bits were drawn at random
	Timeline  modem.Timeline `json:"timeline"`
	Formulas  modem.Formulas `json:"formulas"`
	Waveform  modem.Waveform `json:"waveform"`
	Peaks     []modem.Bin    `json:"peaks,omitempty"`
}

// Options controls NewRun.
type Options struct {
	SampleCount int
	PhaseMode   modem.PhaseMode
	Peaks       int // strongest spectral tones to keep, 0 for none
}

// NewRun computes the timeline, formulas and sampled waveform for bits.
func NewRun(id string, p modem.Params, bits []byte, opts Options) (*Run, error) {
	tl, formulas, err := modem.Compute(p, bits)
	if err != nil {
		return nil, err
	}
	w, err := modem.Sample(p, bits, opts.SampleCount, modem.WithPhaseMode(opts.PhaseMode))
	if err != nil {
		return nil, err
	}

	r := &Run{
		ID:       id,
		Time:     time.Now(),
		Params:   p,
		Bits:     bitseq.String(bits),
		Timeline: tl,
		Formulas: formulas,
		Waveform: w,
	}
	if opts.Peaks > 0 {
		r.Peaks, err = modem.Tones(p, bits, opts.Peaks)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Summary is the compact form of a run published to external sinks.
type Summary struct {
	ID         string       `json:"id"`
	Timestamp  int64        `json:"timestamp"`
	Params     modem.Params `json:"params"`
	Bits       string       `json:"bits"`
	Generated  bool         `json:"generated"`
	FinalPhase float64      `json:"final_phase"`
	Samples    int          `json:"samples"`
	Peaks      []modem.Bin  `json:"peaks,omitempty"`
}

// Summary returns the run without its per-sample data.
func (r *Run) Summary() Summary {
	return Summary{
		ID:         r.ID,
		Timestamp:  r.Time.Unix(),
		Params:     r.Params,
		Bits:       r.Bits,
		Generated:  r.Generated,
		FinalPhase: r.Timeline.FinalPhase(),
		Samples:    r.Waveform.Len(),
		Peaks:      r.Peaks,
	}
}

// Sink receives every completed run.
type Sink interface {
	Publish(r *Run) error
}
