package modem

import "math"

// Interval is the phase record for a single bit.
type Interval struct {
	Index      int     `json:"index"`
	Bit        byte    `json:"bit"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Frequency  float64 `json:"frequency"`
	PhaseStart float64 `json:"phase_start"`
	PhaseEnd   float64 `json:"phase_end"`
}

// PhaseAt evaluates the interval's phase at time t.
func (iv Interval) PhaseAt(t float64) float64 {
	return iv.PhaseStart + 2*math.Pi*iv.Frequency*(t-iv.Start)
}

// Timeline is the ordered sequence of per-bit phase records.
type Timeline []Interval

// FinalPhase returns the accumulated phase at the end of the last bit.
func (tl Timeline) FinalPhase() float64 {
	if len(tl) == 0 {
		return 0
	}
	return tl[len(tl)-1].PhaseEnd
}

// Trajectory walks the bits left to right carrying the accumulated phase,
// so every interval starts exactly where the previous one ended.
// Phases are raw radians and are never wrapped.
func Trajectory(p Params, bits []byte) (Timeline, error) {
	if err := checkInput(p, bits); err != nil {
		return nil, err
	}

	tl := make(Timeline, len(bits))
	phase := 0.0
	for i, b := range bits {
		f := p.InstFrequency(b)
		end := phase + 2*math.Pi*f*p.BitDuration
		tl[i] = Interval{
			Index:      i,
			Bit:        b,
			Start:      float64(i) * p.BitDuration,
			End:        float64(i+1) * p.BitDuration,
			Frequency:  f,
			PhaseStart: phase,
			PhaseEnd:   end,
		}
		phase = end
	}
	return tl, nil
}
