package modem

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Formulas holds the human-readable expressions for each bit interval.
// The four slices are parallel and indexed by bit.
type Formulas struct {
	Integrals   []string `json:"integrals"`
	Phases      []string `json:"phases"`
	Frequencies []string `json:"frequencies"`
	Signals     []string `json:"signals"`
}

// Len returns the number of bits the formulas describe.
func (f Formulas) Len() int {
	return len(f.Phases)
}

// RenderFormulas formats a computed timeline. Phase offsets are printed with
// two decimals, everything else at full precision.
func RenderFormulas(p Params, tl Timeline) Formulas {
	f := Formulas{
		Integrals:   make([]string, len(tl)),
		Phases:      make([]string, len(tl)),
		Frequencies: make([]string, len(tl)),
		Signals:     make([]string, len(tl)),
	}
	amp := FormatNumber(p.Amplitude)
	for i, iv := range tl {
		freq := FormatNumber(iv.Frequency)
		start := FormatNumber(iv.Start)
		end := FormatNumber(iv.End)
		span := fmt.Sprintf("t∈[%s, %s)", start, end)

		phase := fmt.Sprintf("%s + 2π·%s·(t-%s),  %s",
			strconv.FormatFloat(iv.PhaseStart, 'f', 2, 64), freq, start, span)

		f.Integrals[i] = fmt.Sprintf("∫ %s dτ = %s·(t-%s)", freq, freq, start)
		f.Phases[i] = phase
		f.Frequencies[i] = fmt.Sprintf("f_inst(t) = %s Hz,  %s", freq, span)
		f.Signals[i] = fmt.Sprintf("s(t) = %s·cos(%s)", amp, phase)
	}
	return f
}

// Compute runs Trajectory and renders its formulas.
func Compute(p Params, bits []byte) (Timeline, Formulas, error) {
	tl, err := Trajectory(p, bits)
	if err != nil {
		return nil, Formulas{}, err
	}
	return tl, RenderFormulas(p, tl), nil
}

// FormatNumber prints the shortest decimal that round-trips v, keeping a
// trailing ".0" on whole numbers so 1000 reads as 1000.0. Magnitudes below
// 1e-4 or from 1e16 up switch to exponent form (1e-05, 1e+16).
func FormatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
