package modem

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Bin is one frequency bin of a magnitude spectrum.
type Bin struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// Spectrum returns the one-sided magnitude spectrum of a uniformly sampled
// waveform. The sample rate is taken from the first two time points.
func Spectrum(w Waveform) ([]Bin, error) {
	n := w.Len()
	if n < 2 || len(w.Amplitude) != n {
		return nil, ErrShortWaveform
	}
	dt := w.Time[1] - w.Time[0]
	if dt <= 0 {
		return nil, ErrShortWaveform
	}
	rate := 1 / dt

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, w.Amplitude)

	bins := make([]Bin, len(coeffs))
	for i, c := range coeffs {
		mag := cmplx.Abs(c) / float64(n)
		// Fold the negative frequencies in, except for DC and Nyquist.
		if i != 0 && !(n%2 == 0 && i == len(coeffs)-1) {
			mag *= 2
		}
		bins[i] = Bin{
			Frequency: fft.Freq(i) * rate,
			Magnitude: mag,
		}
	}
	return bins, nil
}

// Peaks returns up to n local maxima of the spectrum, strongest first.
func Peaks(bins []Bin, n int) []Bin {
	var peaks []Bin
	for i := 1; i < len(bins)-1; i++ {
		if bins[i].Magnitude > bins[i-1].Magnitude && bins[i].Magnitude >= bins[i+1].Magnitude {
			peaks = append(peaks, bins[i])
		}
	}
	sort.SliceStable(peaks, func(a, b int) bool {
		return peaks[a].Magnitude > peaks[b].Magnitude
	})
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks
}

// maxToneSamples bounds the grid used by Tones.
const maxToneSamples = 1 << 20

// Tones samples the signal fast enough to resolve its highest instantaneous
// frequency and returns the n strongest spectral peaks. The grid size is a
// power of two so the transform stays fast for any bit count.
func Tones(p Params, bits []byte, n int) ([]Bin, error) {
	if err := checkInput(p, bits); err != nil {
		return nil, err
	}

	rate := math.Max(8*p.maxFrequency(), 64/p.BitDuration)
	want := float64(len(bits)) * p.BitDuration * rate
	size := 2
	for float64(size) < want && size < maxToneSamples {
		size <<= 1
	}

	w, err := Sample(p, bits, size, WithPhaseMode(PhaseExact))
	if err != nil {
		return nil, err
	}
	bins, err := Spectrum(w)
	if err != nil {
		return nil, err
	}
	return Peaks(bins, n), nil
}
