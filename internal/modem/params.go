package modem

import (
	"fmt"
	"math"
)

// Params holds the scalar parameters of one CPFSK run.
type Params struct {
	Amplitude        float64 `json:"amplitude" yaml:"amplitude"`
	CarrierFrequency float64 `json:"carrier_frequency" yaml:"carrier_frequency"`
	BitDuration      float64 `json:"bit_duration" yaml:"bit_duration"`
	ModulationIndex  float64 `json:"modulation_index" yaml:"modulation_index"`
}

// DefaultParams returns the parameters used when nothing else is configured.
func DefaultParams() Params {
	return Params{
		Amplitude:        1.0,
		CarrierFrequency: 1000.0,
		BitDuration:      1.0,
		ModulationIndex:  0.5,
	}
}

// Validate checks amplitude and bit duration are positive and every field is finite.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"amplitude", p.Amplitude},
		{"carrier frequency", p.CarrierFrequency},
		{"bit duration", p.BitDuration},
		{"modulation index", p.ModulationIndex},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, f.name)
		}
	}
	if p.Amplitude <= 0 {
		return fmt.Errorf("%w: amplitude %v must be > 0", ErrInvalidParams, p.Amplitude)
	}
	if p.BitDuration <= 0 {
		return fmt.Errorf("%w: bit duration %v must be > 0", ErrInvalidParams, p.BitDuration)
	}
	if d := p.Deviation(); math.IsInf(d, 0) {
		return fmt.Errorf("%w: deviation h/Tb overflows", ErrInvalidParams)
	}
	if adv := 2 * math.Pi * p.maxFrequency() * p.BitDuration; math.IsInf(adv, 0) {
		return fmt.Errorf("%w: phase advance per bit overflows", ErrInvalidParams)
	}
	return nil
}

// maxFrequency bounds |InstFrequency| over both symbols.
func (p Params) maxFrequency() float64 {
	return math.Abs(p.CarrierFrequency) + math.Abs(p.Deviation())
}

// Deviation returns the frequency offset h/Tb applied per symbol.
func (p Params) Deviation() float64 {
	return p.ModulationIndex / p.BitDuration
}

// InstFrequency maps a bit to its instantaneous frequency f0 + (h/Tb)·m.
// Both the trajectory and the sampler go through here.
func (p Params) InstFrequency(bit byte) float64 {
	return p.CarrierFrequency + p.Deviation()*Polarity(bit)
}

// String renders the parameters the way plot legends label them.
func (p Params) String() string {
	return fmt.Sprintf("A=%s, f0=%s, Tb=%s, h=%s",
		FormatNumber(p.Amplitude), FormatNumber(p.CarrierFrequency),
		FormatNumber(p.BitDuration), FormatNumber(p.ModulationIndex))
}

// Polarity returns +1 for a 1 bit and -1 for anything else.
func Polarity(bit byte) float64 {
	if bit == 1 {
		return 1
	}
	return -1
}

// checkInput validates p and bits and makes sure the accumulated phase and
// the total duration of the sequence stay finite.
func checkInput(p Params, bits []byte) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := checkBits(bits); err != nil {
		return err
	}
	n := float64(len(bits))
	if math.IsInf(n*p.BitDuration, 0) {
		return fmt.Errorf("%w: duration of %d bits overflows", ErrInvalidParams, len(bits))
	}
	if math.IsInf(2*math.Pi*p.maxFrequency()*p.BitDuration*n, 0) {
		return fmt.Errorf("%w: phase over %d bits overflows", ErrInvalidParams, len(bits))
	}
	return nil
}

func checkBits(bits []byte) error {
	if len(bits) == 0 {
		return ErrNoBits
	}
	for i, b := range bits {
		if b > 1 {
			return fmt.Errorf("%w: bit %d is %d", ErrInvalidBit, i, b)
		}
	}
	return nil
}
