package modem

import "errors"

var (
	// ErrInvalidParams is returned when modulation parameters violate their constraints.
	ErrInvalidParams = errors.New("invalid modulation parameters")

	// ErrNoBits is returned when the bit sequence is empty.
	ErrNoBits = errors.New("empty bit sequence")

	// ErrInvalidBit is returned when a symbol other than 0 or 1 is found.
	ErrInvalidBit = errors.New("bit must be 0 or 1")

	// ErrSampleCount is returned when fewer than two samples are requested.
	ErrSampleCount = errors.New("sample count must be at least 2")

	// ErrSampleRate is returned when a non-positive audio sample rate is requested.
	ErrSampleRate = errors.New("sample rate must be positive")

	// ErrShortWaveform is returned when a waveform is too short to analyse.
	ErrShortWaveform = errors.New("waveform needs at least two uniformly spaced samples")
)
