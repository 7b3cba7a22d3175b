package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFormulas_TwoBits(t *testing.T) {
	tl, f, err := Compute(DefaultParams(), []byte{1, 0})
	require.NoError(t, err)
	require.Len(t, tl, 2)
	require.Equal(t, 2, f.Len())

	assert.Equal(t, []string{
		"∫ 1000.5 dτ = 1000.5·(t-0.0)",
		"∫ 999.5 dτ = 999.5·(t-1.0)",
	}, f.Integrals)
	assert.Equal(t, []string{
		"0.00 + 2π·1000.5·(t-0.0),  t∈[0.0, 1.0)",
		"6286.33 + 2π·999.5·(t-1.0),  t∈[1.0, 2.0)",
	}, f.Phases)
	assert.Equal(t, []string{
		"f_inst(t) = 1000.5 Hz,  t∈[0.0, 1.0)",
		"f_inst(t) = 999.5 Hz,  t∈[1.0, 2.0)",
	}, f.Frequencies)
	assert.Equal(t, "s(t) = 1.0·cos(0.00 + 2π·1000.5·(t-0.0),  t∈[0.0, 1.0))", f.Signals[0])
}

func TestRenderFormulas_ParallelSlices(t *testing.T) {
	p := Params{Amplitude: 2.5, CarrierFrequency: 10, BitDuration: 0.1, ModulationIndex: 0.3}
	bits := []byte{0, 1, 1, 0, 1, 0, 0, 1}

	_, f, err := Compute(p, bits)
	require.NoError(t, err)

	assert.Len(t, f.Integrals, len(bits))
	assert.Len(t, f.Phases, len(bits))
	assert.Len(t, f.Frequencies, len(bits))
	assert.Len(t, f.Signals, len(bits))
	for i := range bits {
		assert.Contains(t, f.Signals[i], f.Phases[i])
		assert.Contains(t, f.Signals[i], "s(t) = 2.5·cos(")
	}
}

func TestCompute_Error(t *testing.T) {
	_, f, err := Compute(DefaultParams(), nil)
	assert.ErrorIs(t, err, ErrNoBits)
	assert.Zero(t, f.Len())
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1000, "1000.0"},
		{0.5, "0.5"},
		{-1, "-1.0"},
		{1000.25, "1000.25"},
		{0.1, "0.1"},
		{0, "0.0"},
		{0.0001, "0.0001"},
		{1e-5, "1e-05"},
		{1.5e-7, "1.5e-07"},
		{-2.5e-5, "-2.5e-05"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{1.25e20, "1.25e+20"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in))
	}
}

func TestParams_String(t *testing.T) {
	assert.Equal(t, "A=1.0, f0=1000.0, Tb=1.0, h=0.5", DefaultParams().String())
}
