package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongseonghan/cpfsk/internal/fec"
)

func TestFrame_EncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"TEXT frame", NewTextFrame(3, "CQ CQ")},
		{"empty TEXT frame", NewTextFrame(0, "")},
		{"DATA frame", NewDataFrame(9, []byte{0x00, 0xFF, 0x10})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.frame.Encode()
			require.NoError(t, err)

			decoded, err := DecodeFrame(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.frame.Type, decoded.Type)
			assert.Equal(t, tt.frame.SeqNum, decoded.SeqNum)
			assert.Equal(t, len(tt.frame.Payload), len(decoded.Payload))
			if len(tt.frame.Payload) > 0 {
				assert.Equal(t, tt.frame.Payload, decoded.Payload)
			}
		})
	}
}

func TestFrame_TypeName(t *testing.T) {
	assert.Equal(t, "TEXT", NewTextFrame(0, "a").TypeName())
	assert.Equal(t, "DATA", NewDataFrame(0, []byte{1}).TypeName())
	assert.Equal(t, "UNKNOWN(0x7f)", (&Frame{Type: 0x7F}).TypeName())
}

func TestFrame_CRCDetectsCorruption(t *testing.T) {
	encoded, err := NewTextFrame(1, "integrity").Encode()
	require.NoError(t, err)

	encoded[5] ^= 0xFF
	_, err = DecodeFrame(encoded)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestFrame_TooShort(t *testing.T) {
	_, err := DecodeFrame([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestFrame_TooLarge(t *testing.T) {
	_, err := NewTextFrame(0, strings.Repeat("x", MaxPayloadSize+1)).Encode()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestFrameBits_RoundTrip(t *testing.T) {
	coder, err := fec.NewDefaultCoder()
	require.NoError(t, err)

	for _, c := range []*fec.Coder{nil, coder} {
		bits, err := FrameBits(NewTextFrame(7, "hi"), c)
		require.NoError(t, err)
		for _, b := range bits {
			require.LessOrEqual(t, b, byte(1))
		}

		f, err := BitsFrame(bits, c)
		require.NoError(t, err)
		assert.Equal(t, "TEXT", f.TypeName())
		assert.Equal(t, byte(7), f.SeqNum)
		assert.Equal(t, "hi", string(f.Payload))
	}
}

func TestFrameBits_Length(t *testing.T) {
	bits, err := FrameBits(NewTextFrame(0, "abc"), nil)
	require.NoError(t, err)
	assert.Len(t, bits, (HeaderSize+3+fec.CRCSize)*8)

	coder, err := fec.NewDefaultCoder()
	require.NoError(t, err)
	bits, err = FrameBits(NewTextFrame(0, "abc"), coder)
	require.NoError(t, err)
	assert.Len(t, bits, coder.EncodedLen(HeaderSize+3+fec.CRCSize)*8)
}
