package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum_AppendVerify(t *testing.T) {
	data := []byte("CPFSK frame")

	withCRC := AppendChecksum(data)
	require.Len(t, withCRC, len(data)+CRCSize)

	body, ok := VerifyChecksum(withCRC)
	assert.True(t, ok)
	assert.Equal(t, data, body)

	withCRC[3] ^= 0x01
	_, ok = VerifyChecksum(withCRC)
	assert.False(t, ok)

	_, ok = VerifyChecksum([]byte{1, 2})
	assert.False(t, ok)
}

func TestCoder_EncodeDecode(t *testing.T) {
	c, err := NewDefaultCoder()
	require.NoError(t, err)

	msg := []byte("hello, carrier")
	encoded, err := c.Encode(msg)
	require.NoError(t, err)
	assert.Len(t, encoded, 2*c.BlockSize())
	assert.Equal(t, c.EncodedLen(len(msg)), len(encoded))

	decoded, err := c.Decode(encoded, nil)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded[:len(msg)])
	assert.Equal(t, []byte{0, 0}, decoded[len(msg):])
}

func TestCoder_RepairsErasures(t *testing.T) {
	c, err := NewCoder(6, 4)
	require.NoError(t, err)

	msg := []byte("ABCDEFGHIJKL")
	encoded, err := c.Encode(msg)
	require.NoError(t, err)

	erasures := []int{0, 3, 5, 9, 10, 19}
	for _, e := range erasures {
		encoded[e] = 0xFF
	}

	decoded, err := c.Decode(encoded, erasures)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestCoder_DetectsCorruption(t *testing.T) {
	c, err := NewDefaultCoder()
	require.NoError(t, err)

	encoded, err := c.Encode([]byte("12345678"))
	require.NoError(t, err)
	encoded[2] ^= 0x40

	_, err = c.Decode(encoded, nil)
	assert.Error(t, err)
}

func TestCoder_BadLength(t *testing.T) {
	c, err := NewDefaultCoder()
	require.NoError(t, err)

	_, err = c.Decode(make([]byte, 5), nil)
	assert.ErrorIs(t, err, ErrBlockSize)
}
