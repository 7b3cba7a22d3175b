// Package bitseq parses, generates and packs the bit sequences fed to the modulator.
// Bits are held one per byte with value 0 or 1.
package bitseq

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// DefaultLength is the sequence length used when none is chosen.
const DefaultLength = 8

// AllowedLengths lists the sequence lengths the interactive surface accepts.
var AllowedLengths = []int{4, 8, 16, 24}

var (
	// ErrBadSymbol is returned when a sequence contains something other than 0 or 1.
	ErrBadSymbol = errors.New("sequence may only contain 0 and 1")

	// ErrBadLength is returned when a sequence has the wrong number of symbols.
	ErrBadLength = errors.New("wrong sequence length")
)

// ValidLength reports whether n is one of AllowedLengths.
func ValidLength(n int) bool {
	return slices.Contains(AllowedLengths, n)
}

// Parse converts a string of 0 and 1 characters into bits. When length is
// positive the string must have exactly that many symbols; otherwise any
// non-empty string is accepted.
func Parse(s string, length int) ([]byte, error) {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	if length > 0 && n != length {
		return nil, fmt.Errorf("%w: got %d symbols, want %d", ErrBadLength, n, length)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrBadLength)
	}

	bits := make([]byte, 0, n)
	for i, r := range s {
		switch r {
		case '0':
			bits = append(bits, 0)
		case '1':
			bits = append(bits, 1)
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrBadSymbol, r, i)
		}
	}
	return bits, nil
}

// String renders bits as a string such as "0110".
func String(bits []byte) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		if b == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// Generator produces uniformly random bit sequences.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. The same seed always yields the same sequences.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Bits returns n random bits.
func (g *Generator) Bits(n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(g.rng.IntN(2))
	}
	return bits
}

// FromBytes unpacks bytes into bits, most significant bit first.
func FromBytes(data []byte) []byte {
	bits := make([]byte, len(data)*8)
	for i, b := range data {
		for j := 7; j >= 0; j-- {
			bits[i*8+(7-j)] = (b >> uint(j)) & 1
		}
	}
	return bits
}

// ToBytes packs bits into bytes, most significant bit first. Trailing bits
// that do not fill a whole byte are dropped.
func ToBytes(bits []byte) []byte {
	numBytes := len(bits) / 8
	data := make([]byte, numBytes)
	for i := 0; i < numBytes; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i*8+j] & 1)
		}
		data[i] = b
	}
	return data
}
