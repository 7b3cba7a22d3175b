package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jeongseonghan/cpfsk/internal/bitseq"
	"github.com/jeongseonghan/cpfsk/internal/fec"
)

// Frame types
const (
	TypeText byte = 0x01
	TypeData byte = 0x02
)

// Frame size limits
const (
	HeaderSize     = 4
	MaxPayloadSize = 64
)

var (
	// ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrChecksum is returned when a decoded frame fails its CRC-32 check.
	ErrChecksum = errors.New("frame checksum mismatch")
)

// Frame is a short message carried as a CPFSK bit sequence.
// Format: [Type(1B)][SeqNum(1B)][PayloadLen(2B)][Payload][CRC-32(4B)]
type Frame struct {
	Type    byte
	SeqNum  byte
	Payload []byte
}

// TypeName returns a human-readable name for the frame type.
func (f *Frame) TypeName() string {
	switch f.Type {
	case TypeText:
		return "TEXT"
	case TypeData:
		return "DATA"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", f.Type)
	}
}

// NewTextFrame creates a TEXT frame.
func NewTextFrame(seqNum byte, msg string) *Frame {
	return &Frame{Type: TypeText, SeqNum: seqNum, Payload: []byte(msg)}
}

// NewDataFrame creates a DATA frame carrying raw bytes.
func NewDataFrame(seqNum byte, data []byte) *Frame {
	return &Frame{Type: TypeData, SeqNum: seqNum, Payload: data}
}

// Encode serializes the frame and appends its CRC-32.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(f.Payload), MaxPayloadSize)
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Type
	buf[1] = f.SeqNum
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(f.Payload)))
	copy(buf[HeaderSize:], f.Payload)
	return fec.AppendChecksum(buf), nil
}

// DecodeFrame parses bytes produced by Encode. Trailing bytes beyond the
// frame (block padding) are ignored.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderSize+fec.CRCSize {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	n := int(binary.BigEndian.Uint16(data[2:4]))
	total := HeaderSize + n + fec.CRCSize
	if len(data) < total {
		return nil, fmt.Errorf("frame truncated: have %d, need %d", len(data), total)
	}

	body, ok := fec.VerifyChecksum(data[:total])
	if !ok {
		return nil, ErrChecksum
	}

	f := &Frame{Type: body[0], SeqNum: body[1]}
	if n > 0 {
		f.Payload = make([]byte, n)
		copy(f.Payload, body[HeaderSize:])
	}
	return f, nil
}

// FrameBits turns a frame into the bit sequence handed to the modulator.
// A nil coder sends the frame without Reed-Solomon parity.
func FrameBits(f *Frame, coder *fec.Coder) ([]byte, error) {
	raw, err := f.Encode()
	if err != nil {
		return nil, err
	}
	if coder != nil {
		raw, err = coder.Encode(raw)
		if err != nil {
			return nil, fmt.Errorf("RS encode: %w", err)
		}
	}
	return bitseq.FromBytes(raw), nil
}

// BitsFrame reverses FrameBits.
func BitsFrame(bits []byte, coder *fec.Coder) (*Frame, error) {
	raw := bitseq.ToBytes(bits)
	if coder != nil {
		var err error
		raw, err = coder.Decode(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("RS decode: %w", err)
		}
	}
	return DecodeFrame(raw)
}
