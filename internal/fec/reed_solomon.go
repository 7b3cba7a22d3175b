package fec

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Default block geometry: eight message bytes protected by four parity bytes,
// so a 12-byte block (96 bits) survives up to four erased bytes.
const (
	DefaultDataShards   = 8
	DefaultParityShards = 4
)

// ErrBlockSize is returned when encoded input is not a whole number of blocks.
var ErrBlockSize = errors.New("encoded length is not a multiple of the block size")

// Coder adds Reed-Solomon parity to short messages. Each message byte is one
// shard, so a block is DataShards message bytes followed by ParityShards
// parity bytes.
type Coder struct {
	enc    reedsolomon.Encoder
	data   int
	parity int
}

// NewCoder creates a coder with the given shard counts.
func NewCoder(dataShards, parityShards int) (*Coder, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("create reed-solomon coder: %w", err)
	}
	return &Coder{enc: enc, data: dataShards, parity: parityShards}, nil
}

// NewDefaultCoder creates a coder with DefaultDataShards and DefaultParityShards.
func NewDefaultCoder() (*Coder, error) {
	return NewCoder(DefaultDataShards, DefaultParityShards)
}

// BlockSize returns the encoded size of one block in bytes.
func (c *Coder) BlockSize() int { return c.data + c.parity }

// DataShards returns the number of message bytes per block.
func (c *Coder) DataShards() int { return c.data }

// ParityShards returns the number of parity bytes per block.
func (c *Coder) ParityShards() int { return c.parity }

// EncodedLen returns the encoded size of an n byte message.
func (c *Coder) EncodedLen(n int) int {
	blocks := (n + c.data - 1) / c.data
	return blocks * c.BlockSize()
}

// Encode splits msg into blocks, zero padding the last one, and appends
// parity to each block.
func (c *Coder) Encode(msg []byte) ([]byte, error) {
	out := make([]byte, 0, c.EncodedLen(len(msg)))
	for off := 0; off < len(msg); off += c.data {
		end := min(off+c.data, len(msg))
		block, err := c.encodeBlock(msg[off:end])
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

// Decode strips parity from encoded blocks, rebuilding the bytes listed in
// erasures (indices into encoded). The result keeps the zero padding.
func (c *Coder) Decode(encoded []byte, erasures []int) ([]byte, error) {
	size := c.BlockSize()
	if len(encoded)%size != 0 {
		return nil, fmt.Errorf("%w: %d %% %d", ErrBlockSize, len(encoded), size)
	}

	lost := make(map[int]bool, len(erasures))
	for _, e := range erasures {
		lost[e] = true
	}

	out := make([]byte, 0, len(encoded)/size*c.data)
	for off := 0; off < len(encoded); off += size {
		var blockErasures []int
		for i := 0; i < size; i++ {
			if lost[off+i] {
				blockErasures = append(blockErasures, i)
			}
		}
		data, err := c.decodeBlock(encoded[off:off+size], blockErasures)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", off/size, err)
		}
		out = append(out, data...)
	}
	return out, nil
}

func (c *Coder) encodeBlock(data []byte) ([]byte, error) {
	shards := make([][]byte, c.BlockSize())
	for i := range shards {
		shards[i] = make([]byte, 1)
		if i < len(data) {
			shards[i][0] = data[i]
		}
	}

	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("encode block: %w", err)
	}

	block := make([]byte, len(shards))
	for i, s := range shards {
		block[i] = s[0]
	}
	return block, nil
}

func (c *Coder) decodeBlock(block []byte, erasures []int) ([]byte, error) {
	shards := make([][]byte, len(block))
	for i, b := range block {
		shards[i] = []byte{b}
	}
	for _, e := range erasures {
		shards[e] = nil
	}

	if len(erasures) > 0 {
		if err := c.enc.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("reconstruct: %w", err)
		}
	}
	ok, err := c.enc.Verify(shards)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !ok {
		return nil, errors.New("parity mismatch")
	}

	data := make([]byte, c.data)
	for i := range data {
		data[i] = shards[i][0]
	}
	return data, nil
}
