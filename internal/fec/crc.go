package fec

import (
	"encoding/binary"
	"hash/crc32"
)

// CRCSize is the number of bytes a checksum occupies on the wire.
const CRCSize = 4

// Checksum computes the IEEE CRC-32 of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// AppendChecksum returns data followed by its big-endian CRC-32.
func AppendChecksum(data []byte) []byte {
	out := make([]byte, len(data)+CRCSize)
	copy(out, data)
	binary.BigEndian.PutUint32(out[len(data):], Checksum(data))
	return out
}

// VerifyChecksum splits off the trailing CRC-32 and reports whether it matches.
func VerifyChecksum(data []byte) ([]byte, bool) {
	if len(data) < CRCSize {
		return nil, false
	}
	body := data[:len(data)-CRCSize]
	want := binary.BigEndian.Uint32(data[len(data)-CRCSize:])
	return body, Checksum(body) == want
}
