// Package crc provides the two checksum primitives the wire protocol
// relies on: an 8-bit CRC for header validation and the 32-bit CRC for
// block and payload checksums.
package crc

import "hash/crc32"

// poly8 and the derived lookup table match the ROM CRC-8 used by the
// embedded fleet this protocol targets (polynomial 0x07, seed 0x00,
// MSB-first). The standard library has no CRC-8 support, and none of
// the bit widths or polynomials used elsewhere in the ecosystem
// (CRC-8/SMBUS, CRC-8/MAXIM, ...) are confirmed fleet-compatible, so
// this is a small hand-rolled table-driven implementation rather than
// an imported one.
const poly8 = 0x07

var table8 [256]byte

func init() {
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly8
			} else {
				crc <<= 1
			}
		}
		table8[i] = crc
	}
}

// CRC8 computes the big-endian (MSB-first) CRC-8 of b, seeded at 0, as
// used for header validation.
func CRC8(b []byte) byte {
	var crc byte
	for _, c := range b {
		crc = table8[crc^c]
	}
	return crc
}

// CRC32 computes the IEEE CRC-32 of b, as used for block checksums and
// the chunk payload trailer. IEEE CRC-32 is ubiquitous in Go
// via the standard library's hash/crc32 package; nothing in the
// retrieval pack implements its own, so stdlib is the grounded choice
// here.
func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
