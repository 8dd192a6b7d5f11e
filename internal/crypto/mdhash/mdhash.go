// Package mdhash implements the two fixed-output digests the license
// protocol depends on: SHA-1 for font obfuscation key derivation and
// SHA-256 for user key derivation. Both follow the FIPS 180-4
// Merkle-Damgard construction with a big-endian bit-length suffix.
package mdhash

import "math/bits"

// blockSize is the compression function input size shared by both digests.
const blockSize = 64

// pad returns msg extended with the 0x80 marker, zero fill to 56 mod 64,
// and the original length in bits as a big-endian 64-bit suffix.
func pad(msg []byte) []byte {
	bitLen := uint64(len(msg)) * 8

	padded := make([]byte, 0, len(msg)+blockSize+8)
	padded = append(padded, msg...)
	padded = append(padded, 0x80)
	for len(padded)%blockSize != 56 {
		padded = append(padded, 0x00)
	}
	for shift := 56; shift >= 0; shift -= 8 {
		padded = append(padded, byte(bitLen>>uint(shift)))
	}
	return padded
}

func rotl32(x uint32, n int) uint32 { return bits.RotateLeft32(x, n) }

func rotr32(x uint32, n int) uint32 { return bits.RotateLeft32(x, -n) }

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
