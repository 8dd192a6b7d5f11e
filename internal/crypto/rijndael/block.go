// Package rijndael implements the 256-bit-key, 14-round block cipher the
// license protocol encrypts with, together with CBC-mode decryption and
// PKCS#7 unpadding. Only decryption is needed in production; the encrypt
// path exists so tests can build round-trip fixtures.
package rijndael

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
)

const (
	// BlockSize is the cipher block size in bytes.
	BlockSize = 16

	// KeySize is the only supported key length in bytes (256 bits).
	KeySize = 32

	rounds = 14
)

// sbox is the forward substitution table from the cipher specification.
var sbox = [256]byte{
	0x63, 0x7c, 0x77, 0x7b, 0xf2, 0x6b, 0x6f, 0xc5, 0x30, 0x01, 0x67, 0x2b, 0xfe, 0xd7, 0xab, 0x76,
	0xca, 0x82, 0xc9, 0x7d, 0xfa, 0x59, 0x47, 0xf0, 0xad, 0xd4, 0xa2, 0xaf, 0x9c, 0xa4, 0x72, 0xc0,
	0xb7, 0xfd, 0x93, 0x26, 0x36, 0x3f, 0xf7, 0xcc, 0x34, 0xa5, 0xe5, 0xf1, 0x71, 0xd8, 0x31, 0x15,
	0x04, 0xc7, 0x23, 0xc3, 0x18, 0x96, 0x05, 0x9a, 0x07, 0x12, 0x80, 0xe2, 0xeb, 0x27, 0xb2, 0x75,
	0x09, 0x83, 0x2c, 0x1a, 0x1b, 0x6e, 0x5a, 0xa0, 0x52, 0x3b, 0xd6, 0xb3, 0x29, 0xe3, 0x2f, 0x84,
	0x53, 0xd1, 0x00, 0xed, 0x20, 0xfc, 0xb1, 0x5b, 0x6a, 0xcb, 0xbe, 0x39, 0x4a, 0x4c, 0x58, 0xcf,
	0xd0, 0xef, 0xaa, 0xfb, 0x43, 0x4d, 0x33, 0x85, 0x45, 0xf9, 0x02, 0x7f, 0x50, 0x3c, 0x9f, 0xa8,
	0x51, 0xa3, 0x40, 0x8f, 0x92, 0x9d, 0x38, 0xf5, 0xbc, 0xb6, 0xda, 0x21, 0x10, 0xff, 0xf3, 0xd2,
	0xcd, 0x0c, 0x13, 0xec, 0x5f, 0x97, 0x44, 0x17, 0xc4, 0xa7, 0x7e, 0x3d, 0x64, 0x5d, 0x19, 0x73,
	0x60, 0x81, 0x4f, 0xdc, 0x22, 0x2a, 0x90, 0x88, 0x46, 0xee, 0xb8, 0x14, 0xde, 0x5e, 0x0b, 0xdb,
	0xe0, 0x32, 0x3a, 0x0a, 0x49, 0x06, 0x24, 0x5c, 0xc2, 0xd3, 0xac, 0x62, 0x91, 0x95, 0xe4, 0x79,
	0xe7, 0xc8, 0x37, 0x6d, 0x8d, 0xd5, 0x4e, 0xa9, 0x6c, 0x56, 0xf4, 0xea, 0x65, 0x7a, 0xae, 0x08,
	0xba, 0x78, 0x25, 0x2e, 0x1c, 0xa6, 0xb4, 0xc6, 0xe8, 0xdd, 0x74, 0x1f, 0x4b, 0xbd, 0x8b, 0x8a,
	0x70, 0x3e, 0xb5, 0x66, 0x48, 0x03, 0xf6, 0x0e, 0x61, 0x35, 0x57, 0xb9, 0x86, 0xc1, 0x1d, 0x9e,
	0xe1, 0xf8, 0x98, 0x11, 0x69, 0xd9, 0x8e, 0x94, 0x9b, 0x1e, 0x87, 0xe9, 0xce, 0x55, 0x28, 0xdf,
	0x8c, 0xa1, 0x89, 0x0d, 0xbf, 0xe6, 0x42, 0x68, 0x41, 0x99, 0x2d, 0x0f, 0xb0, 0x54, 0xbb, 0x16,
}

// invSbox is the inverse substitution table.
var invSbox = [256]byte{
	0x52, 0x09, 0x6a, 0xd5, 0x30, 0x36, 0xa5, 0x38, 0xbf, 0x40, 0xa3, 0x9e, 0x81, 0xf3, 0xd7, 0xfb,
	0x7c, 0xe3, 0x39, 0x82, 0x9b, 0x2f, 0xff, 0x87, 0x34, 0x8e, 0x43, 0x44, 0xc4, 0xde, 0xe9, 0xcb,
	0x54, 0x7b, 0x94, 0x32, 0xa6, 0xc2, 0x23, 0x3d, 0xee, 0x4c, 0x95, 0x0b, 0x42, 0xfa, 0xc3, 0x4e,
	0x08, 0x2e, 0xa1, 0x66, 0x28, 0xd9, 0x24, 0xb2, 0x76, 0x5b, 0xa2, 0x49, 0x6d, 0x8b, 0xd1, 0x25,
	0x72, 0xf8, 0xf6, 0x64, 0x86, 0x68, 0x98, 0x16, 0xd4, 0xa4, 0x5c, 0xcc, 0x5d, 0x65, 0xb6, 0x92,
	0x6c, 0x70, 0x48, 0x50, 0xfd, 0xed, 0xb9, 0xda, 0x5e, 0x15, 0x46, 0x57, 0xa7, 0x8d, 0x9d, 0x84,
	0x90, 0xd8, 0xab, 0x00, 0x8c, 0xbc, 0xd3, 0x0a, 0xf7, 0xe4, 0x58, 0x05, 0xb8, 0xb3, 0x45, 0x06,
	0xd0, 0x2c, 0x1e, 0x8f, 0xca, 0x3f, 0x0f, 0x02, 0xc1, 0xaf, 0xbd, 0x03, 0x01, 0x13, 0x8a, 0x6b,
	0x3a, 0x91, 0x11, 0x41, 0x4f, 0x67, 0xdc, 0xea, 0x97, 0xf2, 0xcf, 0xce, 0xf0, 0xb4, 0xe6, 0x73,
	0x96, 0xac, 0x74, 0x22, 0xe7, 0xad, 0x35, 0x85, 0xe2, 0xf9, 0x37, 0xe8, 0x1c, 0x75, 0xdf, 0x6e,
	0x47, 0xf1, 0x1a, 0x71, 0x1d, 0x29, 0xc5, 0x89, 0x6f, 0xb7, 0x62, 0x0e, 0xaa, 0x18, 0xbe, 0x1b,
	0xfc, 0x56, 0x3e, 0x4b, 0xc6, 0xd2, 0x79, 0x20, 0x9a, 0xdb, 0xc0, 0xfe, 0x78, 0xcd, 0x5a, 0xf4,
	0x1f, 0xdd, 0xa8, 0x33, 0x88, 0x07, 0xc7, 0x31, 0xb1, 0x12, 0x10, 0x59, 0x27, 0x80, 0xec, 0x5f,
	0x60, 0x51, 0x7f, 0xa9, 0x19, 0xb5, 0x4a, 0x0d, 0x2d, 0xe5, 0x7a, 0x9f, 0x93, 0xc9, 0x9c, 0xef,
	0xa0, 0xe0, 0x3b, 0x4d, 0xae, 0x2a, 0xf5, 0xb0, 0xc8, 0xeb, 0xbb, 0x3c, 0x83, 0x53, 0x99, 0x61,
	0x17, 0x2b, 0x04, 0x7e, 0xba, 0x77, 0xd6, 0x26, 0xe1, 0x69, 0x14, 0x63, 0x55, 0x21, 0x0c, 0x7d,
}

// rcon holds the key schedule round constants.
var rcon = [7]uint32{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40}

// Cipher is an instance of the block cipher keyed with a 32-byte key. The
// expanded key schedule is read-only after construction, so a Cipher may be
// shared across goroutines.
type Cipher struct {
	rk [4 * (rounds + 1)]uint32
}

// NewCipher expands key into a round-key schedule. The key must be exactly
// KeySize bytes.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key length %d, want %d", commonerrors.ErrMalformedInput, len(key), KeySize)
	}

	c := &Cipher{}
	nk := KeySize / 4
	for i := 0; i < nk; i++ {
		c.rk[i] = uint32(key[4*i])<<24 | uint32(key[4*i+1])<<16 | uint32(key[4*i+2])<<8 | uint32(key[4*i+3])
	}
	for i := nk; i < len(c.rk); i++ {
		t := c.rk[i-1]
		switch {
		case i%nk == 0:
			t = subWord(rotWord(t)) ^ (rcon[i/nk-1] << 24)
		case i%nk == 4:
			t = subWord(t)
		}
		c.rk[i] = c.rk[i-nk] ^ t
	}
	return c, nil
}

func rotWord(w uint32) uint32 { return w<<8 | w>>24 }

func subWord(w uint32) uint32 {
	return uint32(sbox[w>>24])<<24 |
		uint32(sbox[w>>16&0xff])<<16 |
		uint32(sbox[w>>8&0xff])<<8 |
		uint32(sbox[w&0xff])
}

// EncryptBlock encrypts one 16-byte block from src into dst. Only tests and
// fixture construction use this path.
func (c *Cipher) EncryptBlock(dst, src []byte) {
	var s [BlockSize]byte
	copy(s[:], src[:BlockSize])

	c.addRoundKey(&s, 0)
	for round := 1; round < rounds; round++ {
		subBytes(&s)
		shiftRows(&s)
		mixColumns(&s)
		c.addRoundKey(&s, round)
	}
	subBytes(&s)
	shiftRows(&s)
	c.addRoundKey(&s, rounds)

	copy(dst[:BlockSize], s[:])
}

// DecryptBlock decrypts one 16-byte block from src into dst.
func (c *Cipher) DecryptBlock(dst, src []byte) {
	var s [BlockSize]byte
	copy(s[:], src[:BlockSize])

	c.addRoundKey(&s, rounds)
	for round := rounds - 1; round > 0; round-- {
		invShiftRows(&s)
		invSubBytes(&s)
		c.addRoundKey(&s, round)
		invMixColumns(&s)
	}
	invShiftRows(&s)
	invSubBytes(&s)
	c.addRoundKey(&s, 0)

	copy(dst[:BlockSize], s[:])
}

// State layout: s[4*col+row], matching the byte order of the input block.

func (c *Cipher) addRoundKey(s *[BlockSize]byte, round int) {
	for col := 0; col < 4; col++ {
		w := c.rk[4*round+col]
		s[4*col+0] ^= byte(w >> 24)
		s[4*col+1] ^= byte(w >> 16)
		s[4*col+2] ^= byte(w >> 8)
		s[4*col+3] ^= byte(w)
	}
}

func subBytes(s *[BlockSize]byte) {
	for i, b := range s {
		s[i] = sbox[b]
	}
}

func invSubBytes(s *[BlockSize]byte) {
	for i, b := range s {
		s[i] = invSbox[b]
	}
}

// shiftRows rotates row r left by r positions.
func shiftRows(s *[BlockSize]byte) {
	var t [BlockSize]byte
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			t[4*col+row] = s[4*((col+row)%4)+row]
		}
	}
	*s = t
}

// invShiftRows rotates row r right by r positions.
func invShiftRows(s *[BlockSize]byte) {
	var t [BlockSize]byte
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			t[4*col+row] = s[4*((col-row+4)%4)+row]
		}
	}
	*s = t
}

// gmul multiplies two elements of GF(2^8) modulo the cipher's reduction
// polynomial x^8+x^4+x^3+x+1.
func gmul(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		carry := a & 0x80
		a <<= 1
		if carry != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return p
}

func mixColumns(s *[BlockSize]byte) {
	for col := 0; col < 4; col++ {
		a0, a1, a2, a3 := s[4*col], s[4*col+1], s[4*col+2], s[4*col+3]
		s[4*col+0] = gmul(a0, 2) ^ gmul(a1, 3) ^ a2 ^ a3
		s[4*col+1] = a0 ^ gmul(a1, 2) ^ gmul(a2, 3) ^ a3
		s[4*col+2] = a0 ^ a1 ^ gmul(a2, 2) ^ gmul(a3, 3)
		s[4*col+3] = gmul(a0, 3) ^ a1 ^ a2 ^ gmul(a3, 2)
	}
}

func invMixColumns(s *[BlockSize]byte) {
	for col := 0; col < 4; col++ {
		a0, a1, a2, a3 := s[4*col], s[4*col+1], s[4*col+2], s[4*col+3]
		s[4*col+0] = gmul(a0, 14) ^ gmul(a1, 11) ^ gmul(a2, 13) ^ gmul(a3, 9)
		s[4*col+1] = gmul(a0, 9) ^ gmul(a1, 14) ^ gmul(a2, 11) ^ gmul(a3, 13)
		s[4*col+2] = gmul(a0, 13) ^ gmul(a1, 9) ^ gmul(a2, 14) ^ gmul(a3, 11)
		s[4*col+3] = gmul(a0, 11) ^ gmul(a1, 13) ^ gmul(a2, 9) ^ gmul(a3, 14)
	}
}
