package mdhash

// Size1 is the byte length of a SHA-1 digest.
const Size1 = 20

// Sum1 returns the SHA-1 digest of data.
func Sum1(data []byte) [Size1]byte {
	h := [5]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0}

	msg := pad(data)
	var w [80]uint32
	for base := 0; base < len(msg); base += blockSize {
		block := msg[base : base+blockSize]
		for i := 0; i < 16; i++ {
			w[i] = be32(block[4*i:])
		}
		for i := 16; i < 80; i++ {
			w[i] = rotl32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
		}

		a, b, c, d, e := h[0], h[1], h[2], h[3], h[4]
		for i := 0; i < 80; i++ {
			var f, k uint32
			switch {
			case i < 20:
				f = (b & c) | (^b & d)
				k = 0x5A827999
			case i < 40:
				f = b ^ c ^ d
				k = 0x6ED9EBA1
			case i < 60:
				f = (b & c) | (b & d) | (c & d)
				k = 0x8F1BBCDC
			default:
				f = b ^ c ^ d
				k = 0xCA62C1D6
			}
			t := rotl32(a, 5) + f + e + k + w[i]
			e = d
			d = c
			c = rotl32(b, 30)
			b = a
			a = t
		}

		h[0] += a
		h[1] += b
		h[2] += c
		h[3] += d
		h[4] += e
	}

	var digest [Size1]byte
	for i, v := range h {
		putBE32(digest[4*i:], v)
	}
	return digest
}
