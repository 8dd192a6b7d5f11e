package rijndael

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
)

// DecryptCBC decrypts data laid out as IV || ciphertext blocks and strips
// PKCS#7 padding. The ciphertext body must be a positive multiple of the
// block size; the caller-supplied buffer is never retained or modified.
func DecryptCBC(key, data []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(data) < BlockSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than one IV (%d bytes)", commonerrors.ErrMalformedInput, len(data))
	}
	body := len(data) - BlockSize
	if body == 0 || body%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext body of %d bytes is not a positive multiple of the block size", commonerrors.ErrMalformedInput, body)
	}

	iv := data[:BlockSize]
	ct := data[BlockSize:]

	plain := make([]byte, body)
	prev := iv
	for off := 0; off < body; off += BlockSize {
		c.DecryptBlock(plain[off:], ct[off:])
		for i := 0; i < BlockSize; i++ {
			plain[off+i] ^= prev[i]
		}
		prev = ct[off : off+BlockSize]
	}

	return unpad(plain)
}

// EncryptCBC is the inverse of DecryptCBC: it pads plaintext with PKCS#7,
// encrypts in CBC mode under iv, and prepends the IV. Production code never
// encrypts; this exists for round-trip tests and fixture construction.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: IV length %d, want %d", commonerrors.ErrMalformedInput, len(iv), BlockSize)
	}

	padLen := BlockSize - len(plaintext)%BlockSize
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	out := make([]byte, BlockSize+len(padded))
	copy(out, iv)
	prev := out[:BlockSize]
	for off := 0; off < len(padded); off += BlockSize {
		block := out[BlockSize+off : BlockSize+off+BlockSize]
		for i := 0; i < BlockSize; i++ {
			block[i] = padded[off+i] ^ prev[i]
		}
		c.EncryptBlock(block, block)
		prev = block
	}
	return out, nil
}

// unpad validates and removes PKCS#7 padding. Every one of the trailing n
// bytes must equal n; a violation means the key was wrong or the data was
// tampered with, never something to truncate silently.
func unpad(plain []byte) ([]byte, error) {
	n := int(plain[len(plain)-1])
	if n < 1 || n > BlockSize || n > len(plain) {
		return nil, fmt.Errorf("%w: padding length %d out of range", commonerrors.ErrIntegrityFailure, n)
	}
	for _, b := range plain[len(plain)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: inconsistent padding bytes", commonerrors.ErrIntegrityFailure)
		}
	}
	return plain[:len(plain)-n], nil
}
