package license

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/dsnet/compress/flate"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
	"github.com/deploymenttheory/go-epub-decrypt/internal/crypto/mdhash"
	"github.com/deploymenttheory/go-epub-decrypt/internal/crypto/rijndael"
)

// Decryptor holds the unwrapped content key for one license. The key is
// read-only after construction and exclusively owned by this instance;
// Close overwrites it. Concurrent Decrypt calls are safe.
type Decryptor struct {
	key []byte
}

// NewDecryptor derives the user key from passphrase, unwraps the license's
// content key with it, and retains the result. A wrong passphrase surfaces
// as ErrIntegrityFailure; an empty one as ErrCredentialsRequired.
func NewDecryptor(doc *Document, passphrase string) (*Decryptor, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: no passphrase supplied for license %s", commonerrors.ErrCredentialsRequired, doc.ID)
	}

	userKey := mdhash.Sum256([]byte(passphrase))

	key, err := rijndael.DecryptCBC(userKey[:], doc.ContentKey)
	if err != nil {
		return nil, fmt.Errorf("unwrapping content key: %w", err)
	}
	if len(key) != rijndael.KeySize {
		return nil, fmt.Errorf("%w: bad content key (%d bytes, want %d)", commonerrors.ErrIntegrityFailure, len(key), rijndael.KeySize)
	}

	if len(doc.KeyCheck) > 0 {
		check, err := rijndael.DecryptCBC(userKey[:], doc.KeyCheck)
		if err != nil {
			return nil, fmt.Errorf("verifying key check: %w", err)
		}
		if string(check) != doc.ID {
			return nil, fmt.Errorf("%w: key check does not match license identifier", commonerrors.ErrIntegrityFailure)
		}
	}

	owned := make([]byte, rijndael.KeySize)
	copy(owned, key)
	return &Decryptor{key: owned}, nil
}

// Verify reports whether passphrase unwraps the license's content key.
// No derived key material outlives the call.
func Verify(doc *Document, passphrase string) error {
	d, err := NewDecryptor(doc, passphrase)
	if err != nil {
		return err
	}
	d.Close()
	return nil
}

// Decrypt recovers plaintext resource bytes from an IV-prefixed ciphertext
// blob. When compressed is set the plaintext is additionally inflated; a
// plaintext that fails to inflate is returned as-is, since some producers
// mis-declare compression.
func (d *Decryptor) Decrypt(data []byte, compressed bool) ([]byte, error) {
	if d.key == nil {
		return nil, fmt.Errorf("%w: decryptor is closed", commonerrors.ErrCredentialsRequired)
	}

	plain, err := rijndael.DecryptCBC(d.key, data)
	if err != nil {
		return nil, err
	}
	if compressed {
		plain = inflate(plain)
	}
	return plain, nil
}

// DecryptAuto decrypts and attempts inflation regardless of any declared
// compression flag, keeping the raw plaintext when inflation fails.
func (d *Decryptor) DecryptAuto(data []byte) ([]byte, error) {
	return d.Decrypt(data, true)
}

// Close zeroizes the content key. The decryptor is unusable afterwards.
func (d *Decryptor) Close() {
	for i := range d.key {
		d.key[i] = 0
	}
	d.key = nil
}

// inflate decompresses data as a raw DEFLATE stream, then as a
// zlib-wrapped one, and finally gives the input back untouched when both
// decoders reject it.
func inflate(data []byte) []byte {
	if fr, err := flate.NewReader(bytes.NewReader(data), nil); err == nil {
		out, rerr := io.ReadAll(fr)
		fr.Close()
		if rerr == nil {
			return out
		}
	}
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		out, rerr := io.ReadAll(zr)
		zr.Close()
		if rerr == nil {
			return out
		}
	}
	return data
}
