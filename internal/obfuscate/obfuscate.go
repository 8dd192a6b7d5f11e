// Package obfuscate reverses the credential-free byte masking applied to
// embedded font resources. Two key-derivation variants exist, selected by
// the algorithm identifier declared for the resource; both XOR the derived
// key cyclically over the leading bytes of the font, so the same operation
// obfuscates and deobfuscates.
package obfuscate

import (
	"encoding/hex"
	"strings"

	"github.com/deploymenttheory/go-epub-decrypt/internal/crypto/mdhash"
)

// Algorithm identifiers declared in the container's encryption document.
const (
	// AlgorithmIDPF derives a 20-byte key from the package unique
	// identifier (IDPF font mangling).
	AlgorithmIDPF = "http://www.idpf.org/2008/embedding"

	// AlgorithmAdobe derives a 16-byte key from the UUID form of the
	// unique identifier (legacy vendor scheme).
	AlgorithmAdobe = "http://ns.adobe.com/pdf/enc#RC"
)

// maskLength is the obfuscated prefix size; bytes past it are stored clear.
const maskLength = 1040

var whitespaceStripper = strings.NewReplacer(" ", "", "\t", "", "\r", "", "\n", "")

// KeyIDPF derives the 20-byte IDPF masking key: the unique identifier with
// space, tab, CR and LF removed, UTF-8 encoded and hashed with SHA-1.
func KeyIDPF(uniqueID string) []byte {
	digest := mdhash.Sum1([]byte(whitespaceStripper.Replace(uniqueID)))
	return digest[:]
}

// KeyAdobe derives the 16-byte legacy masking key by hex-decoding the
// unique identifier with its urn:uuid: prefix and hyphens removed. If the
// identifier does not reduce to 32 hex characters it falls back to the
// first 16 bytes of the IDPF key.
func KeyAdobe(uniqueID string) []byte {
	compact := strings.TrimPrefix(uniqueID, "urn:uuid:")
	compact = strings.ReplaceAll(compact, "-", "")
	if len(compact) == 32 {
		if key, err := hex.DecodeString(compact); err == nil {
			return key
		}
	}
	return KeyIDPF(uniqueID)[:16]
}

// Deobfuscate applies the masking variant named by algorithm to data and
// returns a new buffer. Unrecognized algorithm identifiers pass data
// through unchanged.
func Deobfuscate(algorithm, uniqueID string, data []byte) []byte {
	var key []byte
	switch algorithm {
	case AlgorithmIDPF:
		key = KeyIDPF(uniqueID)
	case AlgorithmAdobe:
		key = KeyAdobe(uniqueID)
	default:
		return data
	}
	return applyMask(key, data)
}

// applyMask XORs key cyclically over the first maskLength bytes of data
// and copies the remainder untouched.
func applyMask(key, data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	n := len(out)
	if n > maskLength {
		n = maskLength
	}
	for i := 0; i < n; i++ {
		out[i] ^= key[i%len(key)]
	}
	return out
}
