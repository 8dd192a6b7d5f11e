package obfuscate

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"
)

const testUUID = "urn:uuid:12345678-1234-5678-1234-567812345678"

func TestKeyIDPF(t *testing.T) {
	// Whitespace inside the identifier must not change the key.
	plain := KeyIDPF(testUUID)
	spaced := KeyIDPF("urn:uuid:12345678-1234-5678\t-1234-5678123\r\n45678 ")

	if len(plain) != 20 {
		t.Fatalf("IDPF key length = %d, want 20", len(plain))
	}
	if !bytes.Equal(plain, spaced) {
		t.Error("whitespace in the identifier changed the IDPF key")
	}
}

func TestKeyAdobe(t *testing.T) {
	key := KeyAdobe(testUUID)
	want, _ := hex.DecodeString("12345678123456781234567812345678")
	if !bytes.Equal(key, want) {
		t.Errorf("Adobe key = %x, want %x", key, want)
	}

	// Identifiers that do not reduce to 32 hex characters fall back to
	// the truncated IDPF key.
	fallback := KeyAdobe("isbn:978-0-00-000000-0")
	if !bytes.Equal(fallback, KeyIDPF("isbn:978-0-00-000000-0")[:16]) {
		t.Error("non-UUID identifier did not fall back to the IDPF key")
	}
	if len(fallback) != 16 {
		t.Errorf("fallback key length = %d, want 16", len(fallback))
	}
}

func TestDeobfuscateInvolution(t *testing.T) {
	for _, algorithm := range []string{AlgorithmIDPF, AlgorithmAdobe} {
		data := make([]byte, 2000)
		if _, err := rand.Read(data); err != nil {
			t.Fatalf("Failed to generate random data: %v", err)
		}

		masked := Deobfuscate(algorithm, testUUID, data)
		if bytes.Equal(masked, data) {
			t.Errorf("%s: masking left the data unchanged", algorithm)
		}

		// XOR masking is self-inverse.
		restored := Deobfuscate(algorithm, testUUID, masked)
		if !bytes.Equal(restored, data) {
			t.Errorf("%s: deobfuscate(deobfuscate(x)) != x", algorithm)
		}
	}
}

func TestMaskStopsAt1040(t *testing.T) {
	data := make([]byte, 2000)
	for i := range data {
		data[i] = 0xAA
	}

	masked := Deobfuscate(AlgorithmIDPF, testUUID, data)
	if !bytes.Equal(masked[1040:], data[1040:]) {
		t.Error("bytes beyond offset 1040 were modified")
	}
	if bytes.Equal(masked[:1040], data[:1040]) {
		t.Error("leading 1040 bytes were not masked")
	}
}

func TestShortResource(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	masked := Deobfuscate(AlgorithmAdobe, testUUID, data)
	if len(masked) != len(data) {
		t.Fatalf("masked length = %d, want %d", len(masked), len(data))
	}
	if !bytes.Equal(Deobfuscate(AlgorithmAdobe, testUUID, masked), data) {
		t.Error("short resource did not round-trip")
	}
}

func TestUnknownAlgorithmPassThrough(t *testing.T) {
	data := []byte("not a font")
	out := Deobfuscate("http://example.com/unknown", testUUID, data)
	if !bytes.Equal(out, data) {
		t.Error("unknown algorithm modified the data")
	}
}

func TestInputBufferNotModified(t *testing.T) {
	data := make([]byte, 64)
	orig := make([]byte, 64)
	copy(orig, data)

	Deobfuscate(AlgorithmIDPF, testUUID, data)
	if !bytes.Equal(data, orig) {
		t.Error("caller-supplied buffer was modified in place")
	}
}
