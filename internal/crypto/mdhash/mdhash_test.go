package mdhash

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSum1Vectors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"abc", "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"two blocks", "abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq",
			"84983e441c3bd26ebaae4aa1f95129e5e54670f1"},
		{"million a", strings.Repeat("a", 1000000), "34aa973cd4c4daa4f61eeb2bdbad27316534016f"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sum1([]byte(tc.input))
			if hex.EncodeToString(got[:]) != tc.want {
				t.Errorf("Sum1(%q) = %x, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestSum256Vectors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"two blocks", "abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq",
			"248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"},
		{"million a", strings.Repeat("a", 1000000),
			"cdc76e5c9914fb9281a1c7e284d73e67f1809a48a497200e046d39ccc7112cd0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sum256([]byte(tc.input))
			if hex.EncodeToString(got[:]) != tc.want {
				t.Errorf("Sum256(%q) = %x, want %s", tc.input, got, tc.want)
			}
		})
	}
}

// Padding changes shape at 55, 56, and 64 bytes mod the block size; sweep
// every length through two full blocks against the standard library.
func TestPaddingBoundaries(t *testing.T) {
	msg := make([]byte, 130)
	for i := range msg {
		msg[i] = byte(i * 7)
	}

	for n := 0; n <= len(msg); n++ {
		got1 := Sum1(msg[:n])
		want1 := sha1.Sum(msg[:n])
		if !bytes.Equal(got1[:], want1[:]) {
			t.Errorf("Sum1 length %d: got %x, want %x", n, got1, want1)
		}

		got256 := Sum256(msg[:n])
		want256 := sha256.Sum256(msg[:n])
		if !bytes.Equal(got256[:], want256[:]) {
			t.Errorf("Sum256 length %d: got %x, want %x", n, got256, want256)
		}
	}
}

func TestDeterminism(t *testing.T) {
	input := []byte("the same input always yields the same digest")

	if Sum1(input) != Sum1(input) {
		t.Error("Sum1 is not deterministic")
	}
	if Sum256(input) != Sum256(input) {
		t.Error("Sum256 is not deterministic")
	}
}
