package drm

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
	"github.com/deploymenttheory/go-epub-decrypt/internal/crypto/mdhash"
	"github.com/deploymenttheory/go-epub-decrypt/internal/crypto/rijndael"
	"github.com/deploymenttheory/go-epub-decrypt/internal/license"
	"github.com/deploymenttheory/go-epub-decrypt/internal/obfuscate"
)

const (
	testUUID      = "urn:uuid:12345678-1234-5678-1234-567812345678"
	testLicenseID = "f55af12e-6909-4b4c-a03b-3cfba0a5bd2e"
	adeptURI      = "http://ns.adobe.com/adept/enc#aes128-cbc"
)

func wrapPayload(t *testing.T, passphrase string, payload []byte) string {
	t.Helper()

	userKey := mdhash.Sum256([]byte(passphrase))
	iv := make([]byte, rijndael.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		t.Fatalf("Failed to generate random IV: %v", err)
	}
	wrapped, err := rijndael.EncryptCBC(userKey[:], iv, payload)
	if err != nil {
		t.Fatalf("Failed to wrap payload: %v", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped)
}

func makeLicense(t *testing.T, passphrase string, contentKey []byte) []byte {
	t.Helper()

	return []byte(fmt.Sprintf(`{
		"id": %q,
		"encryption": {
			"profile": "http://readium.org/lcp/basic-profile",
			"content_key": {"encrypted_value": %q, "algorithm": %q},
			"user_key": {"algorithm": %q, "text_hint": "hometown", "key_check": %q}
		}
	}`, testLicenseID,
		wrapPayload(t, passphrase, contentKey), license.AlgorithmAESCBC,
		license.AlgorithmSHA256,
		wrapPayload(t, passphrase, []byte(testLicenseID))))
}

func encryptResource(t *testing.T, key, plaintext []byte) []byte {
	t.Helper()

	iv := make([]byte, rijndael.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		t.Fatalf("Failed to generate random IV: %v", err)
	}
	ct, err := rijndael.EncryptCBC(key, iv, plaintext)
	if err != nil {
		t.Fatalf("Failed to encrypt fixture: %v", err)
	}
	return ct
}

func TestClassifyAlgorithm(t *testing.T) {
	testCases := []struct {
		name string
		uri  string
		want Scheme
	}{
		{"IDPF font", obfuscate.AlgorithmIDPF, SchemeFontIDPF},
		{"legacy font", obfuscate.AlgorithmAdobe, SchemeFontAdobe},
		{"license cipher", license.AlgorithmAESCBC, SchemeLicenseAES},
		{"adept", adeptURI, SchemeUnsupported},
		{"unknown", "http://example.com/unknown-encryption", SchemeUnsupported},
		{"case sensitive", "HTTP://WWW.IDPF.ORG/2008/EMBEDDING", SchemeUnsupported},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyAlgorithm(tc.uri); got != tc.want {
				t.Errorf("ClassifyAlgorithm(%q) = %v, want %v", tc.uri, got, tc.want)
			}
		})
	}
}

func TestLookupPrecedence(t *testing.T) {
	decl := NewDeclaration([]DeclaredResource{
		{URI: "OEBPS/fonts/title.otf", Algorithm: obfuscate.AlgorithmIDPF},
		{URI: "OEBPS/chapter01.xhtml", Algorithm: license.AlgorithmAESCBC},
		{URI: "chapter01.xhtml", Algorithm: adeptURI},
	})

	testCases := []struct {
		name     string
		path     string
		wantPath string
		found    bool
	}{
		{"exact", "OEBPS/chapter01.xhtml", "OEBPS/chapter01.xhtml", true},
		{"case tolerant", "oebps/Chapter01.XHTML", "OEBPS/chapter01.xhtml", true},
		{"leading slash", "/OEBPS/fonts/title.otf", "OEBPS/fonts/title.otf", true},
		{"extra leading segment", "book/OEBPS/fonts/title.otf", "OEBPS/fonts/title.otf", true},
		{"suffix request", "fonts/title.otf", "OEBPS/fonts/title.otf", true},
		{"partial segment no match", "ts/title.otf", "", false},
		{"undeclared", "OEBPS/chapter02.xhtml", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := decl.Lookup(tc.path)
			if ok != tc.found {
				t.Fatalf("Lookup(%q) found = %v, want %v", tc.path, ok, tc.found)
			}
			if ok && entry.Path != tc.wantPath {
				t.Errorf("Lookup(%q) = %q, want %q", tc.path, entry.Path, tc.wantPath)
			}
		})
	}

	// The longest declared suffix wins when several could match.
	entry, ok := decl.Lookup("pub/OEBPS/chapter01.xhtml")
	if !ok || entry.Path != "OEBPS/chapter01.xhtml" {
		t.Errorf("ambiguous path resolved to %q, want the longest declared URI", entry.Path)
	}
}

func TestClassificationIdempotent(t *testing.T) {
	decl := NewDeclaration([]DeclaredResource{
		{URI: "OEBPS/fonts/title.otf", Algorithm: obfuscate.AlgorithmIDPF},
	})

	first, ok1 := decl.Lookup("OEBPS/fonts/title.otf")
	second, ok2 := decl.Lookup("OEBPS/fonts/title.otf")
	if !ok1 || !ok2 || first != second {
		t.Error("repeated lookups returned different classifications")
	}
}

func TestFontDeobfuscationScenario(t *testing.T) {
	font := make([]byte, 2000)
	if _, err := rand.Read(font); err != nil {
		t.Fatalf("Failed to generate font fixture: %v", err)
	}
	masked := obfuscate.Deobfuscate(obfuscate.AlgorithmIDPF, testUUID, font)

	ctx := NewContext(Config{
		Declaration: NewDeclaration([]DeclaredResource{
			{URI: "OEBPS/fonts/body.otf", Algorithm: obfuscate.AlgorithmIDPF},
		}),
		UniqueID: testUUID,
	})

	got, err := ctx.Decrypt("OEBPS/fonts/body.otf", masked)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, font) {
		t.Error("deobfuscated font does not match the original bytes")
	}
	if ctx.Summary() != "font obfuscation only" {
		t.Errorf("Summary() = %q, want %q", ctx.Summary(), "font obfuscation only")
	}
	if !ctx.Unlocked() {
		t.Error("font-only container should be unlocked without credentials")
	}
}

func TestUndeclaredPassThrough(t *testing.T) {
	ctx := NewContext(Config{
		Declaration: NewDeclaration([]DeclaredResource{
			{URI: "OEBPS/chapter01.xhtml", Algorithm: license.AlgorithmAESCBC},
		}),
	})

	data := []byte("plain resource bytes")
	got, err := ctx.Decrypt("OEBPS/images/cover.jpg", data)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("undeclared resource was modified")
	}
}

func TestLicenseUnlockAndDecrypt(t *testing.T) {
	contentKey := make([]byte, rijndael.KeySize)
	if _, err := rand.Read(contentKey); err != nil {
		t.Fatalf("Failed to generate content key: %v", err)
	}

	decl := NewDeclaration([]DeclaredResource{
		{URI: "OEBPS/images/cover.jpg", Algorithm: license.AlgorithmAESCBC},
	})

	ctx := NewContext(Config{
		Declaration: decl,
		License:     makeLicense(t, "correct", contentKey),
		Passphrase:  "correct",
	})
	defer ctx.Close()

	if !ctx.Unlocked() {
		t.Fatal("context with the correct passphrase should be unlocked")
	}
	if ctx.Summary() != "unlocked" {
		t.Errorf("Summary() = %q, want %q", ctx.Summary(), "unlocked")
	}
	if ctx.Hint() != "hometown" {
		t.Errorf("Hint() = %q, want %q", ctx.Hint(), "hometown")
	}

	image := make([]byte, 600)
	if _, err := rand.Read(image); err != nil {
		t.Fatalf("Failed to generate image fixture: %v", err)
	}
	got, err := ctx.Decrypt("OEBPS/images/cover.jpg", encryptResource(t, contentKey, image))
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, image) {
		t.Error("license-encrypted resource did not round-trip")
	}
}

func TestWrongPassphraseScenario(t *testing.T) {
	contentKey := make([]byte, rijndael.KeySize)
	if _, err := rand.Read(contentKey); err != nil {
		t.Fatalf("Failed to generate content key: %v", err)
	}

	decl := NewDeclaration([]DeclaredResource{
		{URI: "OEBPS/chapter01.xhtml", Algorithm: license.AlgorithmAESCBC},
		{URI: "OEBPS/fonts/body.otf", Algorithm: obfuscate.AlgorithmIDPF},
	})

	// Construction must not fail even though the passphrase is wrong.
	ctx := NewContext(Config{
		Declaration: decl,
		UniqueID:    testUUID,
		License:     makeLicense(t, "correct", contentKey),
		Passphrase:  "wrong",
	})

	if ctx.Unlocked() {
		t.Error("context with a wrong passphrase must stay locked")
	}
	if ctx.Summary() != "locked — passphrase required" {
		t.Errorf("Summary() = %q, want %q", ctx.Summary(), "locked — passphrase required")
	}

	_, err := ctx.Decrypt("OEBPS/chapter01.xhtml", make([]byte, 48))
	if !errors.Is(err, commonerrors.ErrIntegrityFailure) {
		t.Errorf("Decrypt error = %v, want ErrIntegrityFailure", err)
	}

	// Partial success: fonts stay decryptable while the license class is
	// locked.
	font := make([]byte, 100)
	if _, err := rand.Read(font); err != nil {
		t.Fatalf("Failed to generate font fixture: %v", err)
	}
	masked := obfuscate.Deobfuscate(obfuscate.AlgorithmIDPF, testUUID, font)
	got, err := ctx.Decrypt("OEBPS/fonts/body.otf", masked)
	if err != nil {
		t.Fatalf("font decrypt failed while license locked: %v", err)
	}
	if !bytes.Equal(got, font) {
		t.Error("font did not deobfuscate while license class locked")
	}
}

func TestMissingCredentials(t *testing.T) {
	decl := NewDeclaration([]DeclaredResource{
		{URI: "OEBPS/chapter01.xhtml", Algorithm: license.AlgorithmAESCBC},
	})

	testCases := []struct {
		name string
		cfg  Config
	}{
		{"no license artifact", Config{Declaration: decl}},
		{"no passphrase", Config{Declaration: decl, License: makeLicense(t, "correct", make([]byte, rijndael.KeySize))}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := NewContext(tc.cfg)
			if ctx.Unlocked() {
				t.Error("context should be locked")
			}
			if !ctx.NeedsCredentials("OEBPS/chapter01.xhtml") {
				t.Error("NeedsCredentials should report true")
			}
			_, err := ctx.Decrypt("OEBPS/chapter01.xhtml", make([]byte, 48))
			if !errors.Is(err, commonerrors.ErrCredentialsRequired) {
				t.Errorf("Decrypt error = %v, want ErrCredentialsRequired", err)
			}
		})
	}
}

func TestUnsupportedSchemeScenario(t *testing.T) {
	decl := NewDeclaration([]DeclaredResource{
		{URI: "OEBPS/chapter01.xhtml", Algorithm: adeptURI},
	})

	// No secret can unlock a proprietary scheme.
	ctx := NewContext(Config{Declaration: decl, Passphrase: "anything"})

	if ctx.Unlocked() {
		t.Error("unsupported scheme should lock the context")
	}
	if ctx.Summary() != "unsupported protection" {
		t.Errorf("Summary() = %q, want %q", ctx.Summary(), "unsupported protection")
	}

	_, err := ctx.Decrypt("OEBPS/chapter01.xhtml", make([]byte, 48))
	if !errors.Is(err, commonerrors.ErrUnsupportedScheme) {
		t.Errorf("Decrypt error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestEmptyDeclaration(t *testing.T) {
	ctx := NewContext(Config{})
	if got := ctx.Summary(); got != "not encrypted" {
		t.Errorf("Summary() = %q, want %q", got, "not encrypted")
	}
	if ctx.IsEncrypted("anything") {
		t.Error("empty declaration should report nothing encrypted")
	}

	data := []byte{1, 2, 3}
	got, err := ctx.Decrypt("OEBPS/a.xhtml", data)
	if err != nil || !bytes.Equal(got, data) {
		t.Error("empty declaration should pass all resources through")
	}
}

func TestInferCompressed(t *testing.T) {
	testCases := []struct {
		path string
		want bool
	}{
		{"OEBPS/chapter.xhtml", true},
		{"OEBPS/style.CSS", true},
		{"OEBPS/toc.ncx", true},
		{"OEBPS/cover.jpg", false},
		{"OEBPS/audio.mp3", false},
		{"OEBPS/fonts/a.otf", false},
	}

	for _, tc := range testCases {
		if got := inferCompressed(tc.path); got != tc.want {
			t.Errorf("inferCompressed(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
