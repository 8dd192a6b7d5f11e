package drm

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
	"github.com/deploymenttheory/go-epub-decrypt/internal/license"
	"github.com/deploymenttheory/go-epub-decrypt/internal/logger"
	"github.com/deploymenttheory/go-epub-decrypt/internal/obfuscate"
)

// Config carries everything a Context is built from: the classified
// declaration, the package unique identifier for font key derivation, and
// optionally the raw license artifact plus the user's passphrase.
type Config struct {
	Declaration *Declaration
	UniqueID    string
	License     []byte
	Passphrase  string
}

// Context is the per-container decryption façade. Construction never
// fails: a bad or missing passphrase only leaves the license-encrypted
// class locked while font-obfuscated resources stay decryptable.
type Context struct {
	decl     *Declaration
	uniqueID string

	doc       *license.Document
	decryptor *license.Decryptor
	lockErr   error
}

// NewContext classifies capability once. Any license failure (parse error,
// invalid window, wrong passphrase) is recorded, not raised.
func NewContext(cfg Config) *Context {
	c := &Context{
		decl:     cfg.Declaration,
		uniqueID: cfg.UniqueID,
	}
	if c.decl == nil {
		c.decl = NewDeclaration(nil)
	}

	if !c.decl.hasScheme(SchemeLicenseAES) {
		return c
	}

	if len(cfg.License) == 0 {
		c.lockErr = fmt.Errorf("%w: container declares license encryption but no license artifact is present", commonerrors.ErrCredentialsRequired)
		return c
	}

	doc, err := license.Parse(cfg.License)
	if err != nil {
		c.lockErr = err
		logger.LogWarn("license artifact rejected", map[string]interface{}{"reason": err.Error()})
		return c
	}
	c.doc = doc

	if cfg.Passphrase == "" {
		c.lockErr = fmt.Errorf("%w: license %s needs a passphrase", commonerrors.ErrCredentialsRequired, doc.ID)
		return c
	}

	dec, err := license.NewDecryptor(doc, cfg.Passphrase)
	if err != nil {
		c.lockErr = err
		logger.LogWarn("license unlock failed", map[string]interface{}{"license": doc.ID})
		return c
	}
	c.decryptor = dec
	return c
}

// Decrypt routes one resource through the strategy its declaration calls
// for. Undeclared paths pass through unchanged.
func (c *Context) Decrypt(resourcePath string, data []byte) ([]byte, error) {
	entry, ok := c.decl.Lookup(resourcePath)
	if !ok {
		return data, nil
	}

	switch entry.Scheme {
	case SchemeFontIDPF, SchemeFontAdobe:
		return obfuscate.Deobfuscate(entry.Algorithm, c.uniqueID, data), nil

	case SchemeLicenseAES:
		if c.decryptor == nil {
			return nil, fmt.Errorf("cannot decrypt %s (%s): %w", resourcePath, entry.Scheme, c.lockReason())
		}
		return c.decryptor.Decrypt(data, inferCompressed(resourcePath))

	default:
		return nil, fmt.Errorf("%w: %s declares %s", commonerrors.ErrUnsupportedScheme, resourcePath, entry.Algorithm)
	}
}

// Entries returns the classified declaration entries in declared order.
func (c *Context) Entries() []Entry {
	return c.decl.Entries()
}

// IsEncrypted reports whether the path is declared encrypted at all.
func (c *Context) IsEncrypted(resourcePath string) bool {
	return c.decl.Has(resourcePath)
}

// NeedsCredentials reports whether decrypting the path requires
// credentials the context does not currently hold.
func (c *Context) NeedsCredentials(resourcePath string) bool {
	entry, ok := c.decl.Lookup(resourcePath)
	if !ok {
		return false
	}
	return entry.Scheme == SchemeLicenseAES && c.decryptor == nil
}

// Unlocked reports whether every declared resource class is currently
// decryptable.
func (c *Context) Unlocked() bool {
	if c.decl.hasScheme(SchemeUnsupported) {
		return false
	}
	if c.decl.hasScheme(SchemeLicenseAES) && c.decryptor == nil {
		return false
	}
	return true
}

// Hint returns the license's passphrase hint text, if any.
func (c *Context) Hint() string {
	if c.doc == nil {
		return ""
	}
	return c.doc.Hint
}

// LicenseValid reports whether the parsed license's usage window covers
// now. Containers without a parsed license report true; the window is a
// rights statement, not a decryption precondition.
func (c *Context) LicenseValid(now time.Time) bool {
	if c.doc == nil {
		return true
	}
	return c.doc.Valid(now)
}

// Summary is a human-readable protection status for the whole container.
func (c *Context) Summary() string {
	switch {
	case len(c.decl.entries) == 0:
		return "not encrypted"
	case c.decl.hasScheme(SchemeUnsupported):
		return "unsupported protection"
	case c.decl.hasScheme(SchemeLicenseAES):
		if c.decryptor != nil {
			return "unlocked"
		}
		return "locked — passphrase required"
	default:
		return "font obfuscation only"
	}
}

// Close releases the unwrapped content key, zeroizing it. The context
// stays usable for font-obfuscated and undeclared resources.
func (c *Context) Close() {
	if c.decryptor != nil {
		c.decryptor.Close()
		c.decryptor = nil
		c.lockErr = fmt.Errorf("%w: context closed", commonerrors.ErrCredentialsRequired)
	}
}

func (c *Context) lockReason() error {
	if c.lockErr != nil {
		return c.lockErr
	}
	return errors.New("license class locked")
}

// compressedExtensions lists the textual resource types packagers deflate
// before encrypting. Images, fonts and media are stored uncompressed.
var compressedExtensions = map[string]bool{
	".xhtml": true,
	".html":  true,
	".htm":   true,
	".xml":   true,
	".css":   true,
	".js":    true,
	".svg":   true,
	".opf":   true,
	".ncx":   true,
	".smil":  true,
}

func inferCompressed(resourcePath string) bool {
	return compressedExtensions[strings.ToLower(path.Ext(resourcePath))]
}
