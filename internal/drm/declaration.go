// Package drm classifies the resources a container declares encrypted and
// dispatches per-resource decryption to the right strategy: font
// deobfuscation, license-backed decryption, or an unsupported-scheme
// failure.
package drm

import (
	"strings"

	"github.com/deploymenttheory/go-epub-decrypt/internal/license"
	"github.com/deploymenttheory/go-epub-decrypt/internal/obfuscate"
)

// Scheme is the closed classification of a declared algorithm identifier.
// Downstream code switches on the tag, never on raw URI strings.
type Scheme int

const (
	// SchemeNone means the resource is not declared encrypted.
	SchemeNone Scheme = iota

	// SchemeFontIDPF is credential-free IDPF font obfuscation.
	SchemeFontIDPF

	// SchemeFontAdobe is the legacy vendor font obfuscation variant.
	SchemeFontAdobe

	// SchemeLicenseAES is full resource encryption under a license
	// document's content key.
	SchemeLicenseAES

	// SchemeUnsupported is a recognized-but-undecryptable proprietary
	// scheme, or an identifier this engine does not know.
	SchemeUnsupported
)

// String names the scheme for status output and error messages.
func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeFontIDPF:
		return "font obfuscation (IDPF)"
	case SchemeFontAdobe:
		return "font obfuscation (legacy)"
	case SchemeLicenseAES:
		return "license encryption"
	case SchemeUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// ClassifyAlgorithm maps an algorithm identifier URI onto a Scheme. The
// match is exact and case-sensitive; everything unrecognized classifies
// unsupported rather than failing.
func ClassifyAlgorithm(uri string) Scheme {
	switch uri {
	case obfuscate.AlgorithmIDPF:
		return SchemeFontIDPF
	case obfuscate.AlgorithmAdobe:
		return SchemeFontAdobe
	case license.AlgorithmAESCBC:
		return SchemeLicenseAES
	default:
		return SchemeUnsupported
	}
}

// DeclaredResource is one (resource URI, algorithm identifier) pair from
// the container's encryption-declaration document.
type DeclaredResource struct {
	URI       string
	Algorithm string
}

// Entry is a declared resource with its derived classification.
type Entry struct {
	Path      string
	Algorithm string
	Scheme    Scheme
}

// Declaration is the immutable, classified table of declared resources.
type Declaration struct {
	entries []Entry
}

// NewDeclaration classifies each declared resource once, preserving
// declaration order for lookup precedence.
func NewDeclaration(resources []DeclaredResource) *Declaration {
	d := &Declaration{entries: make([]Entry, 0, len(resources))}
	for _, r := range resources {
		d.entries = append(d.entries, Entry{
			Path:      r.URI,
			Algorithm: r.Algorithm,
			Scheme:    ClassifyAlgorithm(r.Algorithm),
		})
	}
	return d
}

// Entries returns the classified entries in declaration order.
func (d *Declaration) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup resolves a requested path to its declared entry: an exact
// case-insensitive match wins, then the longest declared URI that is a
// path suffix of the request (or vice versa, to tolerate leading path
// segments). At most one entry matches a path.
func (d *Declaration) Lookup(path string) (Entry, bool) {
	norm := normalizePath(path)

	for _, e := range d.entries {
		if normalizePath(e.Path) == norm {
			return e, true
		}
	}

	best := -1
	bestLen := 0
	for i, e := range d.entries {
		declared := normalizePath(e.Path)
		if suffixMatch(norm, declared) && len(declared) > bestLen {
			best = i
			bestLen = len(declared)
		}
	}
	if best >= 0 {
		return d.entries[best], true
	}
	return Entry{}, false
}

// Has reports whether path resolves to a declared entry.
func (d *Declaration) Has(path string) bool {
	_, ok := d.Lookup(path)
	return ok
}

// hasScheme reports whether any entry carries the given classification.
func (d *Declaration) hasScheme(s Scheme) bool {
	for _, e := range d.entries {
		if e.Scheme == s {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	return strings.ToLower(strings.TrimPrefix(p, "/"))
}

// suffixMatch reports whether one path is a whole-segment suffix of the
// other, so OEBPS/fonts/a.otf matches fonts/a.otf but never ts/a.otf.
func suffixMatch(a, b string) bool {
	longer, shorter := a, b
	if len(longer) < len(shorter) {
		longer, shorter = shorter, longer
	}
	if !strings.HasSuffix(longer, shorter) {
		return false
	}
	cut := len(longer) - len(shorter)
	return cut == 0 || longer[cut-1] == '/'
}
