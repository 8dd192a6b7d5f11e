// Package license models the rights-license artifact that carries the
// wrapped content key for license-encrypted resources, and the decryptor
// that unwraps it with a user-supplied passphrase.
package license

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "github.com/deploymenttheory/go-epub-decrypt/internal/common/errors"
)

// Algorithm identifiers used by the license protocol.
const (
	// AlgorithmAESCBC identifies the wide-block-cipher scheme protecting
	// resource bytes and the wrapped content key.
	AlgorithmAESCBC = "http://www.w3.org/2001/04/xmlenc#aes256-cbc"

	// AlgorithmSHA256 identifies the user-key derivation hash.
	AlgorithmSHA256 = "http://www.w3.org/2001/04/xmlenc#sha256"
)

// Document is the parsed, immutable representation of a license artifact.
type Document struct {
	ID       string
	Issued   time.Time
	Provider string
	Profile  string

	// ContentKey holds the wrapped content key, base64-decoded to raw
	// bytes but still encrypted under the user key.
	ContentKey     []byte
	ContentKeyAlgo string

	UserKeyAlgo string
	Hint        string
	// KeyCheck, when present, is the license ID encrypted under the user
	// key; it gives a deterministic wrong-passphrase signal.
	KeyCheck []byte

	Rights *Rights
	Links  []Link
}

// Rights is the optional usage window. Nil bounds are open-ended.
type Rights struct {
	Start *time.Time
	End   *time.Time
}

// Link is a related-resource reference carried by the artifact.
type Link struct {
	Rel  string
	Href string
	Type string
}

type documentJSON struct {
	ID         string `json:"id"`
	Issued     string `json:"issued"`
	Provider   string `json:"provider"`
	Encryption *struct {
		Profile    string `json:"profile"`
		ContentKey *struct {
			EncryptedValue string `json:"encrypted_value"`
			Algorithm      string `json:"algorithm"`
		} `json:"content_key"`
		UserKey *struct {
			Algorithm string `json:"algorithm"`
			TextHint  string `json:"text_hint"`
			KeyCheck  string `json:"key_check"`
		} `json:"user_key"`
	} `json:"encryption"`
	Rights *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"rights"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
		Type string `json:"type"`
	} `json:"links"`
}

// Parse decodes a license artifact. Required fields are the identifier,
// the encryption block, its profile, and the wrapped content-key value;
// each missing field fails with its own message. Optional fields default
// to absent.
func Parse(raw []byte) (*Document, error) {
	var wire documentJSON
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding license artifact: %v", commonerrors.ErrMalformedInput, err)
	}

	if wire.ID == "" {
		return nil, fmt.Errorf("%w: license has no identifier", commonerrors.ErrMalformedInput)
	}
	if wire.Encryption == nil {
		return nil, fmt.Errorf("%w: license has no encryption block", commonerrors.ErrMalformedInput)
	}
	if wire.Encryption.Profile == "" {
		return nil, fmt.Errorf("%w: license encryption block has no profile", commonerrors.ErrMalformedInput)
	}
	if wire.Encryption.ContentKey == nil || wire.Encryption.ContentKey.EncryptedValue == "" {
		return nil, fmt.Errorf("%w: license has no content key value", commonerrors.ErrMalformedInput)
	}

	doc := &Document{
		ID:             wire.ID,
		Provider:       wire.Provider,
		Profile:        wire.Encryption.Profile,
		ContentKeyAlgo: wire.Encryption.ContentKey.Algorithm,
	}

	contentKey, err := base64.StdEncoding.DecodeString(wire.Encryption.ContentKey.EncryptedValue)
	if err != nil {
		return nil, fmt.Errorf("%w: content key is not valid base64: %v", commonerrors.ErrMalformedInput, err)
	}
	doc.ContentKey = contentKey

	if wire.Issued != "" {
		issued, err := time.Parse(time.RFC3339, wire.Issued)
		if err != nil {
			return nil, fmt.Errorf("%w: bad issue timestamp %q: %v", commonerrors.ErrMalformedInput, wire.Issued, err)
		}
		doc.Issued = issued
	}

	if uk := wire.Encryption.UserKey; uk != nil {
		doc.UserKeyAlgo = uk.Algorithm
		doc.Hint = uk.TextHint
		if uk.KeyCheck != "" {
			check, err := base64.StdEncoding.DecodeString(uk.KeyCheck)
			if err != nil {
				return nil, fmt.Errorf("%w: key check is not valid base64: %v", commonerrors.ErrMalformedInput, err)
			}
			doc.KeyCheck = check
		}
	}

	if wire.Rights != nil {
		rights := &Rights{}
		if wire.Rights.Start != "" {
			start, err := time.Parse(time.RFC3339, wire.Rights.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: bad rights start %q: %v", commonerrors.ErrMalformedInput, wire.Rights.Start, err)
			}
			rights.Start = &start
		}
		if wire.Rights.End != "" {
			end, err := time.Parse(time.RFC3339, wire.Rights.End)
			if err != nil {
				return nil, fmt.Errorf("%w: bad rights end %q: %v", commonerrors.ErrMalformedInput, wire.Rights.End, err)
			}
			rights.End = &end
		}
		if rights.Start != nil || rights.End != nil {
			doc.Rights = rights
		}
	}

	for _, l := range wire.Links {
		doc.Links = append(doc.Links, Link{Rel: l.Rel, Href: l.Href, Type: l.Type})
	}

	return doc, nil
}

// Valid reports whether the license's usage window covers now. A license
// without a window is always valid.
func (d *Document) Valid(now time.Time) bool {
	if d.Rights == nil {
		return true
	}
	if d.Rights.Start != nil && now.Before(*d.Rights.Start) {
		return false
	}
	if d.Rights.End != nil && now.After(*d.Rights.End) {
		return false
	}
	return true
}
