// Package container gives read-only access to an EPUB zip container: the
// resources themselves, the encryption-declaration table, the package
// unique identifier, and the rights-license artifact when one is bundled.
// It feeds the decryption engine, which never touches the zip itself.
package container

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/deploymenttheory/go-epub-decrypt/internal/drm"
)

// Well-known container-internal paths.
const (
	mimetypePath  = "mimetype"
	containerXML  = "META-INF/container.xml"
	encryptionXML = "META-INF/encryption.xml"
	licensePath   = "META-INF/license.lcpl"
	epubMimetype  = "application/epub+zip"
)

// Container is an open EPUB archive.
type Container struct {
	zr     *zip.Reader
	closer io.Closer
}

// Open opens the EPUB at path.
func Open(path string) (*Container, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	return &Container{zr: &rc.Reader, closer: rc}, nil
}

// NewReader opens an EPUB from an in-memory or otherwise seekable source.
func NewReader(r io.ReaderAt, size int64) (*Container, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	return &Container{zr: zr}, nil
}

// Close releases the underlying file, if any.
func (c *Container) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Files lists the archive entries in stored order.
func (c *Container) Files() []*zip.File {
	return c.zr.File
}

// ReadFile returns the raw (possibly still encrypted) bytes of one entry.
// The name match tolerates case differences, as some packagers emit
// meta-inf/ in lowercase.
func (c *Container) ReadFile(name string) ([]byte, error) {
	f := c.find(name)
	if f == nil {
		return nil, fmt.Errorf("container has no entry %s: %w", name, os.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening entry %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading entry %s: %w", name, err)
	}
	return data, nil
}

func (c *Container) find(name string) *zip.File {
	for _, f := range c.zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// encryptionDoc mirrors the subset of META-INF/encryption.xml the engine
// consumes.
type encryptionDoc struct {
	EncryptedData []struct {
		EncryptionMethod struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
		CipherData struct {
			CipherReference struct {
				URI string `xml:"URI,attr"`
			} `xml:"CipherReference"`
		} `xml:"CipherData"`
	} `xml:"EncryptedData"`
}

// Declaration parses the encryption-declaration document into the
// (resource URI, algorithm) table. A container without one declares
// nothing encrypted and yields an empty table.
func (c *Container) Declaration() ([]drm.DeclaredResource, error) {
	if c.find(encryptionXML) == nil {
		return nil, nil
	}
	raw, err := c.ReadFile(encryptionXML)
	if err != nil {
		return nil, err
	}

	var doc encryptionDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", encryptionXML, err)
	}

	var resources []drm.DeclaredResource
	for _, d := range doc.EncryptedData {
		uri, err := url.PathUnescape(d.CipherData.CipherReference.URI)
		if err != nil {
			uri = d.CipherData.CipherReference.URI
		}
		if uri == "" {
			continue
		}
		resources = append(resources, drm.DeclaredResource{
			URI:       uri,
			Algorithm: d.EncryptionMethod.Algorithm,
		})
	}
	return resources, nil
}

// License returns the raw license artifact, or nil when the container does
// not bundle one.
func (c *Container) License() ([]byte, error) {
	if c.find(licensePath) == nil {
		return nil, nil
	}
	return c.ReadFile(licensePath)
}

type containerDoc struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	UniqueIdentifier string `xml:"unique-identifier,attr"`
	Identifiers      []struct {
		ID    string `xml:"id,attr"`
		Value string `xml:",chardata"`
	} `xml:"metadata>identifier"`
}

// UniqueIdentifier extracts the package unique-identifier string from the
// OPF document named by META-INF/container.xml. The string is returned
// verbatim; font obfuscation key derivation depends on its exact bytes.
func (c *Container) UniqueIdentifier() (string, error) {
	raw, err := c.ReadFile(containerXML)
	if err != nil {
		return "", err
	}
	var cont containerDoc
	if err := xml.Unmarshal(raw, &cont); err != nil {
		return "", fmt.Errorf("parsing %s: %w", containerXML, err)
	}
	if len(cont.Rootfiles) == 0 || cont.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("%s names no package document", containerXML)
	}

	opfPath := cont.Rootfiles[0].FullPath
	opfRaw, err := c.ReadFile(opfPath)
	if err != nil {
		return "", err
	}
	var pkg packageDoc
	if err := xml.Unmarshal(opfRaw, &pkg); err != nil {
		return "", fmt.Errorf("parsing %s: %w", opfPath, err)
	}

	for _, id := range pkg.Identifiers {
		if id.ID == pkg.UniqueIdentifier {
			return strings.TrimSpace(id.Value), nil
		}
	}
	for _, id := range pkg.Identifiers {
		if v := strings.TrimSpace(id.Value); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s declares no identifier", opfPath)
}
