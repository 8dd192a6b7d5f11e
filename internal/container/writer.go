package container

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer produces a new EPUB container. The mimetype entry is written
// first and stored uncompressed so readers can sniff the container type
// from fixed offsets; every other entry is deflated.
type Writer struct {
	zw            *zip.Writer
	closer        io.Closer
	wroteMimetype bool
}

// Create creates an EPUB at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating container %s: %w", path, err)
	}
	return &Writer{zw: zip.NewWriter(f), closer: f}, nil
}

// NewWriter writes an EPUB to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// WriteMimetype writes the mimetype entry. It must be called before any
// WriteFile call.
func (w *Writer) WriteMimetype(mimetype []byte) error {
	if w.wroteMimetype {
		return fmt.Errorf("mimetype entry already written")
	}
	if len(mimetype) == 0 {
		mimetype = []byte(epubMimetype)
	}
	entry, err := w.zw.CreateHeader(&zip.FileHeader{Name: mimetypePath, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("creating mimetype entry: %w", err)
	}
	if _, err := entry.Write(mimetype); err != nil {
		return fmt.Errorf("writing mimetype entry: %w", err)
	}
	w.wroteMimetype = true
	return nil
}

// WriteFile adds one entry. Writing the mimetype through here is an
// error since its placement rules differ.
func (w *Writer) WriteFile(name string, data []byte) error {
	if strings.EqualFold(name, mimetypePath) {
		return fmt.Errorf("mimetype must be written with WriteMimetype")
	}
	if !w.wroteMimetype {
		if err := w.WriteMimetype(nil); err != nil {
			return err
		}
	}
	entry, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", name, err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}

// Close finalizes the archive and the underlying file, if any.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return fmt.Errorf("finalizing container: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
