package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"time"
)

// Bundle accumulates files into an in-memory zip. Media is already
// compressed, so entries are stored rather than deflated.
type Bundle struct {
	buf      bytes.Buffer
	writer   *zip.Writer
	modified time.Time
	count    int
	closed   bool
}

// NewBundle returns an empty bundle whose entries carry modified as their timestamp.
func NewBundle(modified time.Time) *Bundle {
	b := &Bundle{modified: modified}
	b.writer = zip.NewWriter(&b.buf)
	return b
}

// AddFile stores data at name ("folder/file.jpg").
func (b *Bundle) AddFile(name string, data []byte) error {
	if b.closed {
		return fmt.Errorf("add %q: bundle already closed", name)
	}
	header := &zip.FileHeader{
		Name:     path.Clean(name),
		Method:   zip.Store,
		Modified: b.modified,
	}
	entryWriter, createErr := b.writer.CreateHeader(header)
	if createErr != nil {
		return fmt.Errorf("create bundle entry %q: %w", name, createErr)
	}
	if _, writeErr := entryWriter.Write(data); writeErr != nil {
		return fmt.Errorf("write bundle entry %q: %w", name, writeErr)
	}
	b.count++
	return nil
}

// Len returns the number of files added so far.
func (b *Bundle) Len() int {
	return b.count
}

// Bytes finalizes the zip and returns its content. Further AddFile calls fail.
func (b *Bundle) Bytes() ([]byte, error) {
	if !b.closed {
		if closeErr := b.writer.Close(); closeErr != nil {
			return nil, fmt.Errorf("finalize bundle: %w", closeErr)
		}
		b.closed = true
	}
	return b.buf.Bytes(), nil
}
