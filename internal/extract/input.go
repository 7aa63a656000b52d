package extract

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File is one user-supplied input. Size comes from metadata so it can be
// checked before anything is read.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FileFromPath describes a file on disk without reading it.
func FileFromPath(path string) (File, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return File{}, fmt.Errorf("stat %q: %w: %w", path, ErrReadFailed, statErr)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%q is a folder: %w", path, ErrInvalidFileType)
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FileFromBytes wraps in-memory content, e.g. an uploaded form file.
func FileFromBytes(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type inputKind struct {
	label        string
	suffix       string
	contentTypes []string
}

var (
	zipInput = inputKind{
		label:        "zip",
		suffix:       ".zip",
		contentTypes: []string{"application/zip", "application/x-zip-compressed"},
	}
	gzipInput = inputKind{
		label:        "gz",
		suffix:       ".gz",
		contentTypes: []string{"application/gzip", "application/x-gzip"},
	}
)

func (k inputKind) accepts(contentType string) bool {
	lower := strings.ToLower(contentType)
	for _, allowed := range k.contentTypes {
		if strings.Contains(lower, allowed) {
			return true
		}
	}
	return false
}

func (f File) missing() bool {
	return f.Open == nil
}

// validate checks presence, then size, then type. The size check never
// touches content; sniffing only runs when neither the name nor the declared
// type identifies the file.
func validate(f File, kind inputKind, maxBytes int64) error {
	if f.missing() {
		return fmt.Errorf("%s input: %w", kind.label, ErrMissingInput)
	}
	if maxBytes > 0 && f.Size > maxBytes {
		return fmt.Errorf("%s input %q is %d bytes, limit %d: %w", kind.label, f.Name, f.Size, maxBytes, ErrFileTooLarge)
	}
	if strings.HasSuffix(strings.ToLower(f.Name), kind.suffix) || kind.accepts(f.ContentType) {
		return nil
	}
	sniffed, sniffErr := sniff(f)
	if sniffErr != nil {
		return sniffErr
	}
	if kind.accepts(sniffed) {
		return nil
	}
	return fmt.Errorf("%s input %q: expected .zip or .gz, got %q: %w", kind.label, f.Name, sniffed, ErrInvalidFileType)
}

func sniff(f File) (string, error) {
	reader, openErr := f.Open()
	if openErr != nil {
		return "", fmt.Errorf("open %q: %w: %w", f.Name, ErrReadFailed, openErr)
	}
	defer reader.Close()
	head := make([]byte, 512)
	n, readErr := io.ReadFull(reader, head)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return "", fmt.Errorf("read %q: %w: %w", f.Name, ErrReadFailed, readErr)
	}
	return http.DetectContentType(head[:n]), nil
}

func readAll(f File) ([]byte, error) {
	reader, openErr := f.Open()
	if openErr != nil {
		return nil, fmt.Errorf("open %q: %w: %w", f.Name, ErrReadFailed, openErr)
	}
	defer reader.Close()
	content, readErr := io.ReadAll(reader)
	if readErr != nil {
		return nil, fmt.Errorf("read %q: %w: %w", f.Name, ErrReadFailed, readErr)
	}
	return content, nil
}
