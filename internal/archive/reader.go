// Package archive gives path-based access to a BeReal export zip and builds
// the zip bundles produced by batch exports.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrArchiveCorrupt is returned when the bytes are not a readable zip container.
	ErrArchiveCorrupt = errors.New("archive corrupt")
	// ErrEntryNotFound is returned by Read for paths absent from the data root.
	ErrEntryNotFound = errors.New("archive entry not found")
)

// Entry is one file or folder, addressed relative to the data root.
type Entry struct {
	Path        string
	IsDirectory bool
	Size        uint64
}

// Archive is a read-only view over an export zip. When every entry lives
// under one top-level folder, that folder is the data root and all paths are
// resolved relative to it.
type Archive struct {
	root    string
	entries []Entry
	files   map[string]*zip.File
}

// Open parses data as a zip container.
func Open(data []byte) (*Archive, error) {
	zipReader, openErr := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if openErr != nil {
		return nil, fmt.Errorf("open zip: %w: %w", ErrArchiveCorrupt, openErr)
	}

	names := make([]string, 0, len(zipReader.File))
	for _, zipFile := range zipReader.File {
		name := cleanName(zipFile.Name)
		if name == "" || isMetadataEntry(name) {
			continue
		}
		names = append(names, name)
	}
	root := wrapperFolder(names)

	archive := &Archive{
		root:  root,
		files: make(map[string]*zip.File, len(zipReader.File)),
	}
	for _, zipFile := range zipReader.File {
		name := cleanName(zipFile.Name)
		if name == "" || isMetadataEntry(name) {
			continue
		}
		relative := name
		if root != "" {
			relative = strings.TrimPrefix(name, root+"/")
		}
		isDir := strings.HasSuffix(relative, "/") || zipFile.FileInfo().IsDir()
		relative = strings.TrimSuffix(relative, "/")
		if relative == "" {
			continue
		}
		if _, seen := archive.files[relative]; seen {
			continue
		}
		archive.files[relative] = zipFile
		archive.entries = append(archive.entries, Entry{
			Path:        relative,
			IsDirectory: isDir,
			Size:        zipFile.UncompressedSize64,
		})
	}
	sort.Slice(archive.entries, func(i, j int) bool {
		return archive.entries[i].Path < archive.entries[j].Path
	})
	return archive, nil
}

// Root returns the wrapper folder name, or "" when the zip root is the data root.
func (a *Archive) Root() string {
	return a.root
}

// ListEntries returns every entry under the data root sorted by path.
func (a *Archive) ListEntries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Has reports whether a non-directory entry exists at path.
func (a *Archive) Has(path string) bool {
	zipFile, ok := a.files[path]
	return ok && !zipFile.FileInfo().IsDir() && !strings.HasSuffix(zipFile.Name, "/")
}

// Read returns the uncompressed content of the entry at path. Read is safe
// for concurrent use.
func (a *Archive) Read(path string) ([]byte, error) {
	if !a.Has(path) {
		return nil, fmt.Errorf("read %q: %w", path, ErrEntryNotFound)
	}
	zipFile := a.files[path]
	fileReader, openFileErr := zipFile.Open()
	if openFileErr != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", path, openFileErr)
	}
	defer fileReader.Close()
	contentBytes, readErr := io.ReadAll(fileReader)
	if readErr != nil {
		return nil, fmt.Errorf("read zip entry %q: %w", path, readErr)
	}
	return contentBytes, nil
}

func cleanName(name string) string {
	return strings.TrimLeft(filepath.ToSlash(name), "/")
}

// isMetadataEntry skips resource-fork folders that macOS adds when zipping.
func isMetadataEntry(name string) bool {
	return name == "__MACOSX/" || strings.HasPrefix(name, "__MACOSX/") || strings.HasSuffix(name, "/.DS_Store") || name == ".DS_Store"
}

func wrapperFolder(names []string) string {
	candidate := ""
	for _, name := range names {
		head, _, nested := strings.Cut(name, "/")
		if !nested {
			return ""
		}
		if candidate == "" {
			candidate = head
			continue
		}
		if head != candidate {
			return ""
		}
	}
	return candidate
}
